// Copyright 2026 The sparsehash Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sparsehash

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeLinearVisitsEveryBucket(t *testing.T) {
	const n = 16
	offset := probeOffset(ProbeLinear)
	for start := uint64(0); start < n; start++ {
		seq := makeProbeSeq(offset, start, n)
		var visited []uint64
		for {
			visited = append(visited, seq.bucket())
			if seq.next() {
				break
			}
		}
		require.Len(t, visited, n)
		sort.Slice(visited, func(i, j int) bool { return visited[i] < visited[j] })
		for i, v := range visited {
			require.EqualValues(t, i, v)
		}
	}
}

func TestProbeQuadraticVisitsEveryBucketOnPowerOfTwo(t *testing.T) {
	const n = 16
	offset := probeOffset(ProbeQuadratic)
	for start := uint64(0); start < n; start++ {
		seq := makeProbeSeq(offset, start, n)
		seen := make(map[uint64]bool)
		for {
			seen[seq.bucket()] = true
			if seq.next() {
				break
			}
		}
		require.Len(t, seen, n)
	}
}

func TestProbeSeqNextReportsDoneAfterFullCycle(t *testing.T) {
	seq := makeProbeSeq(probeOffset(ProbeLinear), 0, 4)
	var done bool
	for i := 0; i < 3; i++ {
		done = seq.next()
		require.False(t, done)
	}
	done = seq.next()
	require.True(t, done)
}
