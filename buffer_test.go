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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceBuffer(t *testing.T) {
	b := sliceBuffer[int]{s: make([]int, 5)}
	require.Equal(t, 5, b.Len())
	*b.At(2) = 7
	require.Equal(t, 7, *b.At(2))
}

func TestOffsetBuffer(t *testing.T) {
	n := 6
	b := offsetBuffer[int64]{arena: make([]byte, sizeofArena[int64](n)), n: n}
	require.Equal(t, n, b.Len())
	for i := 0; i < n; i++ {
		*b.At(i) = int64(i * i)
	}
	for i := 0; i < n; i++ {
		require.EqualValues(t, i*i, *b.At(i))
	}
}

func TestSizeofArena(t *testing.T) {
	require.Equal(t, 0, sizeofArena[int64](0))
	require.True(t, sizeofArena[int64](10) >= 10*8)
}
