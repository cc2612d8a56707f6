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

func TestGroupSetGetErase(t *testing.T) {
	var g group[string]
	alloc := defaultAllocator[string]{}
	const width = 32

	require.NoError(t, g.set(alloc, width, 5, "five"))
	require.NoError(t, g.set(alloc, width, 2, "two"))
	require.NoError(t, g.set(alloc, width, 9, "nine"))

	require.True(t, g.has(5))
	require.Equal(t, "five", *g.get(5))
	require.Equal(t, "two", *g.get(2))
	require.Equal(t, "nine", *g.get(9))
	require.Equal(t, 3, g.popcount(width))
	require.True(t, g.isFree(0))
	require.False(t, g.isDeleted(0))

	g.erase(alloc, width, 2)
	require.False(t, g.has(2))
	require.True(t, g.isDeleted(2))
	require.False(t, g.isFree(2)) // a tombstone is not free
	require.Equal(t, 2, g.popcount(width))
	require.Equal(t, "five", *g.get(5))
	require.Equal(t, "nine", *g.get(9))

	// Re-inserting at the same slot clears the tombstone.
	require.NoError(t, g.set(alloc, width, 2, "two-again"))
	require.False(t, g.isDeleted(2))
	require.Equal(t, "two-again", *g.get(2))
}

func TestGroupSetOverwriteInPlace(t *testing.T) {
	var g group[int]
	alloc := defaultAllocator[int]{}
	require.NoError(t, g.set(alloc, 32, 1, 10))
	cap1 := g.cap
	require.NoError(t, g.set(alloc, 32, 1, 20))
	require.Equal(t, cap1, g.cap) // overwrite must not grow the buffer
	require.Equal(t, 20, *g.get(1))
}

func TestGroupEraseFreesBufferWhenEmpty(t *testing.T) {
	var g group[int]
	alloc := defaultAllocator[int]{}
	require.NoError(t, g.set(alloc, 32, 1, 10))
	require.True(t, g.cap > 0)
	g.erase(alloc, 32, 1)
	require.Equal(t, 0, g.cap)
}

func TestGroupEraseOnClearBitPanics(t *testing.T) {
	var g group[int]
	alloc := defaultAllocator[int]{}
	require.Panics(t, func() { g.erase(alloc, 32, 4) })
}

func TestGroupClear(t *testing.T) {
	var g group[int]
	alloc := defaultAllocator[int]{}
	for i := 0; i < 10; i++ {
		require.NoError(t, g.set(alloc, 32, i, i*i))
	}
	g.clear(alloc)
	require.Equal(t, 0, g.popcount(32))
	require.Equal(t, 0, g.cap)
	for i := 0; i < 10; i++ {
		require.True(t, g.isFree(i))
	}
}

func TestGroupShrinkToFit(t *testing.T) {
	var g group[int]
	alloc := defaultAllocator[int]{}
	for i := 0; i < 5; i++ {
		require.NoError(t, g.set(alloc, 32, i, i))
	}
	g.erase(alloc, 32, 0)
	g.erase(alloc, 32, 1)
	capBefore := g.cap
	require.NoError(t, g.shrinkToFit(alloc, 32))
	require.True(t, g.cap < capBefore)
	require.Equal(t, 3, g.popcount(32))
	require.Equal(t, 2, *g.get(2))
	require.Equal(t, 4, *g.get(4))
}

func TestNextCapacity(t *testing.T) {
	testCases := []struct {
		cap, needed, width, want int
	}{
		{0, 1, 32, 1},
		{1, 2, 32, 2},
		{4, 5, 32, 8},
		{8, 9, 32, 16},
		{8, 20, 32, 20},
		{16, 17, 20, 20}, // capped at width
	}
	for _, c := range testCases {
		require.Equal(t, c.want, nextCapacity(c.cap, c.needed, c.width))
	}
}

func TestGroupOrderingPreservedAcrossShift(t *testing.T) {
	var g group[int]
	alloc := defaultAllocator[int]{}
	// Insert slots out of order; the buffer must stay ordered by slot
	// index (rank order), which get() relies on via bitmap.rank.
	for _, slot := range []int{7, 1, 4, 0, 9} {
		require.NoError(t, g.set(alloc, 32, slot, slot*10))
	}
	for _, slot := range []int{0, 1, 4, 7, 9} {
		require.Equal(t, slot*10, *g.get(slot))
	}
}
