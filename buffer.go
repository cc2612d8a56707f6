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

import "unsafe"

// Buffer is the pointer family a group's value storage is addressed
// through. Every dereference and every piece of pointer arithmetic in the
// storage path goes through a Buffer rather than a bare Go slice, so that
// an Allocator backed by shared memory (see OffsetAllocator below) can
// supply its own addressing scheme. sliceBuffer is the raw-pointer fast
// path used by the default allocator.
type Buffer[V any] interface {
	// At returns a pointer to the i-th element. i must be < Len().
	At(i int) *V
	// Len returns the buffer's element capacity.
	Len() int
}

// sliceBuffer is a Buffer backed directly by a Go slice.
type sliceBuffer[V any] struct {
	s []V
}

func (b sliceBuffer[V]) At(i int) *V { return &b.s[i] }
func (b sliceBuffer[V]) Len() int    { return len(b.s) }

// offsetBuffer is a Buffer backed by a byte arena addressed through
// integer offsets from the arena's base, modeled on
// boost::interprocess::offset_ptr: the "pointer" never stores an absolute
// address, so the whole arena can be relocated (e.g. mapped at a different
// address in a different process) without fixing up any stored pointer.
type offsetBuffer[V any] struct {
	arena []byte
	n     int
}

func (b offsetBuffer[V]) Len() int { return b.n }

func (b offsetBuffer[V]) At(i int) *V {
	var zero V
	size := unsafe.Sizeof(zero)
	base := unsafe.Pointer(unsafe.SliceData(b.arena))
	return (*V)(unsafe.Add(base, uintptr(i)*size))
}

func sizeofArena[V any](n int) int {
	var zero V
	return n * int(unsafe.Sizeof(zero))
}
