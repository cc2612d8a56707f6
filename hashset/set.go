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

// Package hashset is a thin typed facade over sparsehash.Table: a set of
// comparable elements where the key selector is the identity and the
// value selector is unused, exactly the "out of core" adapter described
// in the sparsehash core.
package hashset

import (
	"io"

	"github.com/tsl-go/sparsehash"
)

// Set is an unordered collection of unique, comparable elements built on
// a sparsehash.Table.
type Set[T comparable] struct {
	t *sparsehash.Table[T, T]
}

func identity[T comparable](v T) T { return v }

// New constructs an empty Set.
func New[T comparable](opts ...sparsehash.Option[T, T]) *Set[T] {
	return &Set[T]{t: sparsehash.New[T, T](identity[T], opts...)}
}

// Insert adds v, reporting whether it was newly added.
func (s *Set[T]) Insert(v T) (bool, error) {
	_, inserted, err := s.t.Insert(v)
	return inserted, err
}

// Contains reports whether v is a member of s.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.t.Find(v)
	return ok
}

// Erase removes v, reporting whether it was present.
func (s *Set[T]) Erase(v T) bool {
	return s.t.EraseKey(v) == 1
}

// Len returns the number of elements.
func (s *Set[T]) Len() int { return s.t.Len() }

// Clear removes every element.
func (s *Set[T]) Clear() { s.t.Clear() }

// Reserve ensures capacity for at least n elements without a rehash.
func (s *Set[T]) Reserve(n int) error { return s.t.Reserve(n) }

// Each calls fn for every element; iteration order is unspecified and not
// stable across mutation, per the core's non-goals.
func (s *Set[T]) Each(fn func(T) bool) {
	for it := s.t.Begin(); !it.Done(); it.Next() {
		if !fn(it.Key()) {
			return
		}
	}
}

// Equal reports whether s and other contain exactly the same elements,
// independent of insertion order.
func (s *Set[T]) Equal(other *Set[T]) bool {
	return s.t.Equal(other.t, func(a, b T) bool { return a == b })
}

// Save writes s in sparsehash's persisted format.
func (s *Set[T]) Save(w io.Writer, codec sparsehash.ValueCodec[T], hashID uint64) error {
	return sparsehash.Save(w, s.t, codec, hashID)
}

// LoadFast restores a Set written by Save, trusting the stored layout.
func LoadFast[T comparable](r io.Reader, codec sparsehash.ValueCodec[T], opts ...sparsehash.Option[T, T]) (*Set[T], error) {
	t, err := sparsehash.LoadFast[T, T](r, codec, identity[T], opts...)
	if err != nil {
		return nil, err
	}
	return &Set[T]{t: t}, nil
}

// LoadSafe restores a Set written by Save by reinserting every element
// under the current hash/equal traits, correct even if they differ from
// the writer's.
func LoadSafe[T comparable](r io.Reader, codec sparsehash.ValueCodec[T], opts ...sparsehash.Option[T, T]) (*Set[T], error) {
	t, err := sparsehash.LoadSafe[T, T](r, codec, identity[T], opts...)
	if err != nil {
		return nil, err
	}
	return &Set[T]{t: t}, nil
}
