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

// Package hashmap is a thin typed facade over sparsehash.Table: a map
// from comparable keys to arbitrary values, where the key selector
// projects the key out of a stored (key, value) pair. This is the "out
// of core" adapter described in the sparsehash core.
package hashmap

import (
	"io"

	"github.com/tsl-go/sparsehash"
)

// entry is the value type actually stored in the underlying Table: a
// (key, value) pair, with Table.keyOf projecting out the Key field.
type entry[K comparable, V any] struct {
	Key   K
	Value V
}

func keyOf[K comparable, V any](e entry[K, V]) K { return e.Key }

// Map is an unordered associative container from keys of type K to
// values of type V, built on a sparsehash.Table.
type Map[K comparable, V any] struct {
	t *sparsehash.Table[K, entry[K, V]]
}

// Option is an alias for sparsehash.Option[K, entry[K,V]]; callers
// configure a Map using sparsehash options parameterized over the entry
// type, matching the core's generic surface directly.
type Option[K comparable, V any] = sparsehash.Option[K, entry[K, V]]

// New constructs an empty Map.
func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	return &Map[K, V]{t: sparsehash.New[K, entry[K, V]](keyOf[K, V], opts...)}
}

// Put inserts or overwrites the value for key.
func (m *Map[K, V]) Put(key K, value V) {
	pos, inserted, err := m.t.Insert(entry[K, V]{Key: key, Value: value})
	if err != nil {
		// The default allocator never errors; a custom one that does is
		// expected to be handled via PutErr below.
		panic(err)
	}
	if !inserted {
		m.t.At(pos).Value = value
	}
}

// PutErr is the error-returning form of Put, for use with a custom
// Allocator that can fail.
func (m *Map[K, V]) PutErr(key K, value V) error {
	pos, inserted, err := m.t.Insert(entry[K, V]{Key: key, Value: value})
	if err != nil {
		return err
	}
	if !inserted {
		m.t.At(pos).Value = value
	}
	return nil
}

// Get retrieves the value for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	pos, ok := m.t.Find(key)
	if !ok {
		var zero V
		return zero, false
	}
	return m.t.At(pos).Value, true
}

// At retrieves the value for key, returning sparsehash.ErrKeyAbsent if
// key is not present (the "demands presence" lookup form).
func (m *Map[K, V]) At(key K) (V, error) {
	pos, ok := m.t.Find(key)
	if !ok {
		var zero V
		return zero, sparsehash.ErrKeyAbsent
	}
	return m.t.At(pos).Value, nil
}

// Delete removes key, reporting whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	return m.t.EraseKey(key) == 1
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return m.t.Len() }

// Clear removes every entry.
func (m *Map[K, V]) Clear() { m.t.Clear() }

// Reserve ensures capacity for at least n entries without a rehash.
func (m *Map[K, V]) Reserve(n int) error { return m.t.Reserve(n) }

// Each calls fn for every (key, value) pair; iteration order is
// unspecified and not stable across mutation.
func (m *Map[K, V]) Each(fn func(K, V) bool) {
	for it := m.t.Begin(); !it.Done(); it.Next() {
		e := *it.Value()
		if !fn(e.Key, e.Value) {
			return
		}
	}
}

// Equal reports whether m and other contain the same keys mapped to
// equal values, using valueEqual to compare values.
func (m *Map[K, V]) Equal(other *Map[K, V], valueEqual func(a, b V) bool) bool {
	return m.t.Equal(other.t, func(a, b entry[K, V]) bool { return valueEqual(a.Value, b.Value) })
}

// entryCodec adapts a ValueCodec[V] over the bare value type into one
// over the (key, value) entry type the core actually stores, so that
// Save/Load stay purely value-shaped from the facade's perspective.
type entryCodec[K comparable, V any] struct {
	keyCodec   sparsehash.ValueCodec[K]
	valueCodec sparsehash.ValueCodec[V]
}

func (c entryCodec[K, V]) Encode(w io.Writer, e entry[K, V]) error {
	if err := c.keyCodec.Encode(w, e.Key); err != nil {
		return err
	}
	return c.valueCodec.Encode(w, e.Value)
}

func (c entryCodec[K, V]) Decode(r io.Reader) (entry[K, V], error) {
	var e entry[K, V]
	k, err := c.keyCodec.Decode(r)
	if err != nil {
		return e, err
	}
	v, err := c.valueCodec.Decode(r)
	if err != nil {
		return e, err
	}
	e.Key, e.Value = k, v
	return e, nil
}

// Save writes m in sparsehash's persisted format.
func (m *Map[K, V]) Save(w io.Writer, keyCodec sparsehash.ValueCodec[K], valueCodec sparsehash.ValueCodec[V], hashID uint64) error {
	return sparsehash.Save(w, m.t, entryCodec[K, V]{keyCodec, valueCodec}, hashID)
}

// LoadFast restores a Map written by Save, trusting the stored layout.
func LoadFast[K comparable, V any](r io.Reader, keyCodec sparsehash.ValueCodec[K], valueCodec sparsehash.ValueCodec[V], opts ...Option[K, V]) (*Map[K, V], error) {
	t, err := sparsehash.LoadFast[K, entry[K, V]](r, entryCodec[K, V]{keyCodec, valueCodec}, keyOf[K, V], opts...)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{t: t}, nil
}

// LoadSafe restores a Map written by Save by reinserting every entry
// under the current hash/equal traits.
func LoadSafe[K comparable, V any](r io.Reader, keyCodec sparsehash.ValueCodec[K], valueCodec sparsehash.ValueCodec[V], opts ...Option[K, V]) (*Map[K, V], error) {
	t, err := sparsehash.LoadSafe[K, entry[K, V]](r, entryCodec[K, V]{keyCodec, valueCodec}, keyOf[K, V], opts...)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{t: t}, nil
}
