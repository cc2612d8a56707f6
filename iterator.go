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

// Iterator holds (group-index, slot-index). Advance scans the current
// group's bitmap for the next set bit
// above slot; if none, it moves to the next group unless the current
// group's isLast flag is set, in which case it jumps straight to the
// canonical end position (group len(groups), slot 0). The isLast check
// does not replace the bounds check: advance's loop still compares the
// group index against len(groups) on every pass, and Done does the same.
type Iterator[K comparable, V any] struct {
	t     *Table[K, V]
	group int
	slot  int
}

// Begin returns an iterator at the first live entry, or at End() if the
// table is empty.
func (t *Table[K, V]) Begin() Iterator[K, V] {
	it := Iterator[K, V]{t: t, group: 0, slot: -1}
	it.advance()
	return it
}

// CBegin is the const-iterator spelling of Begin; the core makes no
// mutable/const distinction, so it is an alias.
func (t *Table[K, V]) CBegin() Iterator[K, V] { return t.Begin() }

// End returns the canonical past-the-end iterator.
func (t *Table[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{t: t, group: len(t.groups), slot: 0}
}

// CEnd is the const-iterator spelling of End; an alias, as for CBegin.
func (t *Table[K, V]) CEnd() Iterator[K, V] { return t.End() }

func (it *Iterator[K, V]) advance() {
	for it.group < len(it.t.groups) {
		g := &it.t.groups[it.group]
		if next := g.nextSet(it.slot+1, it.t.width); next >= 0 {
			it.slot = next
			return
		}
		if g.isLast {
			it.group = len(it.t.groups)
			it.slot = 0
			return
		}
		it.group++
		it.slot = -1
	}
}

// Next advances the iterator to the next live entry.
func (it *Iterator[K, V]) Next() { it.advance() }

// equalTo reports whether it and other denote the same logical position.
func (it Iterator[K, V]) equalTo(other Iterator[K, V]) bool {
	return it.group == other.group && it.slot == other.slot
}

// Done reports whether the iterator has reached End().
func (it Iterator[K, V]) Done() bool {
	return it.group >= len(it.t.groups)
}

// Value returns a pointer to the entry's stored value. It must not be
// called once Done() is true.
func (it Iterator[K, V]) Value() *V {
	return it.t.groups[it.group].get(it.slot)
}

// Key returns the entry's key.
func (it Iterator[K, V]) Key() K {
	return it.t.keyOf(*it.Value())
}

// Position returns the (group, slot) this iterator currently denotes, for
// callers that want to Erase through the Table API rather than through
// the iterator directly. The core offers no erase-while-iterating method;
// erasure only invalidates iterators at or past the erased slot within
// the same group, so callers wanting to delete-while-iterating must
// re-fetch an iterator afterward.
func (it Iterator[K, V]) Position() Position {
	return Position{group: it.group, slot: it.slot, valid: !it.Done()}
}
