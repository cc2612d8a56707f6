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
	"hash/maphash"
	"math"
)

const (
	debug      = false
	invariants = false
)

// Position identifies a live slot within a Table, returned by Insert and
// Find and consumed by At/Erase. The zero Position is never valid.
type Position struct {
	group int
	slot  int
	valid bool
}

// Valid reports whether pos refers to a live slot.
func (p Position) Valid() bool { return p.valid }

// Table is the hash-table engine: an ordered sequence of sparse
// groups, a growth policy, and a probing strategy, all fixed at
// construction time and thereafter branchless on the hot path.
type Table[K comparable, V any] struct {
	groups  []group[V]
	n       uint64 // logical bucket count
	size    uint64
	deleted uint64 // live tombstones across all groups

	maxLoadFactor float64
	loadThreshold uint64

	growth  GrowthPolicy
	probing Probing
	offset  func(uint64) uint64

	width int
	// safety records the caller's requested ExceptionSafety but is
	// otherwise inert: the Go allocator always errors out of a failed
	// set before any partial write, so a group is already left
	// bit-for-bit unchanged on failure regardless of this setting. See
	// SPEC_FULL.md section 4.2.
	safety ExceptionSafety

	hash  func(K) uint64
	equal func(a, b K) bool
	keyOf func(V) K
	alloc Allocator[V]

	initialBucketCount uint64
}

// New constructs a Table. keyOf extracts the comparison key from a stored
// value; for a set-like facade it is the identity, for a map-like facade
// it projects the key field out of a key/value pair (the facade's key selector).
func New[K comparable, V any](keyOf func(V) K, opts ...Option[K, V]) *Table[K, V] {
	t := &Table[K, V]{
		maxLoadFactor: 0.5,
		growth:        powerOfTwoPolicy{},
		probing:       ProbeLinear,
		width:         int(SparsityHigh),
		safety:        SafetyBasic,
		keyOf:         keyOf,
		alloc:         defaultAllocator[V]{},
		equal:         func(a, b K) bool { return a == b },
	}
	seed := maphash.MakeSeed()
	t.hash = func(k K) uint64 { return maphash.Comparable(seed, k) }

	for _, opt := range opts {
		opt.apply(t)
	}

	if t.probing == ProbeQuadratic && !t.growth.IsPowerOfTwoCapable() {
		contractViolation("quadratic probing requires a power-of-two growth policy")
	}
	t.offset = probeOffset(t.probing)

	n := t.growth.MinBucketCount(t.initialBucketCount)
	t.resetGroups(n)
	return t
}

func (t *Table[K, V]) groupCount(n uint64) int {
	return int((n + uint64(t.width) - 1) / uint64(t.width))
}

// resetGroups allocates a fresh, fully empty group vector sized for n
// logical buckets and installs it as the table's storage, updating n and
// loadThreshold. It does not touch size or existing data; callers either
// call it on a brand-new table or after having migrated live data out.
func (t *Table[K, V]) resetGroups(n uint64) {
	gc := t.groupCount(n)
	groups := make([]group[V], gc)
	if gc > 0 {
		groups[gc-1].isLast = true
	}
	t.groups = groups
	t.n = n
	t.loadThreshold = uint64(math.Floor(float64(n) * t.maxLoadFactor))
}

func (t *Table[K, V]) addressOf(b uint64) (groupIdx, slot int) {
	return int(b) / t.width, int(b) % t.width
}

// Len returns the number of live entries.
func (t *Table[K, V]) Len() int { return int(t.size) }

// BucketCount returns the logical bucket count N.
func (t *Table[K, V]) BucketCount() int { return int(t.n) }

// LoadFactor returns size / bucket_count.
func (t *Table[K, V]) LoadFactor() float64 {
	if t.n == 0 {
		return 0
	}
	return float64(t.size) / float64(t.n)
}

// MaxLoadFactor returns the configured maximum load factor.
func (t *Table[K, V]) MaxLoadFactor() float64 { return t.maxLoadFactor }

// SetMaxLoadFactor updates the maximum load factor and recomputes
// load_threshold; lf must be in (0, 1].
func (t *Table[K, V]) SetMaxLoadFactor(lf float64) error {
	if lf <= 0 || lf > 1 {
		return ErrInvalidLoadFactor
	}
	t.maxLoadFactor = lf
	t.loadThreshold = uint64(math.Floor(float64(t.n) * lf))
	return nil
}

// Find walks the probe sequence for key, returning the live position if
// found. A deleted (tombstoned) slot never matches but does not terminate
// the walk, per the table's lazy-deletion scheme.
func (t *Table[K, V]) Find(key K) (Position, bool) {
	if t.n == 0 {
		return Position{}, false
	}
	h := t.hash(key)
	seq := makeProbeSeq(t.offset, t.growth.IndexForHash(h, t.n), t.n)
	for {
		gi, slot := t.addressOf(seq.bucket())
		g := &t.groups[gi]
		if g.has(slot) {
			if v := g.get(slot); t.equal(t.keyOf(*v), key) {
				return Position{group: gi, slot: slot, valid: true}, true
			}
		} else if !g.isDeleted(slot) {
			return Position{}, false
		}
		if seq.next() {
			return Position{}, false
		}
	}
}

// At dereferences a Position previously returned by Insert or Find. The
// Position must still be valid (no intervening rehash or same-group
// buffer reallocation); violating this is undefined.
func (t *Table[K, V]) At(pos Position) *V {
	return t.groups[pos.group].get(pos.slot)
}

// AtKey returns a pointer to the value stored for key, or ErrKeyAbsent if
// key is not present (the "demands presence" lookup form).
func (t *Table[K, V]) AtKey(key K) (*V, error) {
	pos, ok := t.Find(key)
	if !ok {
		return nil, ErrKeyAbsent
	}
	return t.At(pos), nil
}

// Insert installs v, keyed by keyOf(v). If an equal key is already
// present, the existing entry's position is returned with inserted=false
// and v is discarded (matching the usual map insert semantics; callers wanting
// overwrite-on-conflict should Erase first or write through At on the
// returned position, as hashmap's Map.Put does).
//
// The rehash check counts tombstones alongside live entries: a workload
// that inserts fresh keys while erasing old ones can hold size well below
// loadThreshold while every probe chain still lengthens, so tombstones
// alone must also be able to trigger a rehash (which rebuilds every group
// tombstone-free) or a long-lived table eventually exhausts its probe
// sequence on valid input.
func (t *Table[K, V]) Insert(v V) (Position, bool, error) {
	key := t.keyOf(v)
	if t.size+t.deleted+1 > t.loadThreshold {
		if err := t.growFor(t.size + 1); err != nil {
			return Position{}, false, err
		}
	}

	h := t.hash(key)
	seq := makeProbeSeq(t.offset, t.growth.IndexForHash(h, t.n), t.n)

	var deletedPos Position
	haveDeleted := false

	for {
		gi, slot := t.addressOf(seq.bucket())
		g := &t.groups[gi]
		switch {
		case g.has(slot):
			if existing := g.get(slot); t.equal(t.keyOf(*existing), key) {
				return Position{group: gi, slot: slot, valid: true}, false, nil
			}
		case g.isDeleted(slot):
			if !haveDeleted {
				deletedPos = Position{group: gi, slot: slot, valid: true}
				haveDeleted = true
			}
		default:
			target := Position{group: gi, slot: slot, valid: true}
			if haveDeleted {
				target = deletedPos
			}
			tg := &t.groups[target.group]
			wasTombstone := tg.isDeleted(target.slot)
			if err := tg.set(t.alloc, t.width, target.slot, v); err != nil {
				return Position{}, false, err
			}
			t.size++
			if wasTombstone {
				t.deleted--
			}
			return target, true, nil
		}
		if seq.next() {
			contractViolation("probe sequence exhausted before finding a free or matching slot")
		}
	}
}

// Erase removes the entry at pos, leaving a tombstone behind so probe
// chains that pass through pos keep working.
func (t *Table[K, V]) Erase(pos Position) {
	t.groups[pos.group].erase(t.alloc, t.width, pos.slot)
	t.size--
	t.deleted++
}

// EraseKey removes the entry for key if present, returning 1 if an entry
// was removed and 0 otherwise. The core never stores duplicate keys, so
// the count is always 0 or 1.
func (t *Table[K, V]) EraseKey(key K) int {
	pos, ok := t.Find(key)
	if !ok {
		return 0
	}
	t.Erase(pos)
	return 1
}

// Clear destroys every live value and frees every group's buffer,
// leaving bucket_count unchanged.
func (t *Table[K, V]) Clear() {
	for i := range t.groups {
		t.groups[i].clear(t.alloc)
	}
	t.size = 0
	t.deleted = 0
}

// Reserve ensures the table can hold n entries without triggering a
// rehash, picking the smallest bucket count N the growth policy can
// produce such that floor(N * max_load_factor) >= n.
func (t *Table[K, V]) Reserve(n int) error {
	if n <= int(t.size) && uint64(n) <= t.loadThreshold {
		return nil
	}
	target := t.bucketsNeededFor(uint64(n))
	if target <= t.n {
		return nil
	}
	return t.rehashTo(target)
}

// Rehash explicitly rehashes to at least n buckets (or, if n is smaller
// than the current population demands, to ceil(size/max_load_factor)
// rounded up by the growth policy — an explicit shrink).
func (t *Table[K, V]) Rehash(n int) error {
	target := t.bucketsNeededFor(t.size)
	if hinted := t.growth.MinBucketCount(uint64(n)); hinted > target {
		target = hinted
	}
	return t.rehashTo(target)
}

func (t *Table[K, V]) bucketsNeededFor(n uint64) uint64 {
	hint := uint64(math.Ceil(float64(n) / t.maxLoadFactor))
	candidate := t.growth.MinBucketCount(hint)
	for uint64(math.Floor(float64(candidate)*t.maxLoadFactor)) < n {
		candidate = t.growth.NextBucketCount(candidate)
	}
	return candidate
}

func (t *Table[K, V]) growFor(n uint64) error {
	return t.rehashTo(t.bucketsNeededFor(n))
}

// rehashTo reallocates a fresh group vector sized for newN buckets and
// moves every live entry into it, re-probing each under the table's
// current hash and growth policy. On allocator failure the partially
// built vector is torn down, leaving the table untouched.
func (t *Table[K, V]) rehashTo(newN uint64) error {
	gc := t.groupCount(newN)
	newGroups := make([]group[V], gc)
	if gc > 0 {
		newGroups[gc-1].isLast = true
	}

	for gi := range t.groups {
		g := &t.groups[gi]
		for slot := g.nextSet(0, t.width); slot >= 0; slot = g.nextSet(slot+1, t.width) {
			v := *g.get(slot)
			if err := t.uncheckedInsert(newGroups, newN, v); err != nil {
				for i := range newGroups {
					newGroups[i].clear(t.alloc)
				}
				return err
			}
		}
	}

	for i := range newGroups {
		if err := newGroups[i].shrinkToFit(t.alloc, t.width); err != nil {
			for j := range newGroups {
				newGroups[j].clear(t.alloc)
			}
			return err
		}
	}

	for i := range t.groups {
		t.groups[i].clear(t.alloc)
	}

	t.groups = newGroups
	t.n = newN
	t.loadThreshold = uint64(math.Floor(float64(newN) * t.maxLoadFactor))
	t.deleted = 0
	return nil
}

// uncheckedInsert places v into groups (sized for n buckets) at the first
// free slot its probe sequence reaches. It must only be used with a group
// vector known not to already contain v's key, i.e. during rehash.
func (t *Table[K, V]) uncheckedInsert(groups []group[V], n uint64, v V) error {
	h := t.hash(t.keyOf(v))
	seq := makeProbeSeq(t.offset, t.growth.IndexForHash(h, n), n)
	for {
		gi, slot := int(seq.bucket())/t.width, int(seq.bucket())%t.width
		g := &groups[gi]
		if g.isFree(slot) {
			return g.set(t.alloc, t.width, slot, v)
		}
		if seq.next() {
			contractViolation("rehash probe sequence exhausted before finding a free slot")
		}
	}
}

// compact builds a fresh group vector, sized like t's current groups but
// with every tombstone cleared, holding the same live entries re-probed
// under t's hash. It never mutates t. Save uses this instead of dumping
// t.groups directly: the wire format carries only an occupancy bitmap per
// group, no deleted bits, so a live key whose slot position depends on a
// tombstone earlier in its probe chain would otherwise land on a
// different (or missing) slot once that tombstone is gone from the
// restored table.
func (t *Table[K, V]) compact() ([]group[V], error) {
	gc := t.groupCount(t.n)
	newGroups := make([]group[V], gc)
	if gc > 0 {
		newGroups[gc-1].isLast = true
	}

	for gi := range t.groups {
		g := &t.groups[gi]
		for slot := g.nextSet(0, t.width); slot >= 0; slot = g.nextSet(slot+1, t.width) {
			v := *g.get(slot)
			if err := t.uncheckedInsert(newGroups, t.n, v); err != nil {
				for i := range newGroups {
					newGroups[i].clear(t.alloc)
				}
				return nil, err
			}
		}
	}

	for i := range newGroups {
		if err := newGroups[i].shrinkToFit(t.alloc, t.width); err != nil {
			for j := range newGroups {
				newGroups[j].clear(t.alloc)
			}
			return nil, err
		}
	}
	return newGroups, nil
}

// Clone returns a deep copy of t. Every value is copied into freshly
// allocated group buffers obtained through t's own allocator, rather than
// sharing storage with t — the same explicit allocator threading that
// every group operation uses (see Allocator), applied to cloning.
func (t *Table[K, V]) Clone() (*Table[K, V], error) {
	out := &Table[K, V]{
		n:                  t.n,
		maxLoadFactor:      t.maxLoadFactor,
		loadThreshold:      t.loadThreshold,
		growth:             t.growth,
		probing:            t.probing,
		offset:             t.offset,
		width:              t.width,
		safety:             t.safety,
		hash:               t.hash,
		equal:              t.equal,
		keyOf:              t.keyOf,
		alloc:              t.alloc,
		initialBucketCount: t.initialBucketCount,
	}
	out.groups = make([]group[V], len(t.groups))
	for i := range t.groups {
		src := &t.groups[i]
		out.groups[i].isLast = src.isLast
		for slot := src.nextSet(0, t.width); slot >= 0; slot = src.nextSet(slot+1, t.width) {
			if err := out.groups[i].set(out.alloc, out.width, slot, *src.get(slot)); err != nil {
				for j := range out.groups {
					out.groups[j].clear(out.alloc)
				}
				return nil, err
			}
		}
		// set only clears deleted bits as slots go live; since Clone mirrors
		// src's group/slot layout exactly rather than re-probing, the
		// tombstones have to be copied too, or a live key whose probe chain
		// depends on one would come back unreachable in out.
		out.groups[i].deleted = src.deleted
	}
	out.size = t.size
	out.deleted = t.deleted
	return out, nil
}

// Swap exchanges the entire contents (groups, policies, traits) of t and
// other in O(1).
func (t *Table[K, V]) Swap(other *Table[K, V]) {
	*t, *other = *other, *t
}

// Equal reports whether t and other contain the same set of keys, each
// mapped to values considered equal by valueEqual. Table order never
// matters (insertion order is not preserved).
func (t *Table[K, V]) Equal(other *Table[K, V], valueEqual func(a, b V) bool) bool {
	if t.size != other.size {
		return false
	}
	for it := t.Begin(); !it.equalTo(t.End()); it.Next() {
		v := *it.Value()
		pos, ok := other.Find(t.keyOf(v))
		if !ok || !valueEqual(v, *other.At(pos)) {
			return false
		}
	}
	return true
}
