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
	"encoding/binary"
	"fmt"
	"io"
)

// ValueCodec serializes and deserializes individual stored values, so
// that the table's byte format stays host-endian-independent
// without the core needing to know anything about V's shape.
type ValueCodec[V any] interface {
	Encode(w io.Writer, v V) error
	Decode(r io.Reader) (V, error)
}

const (
	streamMagic   uint32 = 0x54485053 // "SPHT" little-endian on the wire
	streamVersion uint32 = 1

	policyPowerOfTwo uint8 = 0
	policyPrime      uint8 = 1
	policyMod        uint8 = 2
)

func policyCodeOf(g GrowthPolicy) (uint8, error) {
	switch g.(type) {
	case powerOfTwoPolicy:
		return policyPowerOfTwo, nil
	case primePolicy:
		return policyPrime, nil
	case modPolicy:
		return policyMod, nil
	default:
		return 0, fmt.Errorf("sparsehash: policy %T has no wire code", g)
	}
}

func writeU32(w io.Writer, v uint32) error { return binary.Write(w, binary.LittleEndian, v) }
func writeU64(w io.Writer, v uint64) error { return binary.Write(w, binary.LittleEndian, v) }
func writeU8(w io.Writer, v uint8) error   { return binary.Write(w, binary.LittleEndian, v) }
func writeF32(w io.Writer, v float32) error { return binary.Write(w, binary.LittleEndian, v) }

func readU32(r io.Reader) (uint32, error) { var v uint32; err := binary.Read(r, binary.LittleEndian, &v); return v, err }
func readU64(r io.Reader) (uint64, error) { var v uint64; err := binary.Read(r, binary.LittleEndian, &v); return v, err }
func readU8(r io.Reader) (uint8, error)   { var v uint8; err := binary.Read(r, binary.LittleEndian, &v); return v, err }
func readF32(r io.Reader) (float32, error) { var v float32; err := binary.Read(r, binary.LittleEndian, &v); return v, err }

// Save writes t's full state in the table's wire format. hashID is an opaque
// caller-chosen fingerprint of the Hash+Eq+policy identity in effect,
// round-tripped but never interpreted by the codec itself.
//
// The dumped group layout is always tombstone-free: the wire format has
// no room for deleted bits, so Save first compacts t's live entries into
// a fresh, equivalent group vector (same bucket count, same hash) rather
// than walking t.groups as they stand. Without this, a live key whose
// slot depends on a tombstone earlier in its probe chain would come back
// unreachable after LoadFast, which trusts the dumped layout byte for
// byte and never re-probes.
func Save[K comparable, V any](w io.Writer, t *Table[K, V], codec ValueCodec[V], hashID uint64) error {
	policyCode, err := policyCodeOf(t.growth)
	if err != nil {
		return err
	}

	groups, err := t.compact()
	if err != nil {
		return err
	}
	defer func() {
		for i := range groups {
			groups[i].clear(t.alloc)
		}
	}()

	if err := writeU32(w, streamMagic); err != nil {
		return err
	}
	if err := writeU32(w, streamVersion); err != nil {
		return err
	}
	if err := writeU64(w, hashID); err != nil {
		return err
	}
	if err := writeU8(w, policyCode); err != nil {
		return err
	}
	if policyCode == policyMod {
		mp := t.growth.(modPolicy)
		if err := writeU32(w, uint32(mp.Num)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(mp.Den)); err != nil {
			return err
		}
	}
	if err := writeU64(w, t.n); err != nil {
		return err
	}
	if err := writeU8(w, uint8(t.width)); err != nil {
		return err
	}
	gc := uint64(len(groups))
	if err := writeU64(w, gc); err != nil {
		return err
	}
	if err := writeF32(w, float32(t.maxLoadFactor)); err != nil {
		return err
	}
	if err := writeU64(w, t.size); err != nil {
		return err
	}

	bitmapBytes := (t.width + 7) / 8
	for i := range groups {
		g := &groups[i]
		buf := make([]byte, bitmapBytes)
		for b := 0; b < bitmapBytes; b++ {
			word := b / 8
			shift := uint((b % 8) * 8)
			buf[b] = byte(g.bitmap[word] >> shift)
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
		for slot := g.nextSet(0, t.width); slot >= 0; slot = g.nextSet(slot+1, t.width) {
			if err := codec.Encode(w, *g.get(slot)); err != nil {
				return &ValueCodecError{Err: err}
			}
		}
	}
	return nil
}

type streamHeader struct {
	hashID     uint64
	policyCode uint8
	modNum     uint32
	modDen     uint32
	n          uint64
	width      int
	groupCount uint64
	maxLF      float64
	size       uint64
}

func readHeader(r io.Reader) (streamHeader, error) {
	var h streamHeader
	magic, err := readU32(r)
	if err != nil {
		return h, ErrCorruptStream
	}
	if magic != streamMagic {
		return h, ErrCorruptStream
	}
	version, err := readU32(r)
	if err != nil || version != streamVersion {
		return h, ErrCorruptStream
	}
	if h.hashID, err = readU64(r); err != nil {
		return h, ErrCorruptStream
	}
	if h.policyCode, err = readU8(r); err != nil {
		return h, ErrCorruptStream
	}
	if h.policyCode == policyMod {
		if h.modNum, err = readU32(r); err != nil {
			return h, ErrCorruptStream
		}
		if h.modDen, err = readU32(r); err != nil {
			return h, ErrCorruptStream
		}
	}
	if h.n, err = readU64(r); err != nil {
		return h, ErrCorruptStream
	}
	w8, err := readU8(r)
	if err != nil {
		return h, ErrCorruptStream
	}
	h.width = int(w8)
	if h.groupCount, err = readU64(r); err != nil {
		return h, ErrCorruptStream
	}
	lf, err := readF32(r)
	if err != nil {
		return h, ErrCorruptStream
	}
	h.maxLF = float64(lf)
	if h.size, err = readU64(r); err != nil {
		return h, ErrCorruptStream
	}
	return h, nil
}

func policyFromHeader(h streamHeader) (GrowthPolicy, error) {
	switch h.policyCode {
	case policyPowerOfTwo:
		return powerOfTwoPolicy{}, nil
	case policyPrime:
		return primePolicy{}, nil
	case policyMod:
		return modPolicy{Num: uint64(h.modNum), Den: uint64(h.modDen)}, nil
	default:
		return nil, ErrIncompatibleSchema
	}
}

// LoadFast deserializes a table written by Save, trusting the stored
// layout byte-for-byte and skipping any rehashing ("hash_compatible =
// true"). It relies on Save having already compacted away tombstones, so
// the occupancy bitmap alone is enough to reconstruct a table on which
// every live key's probe chain still terminates correctly. The caller's
// hash/equal/allocator options are honored for subsequent operations,
// but must match what was used at write time or later Finds will not
// locate the restored entries.
func LoadFast[K comparable, V any](r io.Reader, codec ValueCodec[V], keyOf func(V) K, opts ...Option[K, V]) (*Table[K, V], error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	policy, err := policyFromHeader(h)
	if err != nil {
		return nil, err
	}

	fullOpts := append([]Option[K, V]{
		WithGrowthPolicy[K, V](policy),
		WithSparsity[K, V](Sparsity(h.width)),
		WithMaxLoadFactor[K, V](h.maxLF),
	}, opts...)
	t := New[K, V](keyOf, fullOpts...)
	t.resetGroups(h.n)

	if uint64(len(t.groups)) != h.groupCount {
		return nil, ErrCorruptStream
	}

	bitmapBytes := (h.width + 7) / 8
	for i := range t.groups {
		g := &t.groups[i]
		buf := make([]byte, bitmapBytes)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ErrCorruptStream
		}
		for b := 0; b < bitmapBytes; b++ {
			word := b / 8
			shift := uint((b % 8) * 8)
			g.bitmap[word] |= uint64(buf[b]) << shift
		}
		pc := g.bitmap.popcount(h.width)
		if pc == 0 {
			continue
		}
		newBuf, err := t.alloc.AllocValues(pc)
		if err != nil {
			return nil, err
		}
		g.buf = newBuf
		g.cap = pc
		k := 0
		for slot := g.nextSet(0, h.width); slot >= 0; slot = g.nextSet(slot+1, h.width) {
			v, err := codec.Decode(r)
			if err != nil {
				return nil, &ValueCodecError{Err: err}
			}
			*g.buf.At(k) = v
			k++
		}
	}
	t.size = h.size
	if uint64(t.realPopcount()) != h.size {
		return nil, ErrCorruptStream
	}
	return t, nil
}

func (t *Table[K, V]) realPopcount() int {
	total := 0
	for i := range t.groups {
		total += t.groups[i].popcount(t.width)
	}
	return total
}

// LoadSafe deserializes a table written by Save by materializing every
// stored value and Insert-ing it into a freshly built table under the
// caller's current hash/equal/policy options. It is correct even when
// the loader's hash function differs from the writer's.
func LoadSafe[K comparable, V any](r io.Reader, codec ValueCodec[V], keyOf func(V) K, opts ...Option[K, V]) (*Table[K, V], error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	values := make([]V, 0, h.size)
	bitmapBytes := (h.width + 7) / 8
	for g := uint64(0); g < h.groupCount; g++ {
		buf := make([]byte, bitmapBytes)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ErrCorruptStream
		}
		var bm bitmapWords
		for b := 0; b < bitmapBytes; b++ {
			word := b / 8
			shift := uint((b % 8) * 8)
			bm[word] |= uint64(buf[b]) << shift
		}
		for slot := bm.nextSet(0, h.width); slot >= 0; slot = bm.nextSet(slot+1, h.width) {
			v, err := codec.Decode(r)
			if err != nil {
				return nil, &ValueCodecError{Err: err}
			}
			values = append(values, v)
		}
	}

	t := New[K, V](keyOf, opts...)
	if err := t.Reserve(len(values)); err != nil {
		return nil, err
	}
	for _, v := range values {
		if _, _, err := t.Insert(v); err != nil {
			return nil, err
		}
	}
	if uint64(t.size) != h.size {
		return nil, ErrCorruptStream
	}
	return t, nil
}

// Header is the exported, codec-independent view of a stream's header,
// for diagnostic tools (cmd/sparsehashdump) that want to report on a
// persisted table without knowing how to decode V.
type Header struct {
	HashID        uint64
	PolicyCode    uint8
	ModNum        uint32
	ModDen        uint32
	N             uint64
	Width         int
	GroupCount    uint64
	MaxLoadFactor float64
	Size          uint64
}

// InspectHeader reads and returns a stream's header without touching any
// group data, leaving r positioned at the start of the first group's
// bitmap.
func InspectHeader(r io.Reader) (Header, error) {
	h, err := readHeader(r)
	if err != nil {
		return Header{}, err
	}
	return Header{
		HashID:        h.hashID,
		PolicyCode:    h.policyCode,
		ModNum:        h.modNum,
		ModDen:        h.modDen,
		N:             h.n,
		Width:         h.width,
		GroupCount:    h.groupCount,
		MaxLoadFactor: h.maxLF,
		Size:          h.size,
	}, nil
}

// GroupStat reports one group's occupancy, as found by InspectGroups.
type GroupStat struct {
	Index int
	Live  int
}

// InspectGroups walks every group's bitmap following a Header read by
// InspectHeader, reporting each group's live-slot count. It requires
// valueSize, the fixed on-wire byte size of one encoded value, in order
// to skip over value payloads it cannot otherwise decode; it therefore
// cannot be used against streams written with a variable-length
// ValueCodec (e.g. one encoding strings or slices).
func InspectGroups(r io.Reader, h Header, valueSize int) ([]GroupStat, error) {
	bitmapBytes := (h.Width + 7) / 8
	stats := make([]GroupStat, 0, h.GroupCount)
	skip := make([]byte, valueSize)
	for gi := uint64(0); gi < h.GroupCount; gi++ {
		buf := make([]byte, bitmapBytes)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, ErrCorruptStream
		}
		var bm bitmapWords
		for b := 0; b < bitmapBytes; b++ {
			word := b / 8
			shift := uint((b % 8) * 8)
			bm[word] |= uint64(buf[b]) << shift
		}
		live := bm.popcount(h.Width)
		for i := 0; i < live; i++ {
			if valueSize == 0 {
				continue
			}
			if _, err := io.ReadFull(r, skip); err != nil {
				return nil, ErrCorruptStream
			}
		}
		stats = append(stats, GroupStat{Index: int(gi), Live: live})
	}
	return stats, nil
}

// WriteTo mirrors the io.WriterTo spelling of Save (with extra
// parameters for codec and hashID, so it does not literally satisfy
// io.WriterTo); it delegates to Save using codec as the table's value
// codec.
func (t *Table[K, V]) WriteTo(w io.Writer, codec ValueCodec[V], hashID uint64) (int64, error) {
	cw := &countingWriter{w: w}
	err := Save(cw, t, codec, hashID)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
