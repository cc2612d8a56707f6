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

package hashmap

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tsl-go/sparsehash"
)

type int64Codec struct{}

func (int64Codec) Encode(w io.Writer, v int) error {
	return binary.Write(w, binary.LittleEndian, int64(v))
}

func (int64Codec) Decode(r io.Reader) (int, error) {
	var v int64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return int(v), nil
}

func TestMapPutGetDeleteLen(t *testing.T) {
	m := New[int, int]()
	e := make(map[int]int)

	for i := 0; i < 100; i++ {
		m.Put(i, i+100)
		e[i] = i + 100
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i+100, v)
		require.Equal(t, i+1, m.Len())
	}

	for i := 0; i < 100; i++ {
		m.Put(i, i+200)
		e[i] = i + 200
	}
	require.Equal(t, 100, m.Len())
	for i := 0; i < 100; i++ {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i+200, v)
	}

	for i := 0; i < 100; i++ {
		require.True(t, m.Delete(i))
		_, ok := m.Get(i)
		require.False(t, ok)
	}
	require.Equal(t, 0, m.Len())
}

func TestMapAt(t *testing.T) {
	m := New[string, int]()
	m.Put("x", 42)
	v, err := m.At("x")
	require.NoError(t, err)
	require.Equal(t, 42, v)

	_, err = m.At("missing")
	require.ErrorIs(t, err, sparsehash.ErrKeyAbsent)
}

func TestMapEach(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 20; i++ {
		m.Put(i, i*i)
	}
	seen := make(map[int]int)
	m.Each(func(k, v int) bool {
		seen[k] = v
		return true
	})
	require.Len(t, seen, 20)
	for k, v := range seen {
		require.Equal(t, k*k, v)
	}
}

func TestMapEqual(t *testing.T) {
	a := New[string, int]()
	b := New[string, int]()
	for _, k := range []string{"a", "b", "c"} {
		a.Put(k, len(k))
		b.Put(k, len(k))
	}
	valueEqual := func(x, y int) bool { return x == y }
	require.True(t, a.Equal(b, valueEqual))

	b.Put("d", 1)
	require.False(t, a.Equal(b, valueEqual))
}

func TestMapSaveLoadFast(t *testing.T) {
	opt := sparsehash.WithHash[int, entry[int, int]](func(k int) uint64 { return uint64(k) })
	m := New[int, int](opt)
	for i := 0; i < 300; i++ {
		m.Put(i, i*2)
	}
	for i := 0; i < 300; i += 3 {
		m.Delete(i)
	}

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf, int64Codec{}, int64Codec{}, 11))

	loaded, err := LoadFast[int, int](&buf, int64Codec{}, int64Codec{}, opt)
	require.NoError(t, err)
	require.True(t, m.Equal(loaded, func(a, b int) bool { return a == b }))
}

func TestMapSaveLoadSafeAcrossHashes(t *testing.T) {
	m := New[int, string]()
	m.Put(1, "one")
	m.Put(2, "two")
	m.Put(3, "three")

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf, int64Codec{}, stringCodec{}, 3))

	loaded, err := LoadSafe[int, string](&buf, int64Codec{}, stringCodec{},
		sparsehash.WithHash[int, entry[int, string]](func(k int) uint64 { return uint64(k) * 7 }))
	require.NoError(t, err)
	require.Equal(t, m.Len(), loaded.Len())
	for _, k := range []int{1, 2, 3} {
		v, ok := loaded.Get(k)
		require.True(t, ok)
		want, _ := m.Get(k)
		require.Equal(t, want, v)
	}
}

type stringCodec struct{}

func (stringCodec) Encode(w io.Writer, v string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(v))); err != nil {
		return err
	}
	_, err := w.Write([]byte(v))
	return err
}

func (stringCodec) Decode(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
