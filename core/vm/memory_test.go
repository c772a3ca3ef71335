// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemory []byte

func newFakeMemory(size int) *fakeMemory {
	m := make(fakeMemory, size)
	return &m
}

func (m *fakeMemory) Size() uint32 { return uint32(len(*m)) }

func (m *fakeMemory) Read(offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(*m)) {
		return nil, false
	}
	return (*m)[offset : offset+n], true
}

func (m *fakeMemory) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(*m)) {
		return false
	}
	copy((*m)[offset:], v)
	return true
}

func (m *fakeMemory) putRegion(ptr uint32, r Region) {
	binary.LittleEndian.PutUint32((*m)[ptr:], r.Offset)
	binary.LittleEndian.PutUint32((*m)[ptr+4:], r.Capacity)
	binary.LittleEndian.PutUint32((*m)[ptr+8:], r.Length)
}

func TestRegionValidation(t *testing.T) {
	tests := []struct {
		name   string
		ptr    uint32
		region Region
		want   error
	}{
		{"null pointer", 0, Region{}, ErrNullPointer},
		{"null offset", 8, Region{Offset: 0, Capacity: 4}, ErrNullPointer},
		{"length over capacity", 8, Region{Offset: 32, Capacity: 4, Length: 5}, ErrRegionInvalid},
		{"data out of bounds", 8, Region{Offset: 60, Capacity: 8}, ErrRegionOutOfBounds},
		{"capacity overflow", 8, Region{Offset: 32, Capacity: 0xffffffff}, ErrRegionOutOfBounds},
		{"header out of bounds", 60, Region{}, ErrRegionOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newFakeMemory(64)
			if tt.ptr != 0 && tt.ptr+RegionSize <= 64 {
				mem.putRegion(tt.ptr, tt.region)
			}
			g := &guestMemory{mem: mem}
			_, err := g.read(tt.ptr, 1024)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegionReadWrite(t *testing.T) {
	mem := newFakeMemory(128)
	mem.putRegion(8, Region{Offset: 64, Capacity: 16})
	g := &guestMemory{mem: mem}

	require.NoError(t, g.write(8, []byte("hello")))
	got, err := g.read(8, 1024)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	// The returned slice is a copy.
	got[0] = 'j'
	again, _ := g.read(8, 1024)
	assert.Equal(t, "hello", string(again))

	_, err = g.read(8, 4)
	require.ErrorIs(t, err, ErrRegionTooLarge)
	require.ErrorIs(t, g.write(8, make([]byte, 17)), ErrRegionTooSmall)
}

func TestStoreAllocates(t *testing.T) {
	mem := newFakeMemory(256)
	next := uint32(16)
	g := &guestMemory{mem: mem, alloc: func(_ context.Context, size uint32) (uint32, error) {
		ptr := next
		mem.putRegion(ptr, Region{Offset: ptr + RegionSize, Capacity: size})
		next += RegionSize + size
		return ptr, nil
	}}
	ptr, err := g.store(context.Background(), []byte("payload"))
	require.NoError(t, err)
	got, err := g.read(ptr, 1024)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	_, err = (&guestMemory{mem: mem}).store(context.Background(), nil)
	require.ErrorIs(t, err, ErrAllocation)
}

func TestSections(t *testing.T) {
	items := [][]byte{[]byte("a"), {}, []byte("third")}
	got, err := decodeSections(encodeSections(items))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range items {
		assert.Equal(t, string(items[i]), string(got[i]))
	}

	_, err = decodeSections([]byte{0, 1})
	require.ErrorIs(t, err, ErrRegionInvalid)
	_, err = decodeSections([]byte{'x', 0, 0, 0, 9})
	require.ErrorIs(t, err, ErrRegionInvalid)
}
