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
	"fmt"
)

// RegionSize is the encoded size of a Region in guest memory.
const RegionSize = 12

// Length limits for buffers read from the guest.
const (
	MaxKeyLength      = 64 * 1024
	MaxValueLength    = 128 * 1024
	MaxAddressLength  = 256
	MaxQueryLength    = 64 * 1024
	MaxCryptoLength   = 64 * 1024
	MaxDebugLength    = 2 * 1024
	MaxResultLength   = 1 << 20
	maxBatchItems     = 256
	sectionLengthSize = 4
)

// Region describes a buffer in guest linear memory: three little-endian
// uint32 words.
type Region struct {
	Offset   uint32
	Capacity uint32
	Length   uint32
}

// Memory is the subset of a guest linear memory the accessor needs.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// Allocator reserves size bytes in the guest and returns a Region pointer.
type Allocator func(ctx context.Context, size uint32) (uint32, error)

// guestMemory is the only code that touches guest memory. Every pointer is
// bounds checked here before use; nothing outside this type sees raw offsets.
type guestMemory struct {
	mem   Memory
	alloc Allocator
}

func (g *guestMemory) region(ptr uint32) (Region, error) {
	if ptr == 0 {
		return Region{}, ErrNullPointer
	}
	raw, ok := g.mem.Read(ptr, RegionSize)
	if !ok {
		return Region{}, fmt.Errorf("%w: region header at %d", ErrRegionOutOfBounds, ptr)
	}
	r := Region{
		Offset:   binary.LittleEndian.Uint32(raw[0:4]),
		Capacity: binary.LittleEndian.Uint32(raw[4:8]),
		Length:   binary.LittleEndian.Uint32(raw[8:12]),
	}
	if r.Offset == 0 {
		return r, ErrNullPointer
	}
	if r.Length > r.Capacity {
		return r, fmt.Errorf("%w: length %d, capacity %d", ErrRegionInvalid, r.Length, r.Capacity)
	}
	if uint64(r.Offset)+uint64(r.Capacity) > uint64(g.mem.Size()) {
		return r, fmt.Errorf("%w: [%d, +%d) of %d", ErrRegionOutOfBounds, r.Offset, r.Capacity, g.mem.Size())
	}
	return r, nil
}

// read copies the region's contents out of guest memory.
func (g *guestMemory) read(ptr uint32, maxLen uint32) ([]byte, error) {
	r, err := g.region(ptr)
	if err != nil {
		return nil, err
	}
	if r.Length > maxLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrRegionTooLarge, r.Length, maxLen)
	}
	data, ok := g.mem.Read(r.Offset, r.Length)
	if !ok {
		return nil, fmt.Errorf("%w: data at %d", ErrRegionOutOfBounds, r.Offset)
	}
	return append([]byte(nil), data...), nil
}

// write stores data into an existing region and updates its length.
func (g *guestMemory) write(ptr uint32, data []byte) error {
	r, err := g.region(ptr)
	if err != nil {
		return err
	}
	if uint64(len(data)) > uint64(r.Capacity) {
		return fmt.Errorf("%w: %d > %d", ErrRegionTooSmall, len(data), r.Capacity)
	}
	if !g.mem.Write(r.Offset, data) {
		return fmt.Errorf("%w: data at %d", ErrRegionOutOfBounds, r.Offset)
	}
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(data)))
	if !g.mem.Write(ptr+8, length[:]) {
		return fmt.Errorf("%w: region header at %d", ErrRegionOutOfBounds, ptr)
	}
	return nil
}

// store allocates a fresh region in the guest and fills it.
func (g *guestMemory) store(ctx context.Context, data []byte) (uint32, error) {
	if g.alloc == nil {
		return 0, ErrAllocation
	}
	ptr, err := g.alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if err := g.write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

// decodeSections splits the batch encoding used by the guest for lists of
// byte slices: each element followed by its big-endian uint32 length.
func decodeSections(data []byte) ([][]byte, error) {
	var out [][]byte
	for len(data) > 0 {
		if len(data) < sectionLengthSize {
			return nil, fmt.Errorf("%w: truncated section length", ErrRegionInvalid)
		}
		n := binary.BigEndian.Uint32(data[len(data)-sectionLengthSize:])
		data = data[:len(data)-sectionLengthSize]
		if uint64(n) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: section length %d", ErrRegionInvalid, n)
		}
		out = append(out, data[len(data)-int(n):])
		data = data[:len(data)-int(n)]
		if len(out) > maxBatchItems {
			return nil, fmt.Errorf("%w: more than %d sections", ErrRegionTooLarge, maxBatchItems)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// encodeSections is the inverse of decodeSections.
func encodeSections(items [][]byte) []byte {
	var out []byte
	for _, item := range items {
		out = append(out, item...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(item)))
	}
	return out
}
