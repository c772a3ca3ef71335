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
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// gasCounterExport names the mutable i64 global that instrumented modules
// decrement as they run. It holds the gas left for the call.
const gasCounterExport = "__secret_gas_left"

var (
	wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	errTruncated = errors.New("truncated module")
)

const (
	sectionCustom   = 0
	sectionImport   = 2
	sectionGlobal   = 6
	sectionExport   = 7
	sectionElement  = 9
	sectionCode     = 10
	sectionData     = 11
	sectionDataCnt  = 12
	exportKindGlob  = 0x03
	importKindFunc  = 0x00
	importKindTable = 0x01
	importKindMem   = 0x02
	importKindGlob  = 0x03
	valTypeI64      = 0x7e
)

// wasmReader is a cursor over a binary module. The first out-of-bounds read
// sticks in err and every later read returns zero.
type wasmReader struct {
	b   []byte
	pos int
	err error
}

func (r *wasmReader) done() bool { return r.err != nil || r.pos >= len(r.b) }

func (r *wasmReader) byte() byte {
	if r.err != nil {
		return 0
	}
	if r.pos >= len(r.b) {
		r.err = errTruncated
		return 0
	}
	c := r.b[r.pos]
	r.pos++
	return c
}

func (r *wasmReader) skip(n int) {
	if r.err != nil {
		return
	}
	if n < 0 || len(r.b)-r.pos < n {
		r.err = errTruncated
		return
	}
	r.pos += n
}

func (r *wasmReader) u32() uint32 {
	var v uint64
	for shift := 0; shift < 35; shift += 7 {
		c := r.byte()
		if r.err != nil {
			return 0
		}
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			if v > math.MaxUint32 {
				r.err = errors.New("leb128 overflow")
				return 0
			}
			return uint32(v)
		}
	}
	r.err = errors.New("leb128 too long")
	return 0
}

// skipLEB skips a signed or unsigned LEB128 value of up to 64 bits.
func (r *wasmReader) skipLEB() {
	for i := 0; i < 10; i++ {
		if c := r.byte(); r.err != nil || c&0x80 == 0 {
			return
		}
	}
	r.err = errors.New("leb128 too long")
}

func (r *wasmReader) name() string {
	n := r.u32()
	start := r.pos
	r.skip(int(n))
	if r.err != nil {
		return ""
	}
	return string(r.b[start:r.pos])
}

func (r *wasmReader) limits() {
	flags := r.byte()
	r.skipLEB()
	if flags&0x01 != 0 {
		r.skipLEB()
	}
}

func appendU32(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendS64(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

type wasmSection struct {
	id      byte
	payload []byte
}

func readSections(code []byte) ([]wasmSection, error) {
	if !bytes.HasPrefix(code, wasmMagic) {
		return nil, errors.New("bad magic or version")
	}
	r := &wasmReader{b: code, pos: len(wasmMagic)}
	var sections []wasmSection
	for !r.done() {
		id := r.byte()
		size := r.u32()
		start := r.pos
		r.skip(int(size))
		if r.err != nil {
			return nil, r.err
		}
		sections = append(sections, wasmSection{id: id, payload: r.b[start:r.pos]})
	}
	return sections, r.err
}

// sectionRank orders known sections as the binary format requires; the
// data count section sits between element and code.
func sectionRank(id byte) int {
	switch id {
	case sectionDataCnt:
		return int(sectionElement) + 1
	case sectionCode, sectionData:
		return int(id) + 2
	}
	return int(id)
}

// instrumentGas rewrites a module so that it meters itself. A mutable i64
// global, exported as gasCounterExport, is decremented on every function
// entry and every loop iteration; when it drops below zero the guest traps
// with unreachable. Straight-line code is bounded by the module size, so
// every unbounded execution path passes a metering point.
func instrumentGas(code []byte) ([]byte, error) {
	sections, err := readSections(code)
	if err != nil {
		return nil, err
	}
	var importedGlobals, definedGlobals uint32
	for _, s := range sections {
		switch s.id {
		case sectionImport:
			if importedGlobals, err = countImportedGlobals(s.payload); err != nil {
				return nil, err
			}
		case sectionGlobal:
			r := &wasmReader{b: s.payload}
			definedGlobals = r.u32()
			if r.err != nil {
				return nil, r.err
			}
		}
	}
	counter := importedGlobals + definedGlobals

	// (global (mut i64) (i64.const 0))
	global := []byte{valTypeI64, 0x01, 0x42, 0x00, 0x0b}
	export := append(appendU32(nil, uint32(len(gasCounterExport))), gasCounterExport...)
	export = appendU32(append(export, exportKindGlob), counter)

	var out []wasmSection
	haveGlobal, haveExport := false, false
	insert := func(id byte, payload []byte) {
		out = append(out, wasmSection{id: id, payload: payload})
	}
	for _, s := range sections {
		if s.id != sectionCustom {
			if !haveGlobal && sectionRank(s.id) > sectionGlobal {
				insert(sectionGlobal, append([]byte{1}, global...))
				haveGlobal = true
			}
			if !haveExport && sectionRank(s.id) > sectionExport {
				insert(sectionExport, append([]byte{1}, export...))
				haveExport = true
			}
		}
		switch s.id {
		case sectionGlobal:
			insert(s.id, appendVecEntry(s.payload, definedGlobals, global))
			haveGlobal = true
		case sectionExport:
			payload, err := extendExports(s.payload, export, counter)
			if err != nil {
				return nil, err
			}
			insert(s.id, payload)
			haveExport = true
		case sectionCode:
			payload, err := instrumentCode(s.payload, counter)
			if err != nil {
				return nil, err
			}
			insert(s.id, payload)
		default:
			insert(s.id, s.payload)
		}
	}
	if !haveGlobal {
		insert(sectionGlobal, append([]byte{1}, global...))
	}
	if !haveExport {
		insert(sectionExport, append([]byte{1}, export...))
	}

	res := append([]byte(nil), wasmMagic...)
	for _, s := range out {
		res = append(res, s.id)
		res = appendU32(res, uint32(len(s.payload)))
		res = append(res, s.payload...)
	}
	return res, nil
}

// appendVecEntry adds one element to a vector section payload whose current
// length is n.
func appendVecEntry(payload []byte, n uint32, entry []byte) []byte {
	r := &wasmReader{b: payload}
	r.u32()
	out := appendU32(nil, n+1)
	out = append(out, payload[r.pos:]...)
	return append(out, entry...)
}

func countImportedGlobals(payload []byte) (uint32, error) {
	r := &wasmReader{b: payload}
	var globals uint32
	n := r.u32()
	for i := uint32(0); i < n && r.err == nil; i++ {
		r.name()
		r.name()
		switch kind := r.byte(); kind {
		case importKindFunc:
			r.skipLEB()
		case importKindTable:
			r.byte()
			r.limits()
		case importKindMem:
			r.limits()
		case importKindGlob:
			r.skip(2)
			globals++
		default:
			return 0, fmt.Errorf("unsupported import kind %#x", kind)
		}
	}
	return globals, r.err
}

// extendExports appends the counter export. A module may neither claim the
// counter's name nor export the counter's index itself.
func extendExports(payload, entry []byte, counter uint32) ([]byte, error) {
	r := &wasmReader{b: payload}
	n := r.u32()
	for i := uint32(0); i < n && r.err == nil; i++ {
		if r.name() == gasCounterExport {
			return nil, fmt.Errorf("reserved export %s", gasCounterExport)
		}
		kind := r.byte()
		if idx := r.u32(); kind == exportKindGlob && idx >= counter {
			return nil, fmt.Errorf("export of unknown global %d", idx)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return appendVecEntry(payload, n, entry), nil
}

func instrumentCode(payload []byte, counter uint32) ([]byte, error) {
	r := &wasmReader{b: payload}
	n := r.u32()
	out := appendU32(nil, n)
	for i := uint32(0); i < n; i++ {
		size := r.u32()
		start := r.pos
		r.skip(int(size))
		if r.err != nil {
			return nil, r.err
		}
		body, err := instrumentBody(r.b[start:r.pos], counter)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		out = appendU32(out, uint32(len(body)))
		out = append(out, body...)
	}
	if r.pos != len(r.b) {
		return nil, errors.New("trailing bytes in code section")
	}
	return out, nil
}

// meterCode charges cost against the counter global and traps once it is
// exhausted.
func meterCode(counter uint32, cost uint64) []byte {
	var b []byte
	b = appendU32(append(b, 0x23), counter) // global.get
	b = appendS64(append(b, 0x42), int64(cost))
	b = append(b, 0x7d)                     // i64.sub
	b = appendU32(append(b, 0x24), counter) // global.set
	b = appendU32(append(b, 0x23), counter)
	b = append(b, 0x42, 0x00, 0x53) // i64.const 0, i64.lt_s
	return append(b, 0x04, 0x40, 0x00, 0x0b)
}

func instrumentBody(body []byte, counter uint32) ([]byte, error) {
	r := &wasmReader{b: body}
	locals := r.u32()
	for i := uint32(0); i < locals && r.err == nil; i++ {
		r.u32()
		r.byte()
	}
	if r.err != nil {
		return nil, r.err
	}
	out := append([]byte(nil), body[:r.pos]...)
	out = append(out, meterCode(counter, GasPerFunctionCall)...)
	loop := meterCode(counter, GasPerLoopIteration)

	for !r.done() {
		start := r.pos
		op := r.byte()
		if err := skipImmediates(r, op, counter); err != nil {
			return nil, err
		}
		if r.err != nil {
			break
		}
		out = append(out, body[start:r.pos]...)
		if op == 0x03 {
			out = append(out, loop...)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return out, nil
}

// skipImmediates advances past the immediates of op. Instructions outside
// the MVP, bulk memory, reference types, sign extension and saturating
// truncation sets are refused.
func skipImmediates(r *wasmReader, op byte, counter uint32) error {
	switch {
	case op == 0x00, op == 0x01, op == 0x05, op == 0x0b, op == 0x0f, op == 0x1a, op == 0x1b, op == 0xd1:
	case op >= 0x45 && op <= 0xc4:
	case op == 0x02, op == 0x03, op == 0x04: // block type
		r.skipLEB()
	case op == 0x0c, op == 0x0d, op == 0x10:
		r.skipLEB()
	case op == 0x0e:
		n := r.u32()
		for i := uint64(0); i <= uint64(n) && r.err == nil; i++ {
			r.skipLEB()
		}
	case op == 0x11:
		r.skipLEB()
		r.skipLEB()
	case op == 0x1c:
		n := r.u32()
		r.skip(int(n))
	case op >= 0x20 && op <= 0x22, op == 0x25, op == 0x26:
		r.skipLEB()
	case op == 0x23, op == 0x24:
		if idx := r.u32(); r.err == nil && idx >= counter {
			return fmt.Errorf("access to unknown global %d", idx)
		}
	case op >= 0x28 && op <= 0x3e:
		r.skipLEB()
		r.skipLEB()
	case op == 0x3f, op == 0x40, op == 0x41, op == 0x42, op == 0xd2:
		r.skipLEB()
	case op == 0x43:
		r.skip(4)
	case op == 0x44:
		r.skip(8)
	case op == 0xd0:
		r.byte()
	case op == 0xfc:
		switch sub := r.u32(); {
		case sub <= 7:
		case sub == 9, sub == 11, sub == 13, sub == 15, sub == 16, sub == 17:
			r.skipLEB()
		case sub == 8, sub == 10, sub == 12, sub == 14:
			r.skipLEB()
			r.skipLEB()
		default:
			return fmt.Errorf("unsupported instruction 0xfc %d", sub)
		}
	default:
		return fmt.Errorf("unsupported instruction %#x", op)
	}
	return nil
}

// guestMeter keeps the instrumented counter global and the call's GasState
// in step.
type guestMeter struct {
	counter api.MutableGlobal
	synced  uint64 // last value written to counter
}

// sync charges what the guest burnt since the previous sync and publishes
// the gas left. A negative counter means the guest overran its budget.
func (m *guestMeter) sync(gas *GasState) error {
	left := int64(m.counter.Get())
	var burnt uint64
	switch {
	case left < 0:
		burnt = m.synced + uint64(-left)
	case uint64(left) < m.synced:
		burnt = m.synced - uint64(left)
	}
	err := gas.ChargeGuest(burnt)
	remaining := gas.Remaining()
	if remaining > math.MaxInt64 {
		remaining = math.MaxInt64
	}
	m.counter.Set(remaining)
	m.synced = remaining
	return err
}
