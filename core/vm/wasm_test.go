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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// The modules below are assembled by hand so the runtime can be tested
// without a compiler toolchain.

func leb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func section(id byte, items ...[]byte) []byte {
	body := concat(append([][]byte{leb(len(items))}, items...)...)
	return concat([]byte{id}, leb(len(body)), body)
}

func wasmName(s string) []byte { return concat(leb(len(s)), []byte(s)) }

func funcBody(code ...byte) []byte {
	body := append([]byte{0x00}, code...) // no locals
	return concat(leb(len(body)), body)
}

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

const (
	i32 = 0x7f
)

// echoModule exports allocate, memory, query (echoes msg), execute (writes
// env -> info to storage, returns msg), instantiate (traps) and the v1
// marker.
func echoModule(marker string) []byte {
	return echoModuleWithQuery(marker, funcBody(0x20, 1, 0x0b))
}

// echoModuleWithQuery is echoModule with query replaced by the given body.
func echoModuleWithQuery(marker string, query []byte) []byte {
	types := section(0x01,
		[]byte{0x60, 1, i32, 1, i32},           // 0 allocate
		[]byte{0x60, 2, i32, i32, 1, i32},      // 1 query
		[]byte{0x60, 3, i32, i32, i32, 1, i32}, // 2 execute, instantiate
		[]byte{0x60, 0, 0},                     // 3 marker
		[]byte{0x60, 2, i32, i32, 0},           // 4 db_write
	)
	imports := section(0x02, concat(wasmName("env"), wasmName("db_write"), []byte{0x00, 4}))
	funcs := section(0x03, []byte{0}, []byte{1}, []byte{2}, []byte{2}, []byte{3})
	memory := section(0x05, []byte{0x00, 0x01})
	globals := section(0x06, []byte{i32, 0x01, 0x41, 0x80, 0x08, 0x0b}) // mut i32 = 1024
	exports := section(0x07,
		concat(wasmName("allocate"), []byte{0x00, 1}),
		concat(wasmName("memory"), []byte{0x02, 0}),
		concat(wasmName("query"), []byte{0x00, 2}),
		concat(wasmName("execute"), []byte{0x00, 3}),
		concat(wasmName("instantiate"), []byte{0x00, 4}),
		concat(wasmName(marker), []byte{0x00, 5}),
	)
	allocate := funcBody(
		0x23, 0, // p
		0x23, 0, 0x41, 12, 0x6a, // p + 12
		0x36, 2, 0, // region.offset
		0x23, 0, 0x20, 0, 0x36, 2, 4, // region.capacity = size
		0x23, 0, 0x41, 0, 0x36, 2, 8, // region.length = 0
		0x23, 0, // result
		0x23, 0, 0x41, 12, 0x6a, 0x20, 0, 0x6a, 0x24, 0, // p += 12 + size
		0x0b,
	)
	execute := funcBody(0x20, 0, 0x20, 1, 0x10, 0, 0x20, 2, 0x0b)
	instantiate := funcBody(0x00, 0x0b)
	markerFn := funcBody(0x0b)
	code := section(0x0a, allocate, query, execute, instantiate, markerFn)
	return concat(wasmHeader, types, imports, funcs, memory, globals, exports, code)
}

func newTestRuntime(t *testing.T) *WasmRuntime {
	t.Helper()
	rt, err := NewWasmRuntime(context.Background(), DefaultWasmConfig())
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

func TestWasmRejectsModules(t *testing.T) {
	rt := newTestRuntime(t)
	evil := concat(wasmHeader,
		section(0x01, []byte{0x60, 0, 0}),
		section(0x02, concat(wasmName("env"), wasmName("evil"), []byte{0x00, 0})),
	)
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"garbage", []byte("definitely not wasm"), ErrInvalidModule},
		{"unknown import", evil, ErrUnknownImport},
		{"no exports", wasmHeader, ErrMissingExport},
		{"no version marker", echoModule("something_else"), ErrUnknownVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewHostBridge(testContext(OpQuery, 1_000_000))
			_, err := rt.Load(context.Background(), tt.code, b)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWasmEchoQuery(t *testing.T) {
	rt := newTestRuntime(t)
	cc := testContext(OpQuery, 1_000_000)
	inst, err := rt.Load(context.Background(), echoModule(MarkerV1), NewHostBridge(cc))
	require.NoError(t, err)
	defer inst.Close(context.Background())

	assert.Equal(t, Version1, inst.Version())
	assert.True(t, inst.Has(EntryQuery))
	assert.False(t, inst.Has(EntryReply))

	out, err := CallEntry(context.Background(), inst, EntryQuery, []byte(`{"env":1}`), []byte(`{"ping":{}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"ping":{}}`, string(out))
	assert.Greater(t, cc.Gas.UsedByGuest, uint64(0), "function entries are metered")

	_, err = CallEntry(context.Background(), inst, EntryReply)
	require.ErrorIs(t, err, ErrMissingEntryPoint)
}

func TestWasmWriteAuthorization(t *testing.T) {
	rt := newTestRuntime(t)

	query := testContext(OpQuery, 1_000_000)
	inst, err := rt.Load(context.Background(), echoModule(MarkerV1), NewHostBridge(query))
	require.NoError(t, err)
	_, err = inst.Call(context.Background(), EntryExecute, []byte("k"), []byte("v"), []byte("m"))
	require.ErrorIs(t, err, ErrUnauthorizedWrite)
	inst.Close(context.Background())

	exec := testContext(OpExecute, 1_000_000)
	inst, err = rt.Load(context.Background(), echoModule(MarkerV1), NewHostBridge(exec))
	require.NoError(t, err)
	defer inst.Close(context.Background())
	out, err := inst.Call(context.Background(), EntryExecute, []byte("k"), []byte("v"), []byte("m"))
	require.NoError(t, err)
	assert.Equal(t, "m", string(out))
	assert.Equal(t, "v", string(exec.Store.(mapStore)["k"]))
}

func TestWasmGuestTrap(t *testing.T) {
	rt := newTestRuntime(t)
	inst, err := rt.Load(context.Background(), echoModule(MarkerV1), NewHostBridge(testContext(OpInstantiate, 1_000_000)))
	require.NoError(t, err)
	defer inst.Close(context.Background())

	_, err = inst.Call(context.Background(), EntryInstantiate, []byte("{}"), []byte("{}"), []byte("{}"))
	require.ErrorIs(t, err, ErrGuestPanic)
	var p *PanicError
	require.ErrorAs(t, err, &p)
	assert.NotEmpty(t, p.Reason)
	assert.Equal(t, ErrGuestPanic.Error(), err.Error(), "trap text stays out of the error")
}

func TestWasmOutOfGas(t *testing.T) {
	rt := newTestRuntime(t)
	cc := testContext(OpQuery, GasPerFunctionCall+GasPerFunctionCall/2)
	inst, err := rt.Load(context.Background(), echoModule(MarkerV1), NewHostBridge(cc))
	require.NoError(t, err)
	defer inst.Close(context.Background())

	_, err = inst.Call(context.Background(), EntryQuery, []byte("{}"), []byte("{}"))
	require.ErrorIs(t, err, ErrOutOfGas)
	assert.Greater(t, cc.Gas.Used(), cc.Gas.Limit)
}

func TestWasmCompiledModuleCache(t *testing.T) {
	rt := newTestRuntime(t)
	code := echoModule(MarkerV010)
	for i := 0; i < 3; i++ {
		inst, err := rt.Load(context.Background(), code, NewHostBridge(testContext(OpQuery, 1_000_000)))
		require.NoError(t, err)
		assert.Equal(t, Version010, inst.Version())
		require.NoError(t, inst.Close(context.Background()))
	}
	assert.Equal(t, 1, rt.cache.Len())
}

func TestWasmConcurrentLoads(t *testing.T) {
	rt := newTestRuntime(t)
	code := echoModule(MarkerV1)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			cc := testContext(OpQuery, 1_000_000)
			inst, err := rt.Load(context.Background(), code, NewHostBridge(cc))
			if err != nil {
				return err
			}
			defer inst.Close(context.Background())
			_, err = CallEntry(context.Background(), inst, EntryQuery, []byte(`{}`), []byte(`{"ping":{}}`))
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, rt.cache.Len())
}

func TestWasmUnboundedLoopRunsOutOfGas(t *testing.T) {
	rt := newTestRuntime(t)
	// loop br 0 end; i32.const 0
	spin := funcBody(0x03, 0x40, 0x0c, 0x00, 0x0b, 0x41, 0x00, 0x0b)
	cc := testContext(OpQuery, 100_000)
	inst, err := rt.Load(context.Background(), echoModuleWithQuery(MarkerV1, spin), NewHostBridge(cc))
	require.NoError(t, err)
	defer inst.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	start := time.Now()
	_, err = inst.Call(ctx, EntryQuery, []byte("{}"), []byte("{}"))
	require.ErrorIs(t, err, ErrOutOfGas)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Greater(t, cc.Gas.Used(), cc.Gas.Limit)
	assert.Greater(t, cc.Gas.UsedByGuest, 100_000-2*GasPerFunctionCall)
}

func TestWasmGasIsDeterministic(t *testing.T) {
	rt := newTestRuntime(t)
	// Counts local 0 down from 50 in a loop, then returns the msg pointer.
	countdown := funcBody(
		0x41, 50, 0x21, 0, // local.set 0 (env pointer reused as counter)
		0x03, 0x40, // loop
		0x20, 0, 0x41, 1, 0x6b, 0x22, 0, // local.tee 0 (n - 1)
		0x0d, 0, // br_if 0
		0x0b,
		0x20, 1, 0x0b,
	)
	code := echoModuleWithQuery(MarkerV1, countdown)

	var used []uint64
	for i := 0; i < 2; i++ {
		cc := testContext(OpQuery, 1_000_000)
		inst, err := rt.Load(context.Background(), code, NewHostBridge(cc))
		require.NoError(t, err)
		out, err := inst.Call(context.Background(), EntryQuery, []byte("{}"), []byte(`{"ping":{}}`))
		require.NoError(t, err)
		assert.Equal(t, `{"ping":{}}`, string(out))
		require.NoError(t, inst.Close(context.Background()))
		used = append(used, cc.Gas.UsedByGuest)
	}
	assert.Equal(t, used[0], used[1])
	// Three function entries (two allocations and query) plus 50 iterations.
	assert.Equal(t, 3*GasPerFunctionCall+50*GasPerLoopIteration, used[0])
}

func TestInstrumentGasRejects(t *testing.T) {
	types := section(0x01, []byte{0x60, 0, 0})
	funcs := section(0x03, []byte{0})
	tests := []struct {
		name string
		code []byte
	}{
		{"bad magic", []byte("\x00asm\x02\x00\x00\x00")},
		{"truncated section", concat(wasmHeader, []byte{0x01, 0x10, 0x01})},
		{"simd", concat(wasmHeader, types, funcs, section(0x0a, funcBody(0xfd, 0x0c, 0x0b)))},
		{"tail call", concat(wasmHeader, types, funcs, section(0x0a, funcBody(0x12, 0x00, 0x0b)))},
		// Global 0 only exists once the counter is added.
		{"counter access", concat(wasmHeader, types, funcs, section(0x0a, funcBody(0x42, 0x7f, 0x24, 0x00, 0x0b)))},
		{"reserved export", concat(wasmHeader, section(0x07, concat(wasmName(gasCounterExport), []byte{0x00, 0})))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := instrumentGas(tt.code)
			require.Error(t, err)
		})
	}

	rt := newTestRuntime(t)
	_, err := rt.Load(context.Background(), tests[4].code, NewHostBridge(testContext(OpQuery, 1_000_000)))
	require.ErrorIs(t, err, ErrInvalidModule)
}

func TestInstrumentGasMetersLoops(t *testing.T) {
	types := section(0x01, []byte{0x60, 0, 0})
	funcs := section(0x03, []byte{0})
	body := funcBody(0x03, 0x40, 0x0b, 0x0b)
	out, err := instrumentGas(concat(wasmHeader, types, funcs, section(0x0a, body)))
	require.NoError(t, err)

	sections, err := readSections(out)
	require.NoError(t, err)
	var ids []byte
	for _, s := range sections {
		ids = append(ids, s.id)
	}
	assert.Equal(t, []byte{0x01, 0x03, 0x06, 0x07, 0x0a}, ids)

	entry, loop := meterCode(0, GasPerFunctionCall), meterCode(0, GasPerLoopIteration)
	want := concat([]byte{0x00}, entry, []byte{0x03, 0x40}, loop, []byte{0x0b, 0x0b})
	assert.Equal(t, concat([]byte{0x01}, leb(len(want)), want), sections[4].payload)
}
