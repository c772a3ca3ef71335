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

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// hostImports is the closed set of functions a guest may import from env.
var hostImports = map[string]bool{
	"db_read":                  true,
	"db_write":                 true,
	"db_remove":                true,
	"canonicalize_address":     true,
	"humanize_address":         true,
	"addr_canonicalize":        true,
	"addr_humanize":            true,
	"addr_validate":            true,
	"query_chain":              true,
	"secp256k1_verify":         true,
	"secp256k1_recover_pubkey": true,
	"secp256k1_sign":           true,
	"ed25519_verify":           true,
	"ed25519_batch_verify":     true,
	"ed25519_sign":             true,
	"gas":                      true,
	"debug":                    true,
	"debug_print":              true,
	"abort":                    true,
}

func isHostImport(name string) bool { return hostImports[name] }

// call binds the bridge of the running call to the calling module's memory
// and settles the gas the guest burnt before any host work is charged.
// Callers defer leave.
func call(ctx context.Context, mod api.Module) *hostCall {
	b := bridgeFrom(ctx)
	if b == nil {
		panic(&hostFault{ErrNoContext})
	}
	must(b.syncGuestGas())
	return &hostCall{b: b, mem: newGuestMemory(mod)}
}

// leave hands the gas left after host work back to the guest counter.
// Guest code run by allocate during the host call is collected here too.
func (h *hostCall) leave() { h.b.syncGuestGas() }

func must(err error) {
	if err != nil {
		panic(&hostFault{err})
	}
}

func must32(v uint32, err error) uint32 {
	must(err)
	return v
}

func must64(v uint64, err error) uint64 {
	must(err)
	return v
}

func instantiateHostModule(ctx context.Context, rt wazero.Runtime) error {
	canonicalize := func(ctx context.Context, m api.Module, src, dst uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.canonicalize(ctx, src, dst))
	}
	humanize := func(ctx context.Context, m api.Module, src, dst uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.humanize(ctx, src, dst))
	}
	debug := func(ctx context.Context, m api.Module, msg uint32) {
		h := call(ctx, m)
		defer h.leave()
		must(h.debug(msg))
	}

	b := rt.NewHostModuleBuilder(hostModule)
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, key uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.dbRead(ctx, key))
	}).Export("db_read")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, key, value uint32) {
		h := call(ctx, m)
		defer h.leave()
		must(h.dbWrite(key, value))
	}).Export("db_write")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, key uint32) {
		h := call(ctx, m)
		defer h.leave()
		must(h.dbRemove(key))
	}).Export("db_remove")
	b.NewFunctionBuilder().WithFunc(canonicalize).Export("canonicalize_address")
	b.NewFunctionBuilder().WithFunc(canonicalize).Export("addr_canonicalize")
	b.NewFunctionBuilder().WithFunc(humanize).Export("humanize_address")
	b.NewFunctionBuilder().WithFunc(humanize).Export("addr_humanize")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, src uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.validate(ctx, src))
	}).Export("addr_validate")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, req uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.queryChain(ctx, req))
	}).Export("query_chain")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, hash, sig, pub uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.secp256k1Verify(hash, sig, pub))
	}).Export("secp256k1_verify")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, hash, sig, param uint32) uint64 {
		h := call(ctx, m)
		defer h.leave()
		return must64(h.secp256k1Recover(ctx, hash, sig, param))
	}).Export("secp256k1_recover_pubkey")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, msg, priv uint32) uint64 {
		h := call(ctx, m)
		defer h.leave()
		return must64(h.secp256k1Sign(ctx, msg, priv))
	}).Export("secp256k1_sign")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, msg, sig, pub uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.ed25519Verify(msg, sig, pub))
	}).Export("ed25519_verify")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, msgs, sigs, pubs uint32) uint32 {
		h := call(ctx, m)
		defer h.leave()
		return must32(h.ed25519BatchVerify(msgs, sigs, pubs))
	}).Export("ed25519_batch_verify")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, msg, priv uint32) uint64 {
		h := call(ctx, m)
		defer h.leave()
		return must64(h.ed25519Sign(ctx, msg, priv))
	}).Export("ed25519_sign")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, amount uint32) {
		h := call(ctx, m)
		defer h.leave()
		must(h.b.ChargeGas(uint64(amount)))
	}).Export("gas")
	b.NewFunctionBuilder().WithFunc(debug).Export("debug")
	b.NewFunctionBuilder().WithFunc(debug).Export("debug_print")
	b.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, msg uint32) {
		h := call(ctx, m)
		defer h.leave()
		must(h.abort(msg))
	}).Export("abort")

	_, err := b.Instantiate(ctx)
	return err
}
