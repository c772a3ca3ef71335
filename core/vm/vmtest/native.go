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

// Package vmtest runs Go functions as contract guests. It stands in for the
// wasm runtime in tests, so engine behavior can be exercised without
// compiled contracts.
package vmtest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
)

// Entry implements one guest export. args are the JSON arguments in the
// order of the calling convention of the guest's version.
type Entry func(ctx context.Context, host *vm.HostBridge, args [][]byte) ([]byte, error)

// Guest is a native contract.
type Guest struct {
	Version vm.Version
	Entries map[string]Entry
}

// NativeRuntime resolves code bytes to registered guests by their hash.
type NativeRuntime struct {
	mu     sync.RWMutex
	guests map[common.Hash]*Guest
}

func NewNativeRuntime() *NativeRuntime {
	return &NativeRuntime{guests: make(map[common.Hash]*Guest)}
}

// Register binds code to guest and returns the code hash.
func (r *NativeRuntime) Register(code []byte, guest *Guest) common.Hash {
	hash := common.Hash(sha256.Sum256(code))
	r.mu.Lock()
	r.guests[hash] = guest
	r.mu.Unlock()
	return hash
}

func (r *NativeRuntime) Load(_ context.Context, code []byte, bridge *vm.HostBridge) (vm.Instance, error) {
	r.mu.RLock()
	guest, ok := r.guests[sha256.Sum256(code)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no native guest registered", vm.ErrInvalidModule)
	}
	if guest.Version == vm.VersionUnknown {
		return nil, vm.ErrUnknownVersion
	}
	return &instance{guest: guest, bridge: bridge}, nil
}

func (r *NativeRuntime) Close(context.Context) error { return nil }

type instance struct {
	guest  *Guest
	bridge *vm.HostBridge
}

func (i *instance) Version() vm.Version { return i.guest.Version }

func (i *instance) Has(entry string) bool {
	_, ok := i.guest.Entries[entry]
	return ok
}

// Call meters the entry like the interpreter does and turns a guest panic
// into ErrGuestPanic. Host errors are returned unchanged.
func (i *instance) Call(ctx context.Context, entry string, args ...[]byte) (out []byte, err error) {
	fn, ok := i.guest.Entries[entry]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vm.ErrMissingEntryPoint, entry)
	}
	if err := i.bridge.Gas().ChargeGuest(vm.GasPerFunctionCall); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &vm.PanicError{Reason: fmt.Sprint(r)}
		}
	}()
	return fn(ctx, i.bridge, args)
}

func (i *instance) Close(context.Context) error { return nil }
