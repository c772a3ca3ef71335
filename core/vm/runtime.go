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
	"fmt"
)

// Version is the guest interface convention, detected from marker exports.
type Version uint8

const (
	VersionUnknown Version = iota
	// Version010 entry points take (env, msg).
	Version010
	// Version1 instantiate and execute take (env, info, msg); every other
	// entry point takes (env, msg).
	Version1
)

// Marker exports identifying the interface version.
const (
	MarkerV010 = "cosmwasm_vm_version_3"
	MarkerV1   = "interface_version_8"
)

func (v Version) String() string {
	switch v {
	case Version010:
		return "v0.10"
	case Version1:
		return "v1"
	}
	return "unknown"
}

// DetectVersion picks the version from the set of exported names.
func DetectVersion(has func(string) bool) (Version, error) {
	switch {
	case has(MarkerV1):
		return Version1, nil
	case has(MarkerV010):
		return Version010, nil
	}
	return VersionUnknown, ErrUnknownVersion
}

// Entry points by version.
const (
	EntryInit        = "init"
	EntryHandle      = "handle"
	EntryInstantiate = "instantiate"
	EntryExecute     = "execute"
	EntryMigrate     = "migrate"
	EntryQuery       = "query"
	EntryReply       = "reply"
)

// InstantiateEntry returns the entry point name for the instantiate operation.
func (v Version) InstantiateEntry() string {
	if v == Version010 {
		return EntryInit
	}
	return EntryInstantiate
}

// ExecuteEntry maps a v1 execute-like entry point to its v0.10 name.
func (v Version) ExecuteEntry(v1Entry string) string {
	if v == Version010 && v1Entry == EntryExecute {
		return EntryHandle
	}
	return v1Entry
}

// TakesInfo reports whether entry receives the message info argument.
func (v Version) TakesInfo(entry string) bool {
	if v != Version1 {
		return false
	}
	return entry == EntryInstantiate || entry == EntryExecute
}

// Runtime loads guest code bound to a host bridge.
type Runtime interface {
	Load(ctx context.Context, code []byte, bridge *HostBridge) (Instance, error)
	Close(ctx context.Context) error
}

// Instance is one loaded guest, valid for a single call.
type Instance interface {
	Version() Version
	Has(entry string) bool
	// Call invokes entry with JSON arguments and returns the JSON result.
	Call(ctx context.Context, entry string, args ...[]byte) ([]byte, error)
	Close(ctx context.Context) error
}

// CallEntry checks that entry exists before calling it.
func CallEntry(ctx context.Context, inst Instance, entry string, args ...[]byte) ([]byte, error) {
	if !inst.Has(entry) {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntryPoint, entry)
	}
	return inst.Call(ctx, entry, args...)
}
