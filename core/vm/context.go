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

	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

// Operation is the lifecycle operation a call runs.
type Operation uint8

const (
	OpInstantiate Operation = iota
	OpExecute
	OpMigrate
	OpQuery
)

func (o Operation) String() string {
	switch o {
	case OpInstantiate:
		return "instantiate"
	case OpExecute:
		return "execute"
	case OpMigrate:
		return "migrate"
	case OpQuery:
		return "query"
	}
	return "unknown"
}

// Storage is the per-call state view. state.Store implements it.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Remove(key []byte) error
}

// Querier routes a nested query to another contract. request is the
// re-encoded query with its message already encrypted; depth is the depth
// the nested call runs at. It returns the target's query output envelope and
// the gas it used.
type Querier interface {
	Query(ctx context.Context, request []byte, gasLimit uint64, depth uint32) (result []byte, gasUsed uint64, err error)
}

// CallContext is everything the host bridge needs for one guest invocation.
type CallContext struct {
	Operation Operation
	// AllowWrites is false for queries. Writes are refused at the host bridge.
	AllowWrites bool

	Env        *types.Env
	Contract   []byte // canonical address of the running contract
	CodeHash   string
	QueryDepth uint32
	MaxDepth   uint32
	Gas        *GasState
	Store      Storage
	Querier    Querier
	Addresses  *AddressCodec

	// Message is the caller's envelope. Nested queries reuse its nonce and
	// public key, encrypting under CallKey, so the user can follow them.
	Message *secretmsg.SecretMessage
	CallKey [secretmsg.KeySize]byte
}

// Plaintext reports whether the call has no user key, as for IBC callbacks.
func (c *CallContext) Plaintext() bool { return c.Message == nil }
