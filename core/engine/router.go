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

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
)

// Registry resolves a deployed contract by its bech32 address.
type Registry interface {
	Contract(address string) (code []byte, key *types.ContractKeyInfo, err error)
}

// Router answers nested contract queries by running the target's query
// through the engine at the depth chosen by the host bridge.
type Router struct {
	Engine   *Engine
	Registry Registry
	Block    types.BlockInfo
}

type routedQuery struct {
	Wasm *struct {
		Smart *struct {
			ContractAddr string `json:"contract_addr"`
			Msg          []byte `json:"msg"`
		} `json:"smart"`
	} `json:"wasm"`
}

func (r *Router) Query(ctx context.Context, request []byte, gasLimit uint64, depth uint32) ([]byte, uint64, error) {
	var q routedQuery
	if err := json.Unmarshal(request, &q); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}
	if q.Wasm == nil || q.Wasm.Smart == nil {
		return nil, 0, ErrUnsupportedQuery
	}
	smart := q.Wasm.Smart
	code, key, err := r.Registry.Contract(smart.ContractAddr)
	if err != nil {
		return nil, 0, err
	}
	env, err := json.Marshal(types.Env{
		Block:       r.Block,
		Contract:    types.ContractInfo{Address: smart.ContractAddr},
		ContractKey: key,
	})
	if err != nil {
		return nil, 0, err
	}
	if env, err = types.WithQueryDepth(env, depth); err != nil {
		return nil, 0, err
	}
	res, err := r.Engine.Query(ctx, gasLimit, code, env, smart.Msg)
	if err != nil {
		// An aborted query still burnt its gas when it ran out.
		if errors.Is(err, vm.ErrOutOfGas) {
			return nil, gasLimit, err
		}
		return nil, 0, err
	}
	return res.Output, res.GasUsed, nil
}

// MemoryRegistry is a Registry backed by a map.
type MemoryRegistry struct {
	mu        sync.RWMutex
	contracts map[string]registered
}

type registered struct {
	code []byte
	key  types.ContractKeyInfo
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{contracts: make(map[string]registered)}
}

// Put records or replaces a contract.
func (m *MemoryRegistry) Put(address string, code []byte, key types.ContractKeyInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[address] = registered{code: code, key: key}
}

func (m *MemoryRegistry) Contract(address string) ([]byte, *types.ContractKeyInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[address]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownContract, address)
	}
	key := c.key
	return c.code, &key, nil
}
