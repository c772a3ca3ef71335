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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/scrtlabs/SecretNetwork-sub000/core/engine"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

// dirRegistry resolves contracts for nested queries from a directory holding
// <address>.wasm and <address>.key.json files.
type dirRegistry struct {
	dir string
}

func (r dirRegistry) Contract(address string) ([]byte, *types.ContractKeyInfo, error) {
	if address == "" || filepath.Base(address) != address {
		return nil, nil, fmt.Errorf("%w: %q", engine.ErrUnknownContract, address)
	}
	code, err := os.ReadFile(filepath.Join(r.dir, address+".wasm"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", engine.ErrUnknownContract, address)
	}
	if err != nil {
		return nil, nil, err
	}
	raw, err := os.ReadFile(filepath.Join(r.dir, address+".key.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("contract key of %s: %w", address, err)
	}
	var key types.ContractKeyInfo
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, nil, fmt.Errorf("contract key of %s: %w", address, err)
	}
	return code, &key, nil
}
