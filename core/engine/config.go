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
	"fmt"
	"strings"

	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
)

// Config holds the engine parameters every node must agree on.
type Config struct {
	Bech32Prefix  string `toml:"bech32_prefix"`
	MaxQueryDepth uint32 `toml:"max_query_depth"`
	// GuestDebug lets contract debug prints reach the log.
	GuestDebug bool `toml:"guest_debug"`
}

func DefaultConfig() Config {
	return Config{
		Bech32Prefix:  "secret",
		MaxQueryDepth: 20,
	}
}

func (c Config) Validate() error {
	if c.Bech32Prefix == "" || strings.ToLower(c.Bech32Prefix) != c.Bech32Prefix {
		return fmt.Errorf("%w: bech32 prefix %q must be non-empty lower case", ErrInvalidConfig, c.Bech32Prefix)
	}
	if c.MaxQueryDepth == 0 {
		return fmt.Errorf("%w: max query depth must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) addressCodec() *vm.AddressCodec { return vm.NewAddressCodec(c.Bech32Prefix) }
