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

package storage

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid storage config")

// Backend names accepted in Config.Backend.
const (
	BackendLevelDB = "leveldb"
	BackendPebble  = "pebble"
	BackendMemory  = "memory"
)

// Config defines configuration for the storage module
type Config struct {
	Backend    string `toml:"backend"`     // KV backend for contract state
	DataPath   string `toml:"data_path"`   // contract state directory
	SecretPath string `toml:"secret_path"` // encrypted partition for sealed secrets
	CacheMB    int    `toml:"cache_mb"`    // backend block cache
	Handles    int    `toml:"handles"`     // open file limit for leveldb
}

func DefaultConfig() Config {
	return Config{
		Backend:    BackendLevelDB,
		DataPath:   "data/state",
		SecretPath: "data/secrets",
		CacheMB:    64,
		Handles:    256,
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLevelDB, BackendPebble:
		if c.DataPath == "" {
			return fmt.Errorf("%w: data_path required for %s", ErrInvalidConfig, c.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidConfig, ErrUnknownBackend, c.Backend)
	}
	if c.CacheMB < 0 || c.Handles < 0 {
		return fmt.Errorf("%w: negative cache or handles", ErrInvalidConfig)
	}
	return nil
}

// Open returns the KV backend selected by the config.
func Open(c Config) (KV, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Backend {
	case BackendLevelDB:
		return OpenLevelDB(c.DataPath, c.CacheMB, c.Handles)
	case BackendPebble:
		return OpenPebble(c.DataPath, c.CacheMB)
	default:
		return NewMemoryLevelDB()
	}
}
