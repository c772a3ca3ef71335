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

// Package config assembles the enclave configuration from defaults, a TOML
// file and the values pinned by the enclave manifest.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/scrtlabs/SecretNetwork-sub000/core/engine"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

var ErrInvalidConfig = errors.New("invalid config")

// Log formats accepted in LogConfig.Format.
const (
	LogFormatTerminal = "terminal"
	LogFormatJSON     = "json"
	LogFormatLogfmt   = "logfmt"
)

type Config struct {
	Engine  engine.Config  `toml:"engine"`
	Storage storage.Config `toml:"storage"`
	Wasm    vm.WasmConfig  `toml:"wasm"`
	Log     LogConfig      `toml:"log"`
}

// LogConfig selects the log handler. Verbosity uses the legacy levels,
// 0 (silent) to 5 (trace).
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Format    string `toml:"format"`
	Color     bool   `toml:"color"`

	// File enables a rotated log file next to the console output.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Engine:  engine.DefaultConfig(),
		Storage: storage.DefaultConfig(),
		Wasm:    vm.DefaultWasmConfig(),
		Log: LogConfig{
			Verbosity:  3,
			Format:     LogFormatTerminal,
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 30,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Wasm.MemoryLimitPages == 0 || c.Wasm.MemoryLimitPages > 65536 {
		return fmt.Errorf("%w: wasm memory limit of %d pages", ErrInvalidConfig, c.Wasm.MemoryLimitPages)
	}
	if c.Wasm.CacheSize <= 0 {
		return fmt.Errorf("%w: wasm cache size must be positive", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case LogFormatTerminal, LogFormatJSON, LogFormatLogfmt:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Log.Verbosity < 0 || c.Log.Verbosity > 5 {
		return fmt.Errorf("%w: log verbosity %d out of range", ErrInvalidConfig, c.Log.Verbosity)
	}
	return nil
}

// Decode reads TOML over the defaults. Unknown keys are rejected so typos
// do not silently fall back to a default.
func Decode(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Load reads the file at path, or only the defaults when path is empty,
// applies the manifest pins from the environment and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = Decode(data); err != nil {
			return cfg, err
		}
	}
	if err := ApplyManifest(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Marshal renders cfg as TOML, the format Load reads.
func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
