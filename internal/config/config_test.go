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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

func env(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestDecode(t *testing.T) {
	cfg, err := Decode([]byte(`
[engine]
bech32_prefix = "scrt"
max_query_depth = 5

[storage]
backend = "pebble"
data_path = "/var/lib/enclave/state"

[wasm]
cache_size = 8

[log]
format = "json"
verbosity = 4
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "scrt", cfg.Engine.Bech32Prefix)
	assert.Equal(t, uint32(5), cfg.Engine.MaxQueryDepth)
	assert.Equal(t, storage.BackendPebble, cfg.Storage.Backend)
	assert.Equal(t, 8, cfg.Wasm.CacheSize)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig().Wasm.MemoryLimitPages, cfg.Wasm.MemoryLimitPages)
	assert.Equal(t, DefaultConfig().Storage.SecretPath, cfg.Storage.SecretPath)

	_, err = Decode([]byte("[engine]\nbech32_prefx = \"scrt\"\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"engine", func(c *Config) { c.Engine.Bech32Prefix = "" }},
		{"storage", func(c *Config) { c.Storage.Backend = "bolt" }},
		{"wasm memory", func(c *Config) { c.Wasm.MemoryLimitPages = 0 }},
		{"wasm cache", func(c *Config) { c.Wasm.CacheSize = 0 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"log verbosity", func(c *Config) { c.Log.Verbosity = 9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestApplyManifest(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyManifest(&cfg, env(map[string]string{
		EnvSecretPath:    "/enclave/secrets",
		EnvMaxQueryDepth: "7",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/enclave/secrets", cfg.Storage.SecretPath)
	assert.Equal(t, uint32(7), cfg.Engine.MaxQueryDepth)
	assert.Equal(t, DefaultConfig().Storage.DataPath, cfg.Storage.DataPath)

	// Agreeing with the pin is fine.
	cfg = DefaultConfig()
	cfg.Engine.Bech32Prefix = "scrt"
	require.NoError(t, ApplyManifest(&cfg, env(map[string]string{EnvBech32Prefix: "scrt"})))

	cfg = DefaultConfig()
	cfg.Storage.DataPath = "/elsewhere"
	err = ApplyManifest(&cfg, env(map[string]string{EnvDataPath: "/enclave/state"}))
	require.ErrorIs(t, err, ErrManifestMismatch)

	cfg = DefaultConfig()
	cfg.Engine.MaxQueryDepth = 3
	err = ApplyManifest(&cfg, env(map[string]string{EnvMaxQueryDepth: "7"}))
	require.ErrorIs(t, err, ErrManifestMismatch)

	cfg = DefaultConfig()
	err = ApplyManifest(&cfg, env(map[string]string{EnvMaxQueryDepth: "deep"}))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Storage.Backend = storage.BackendMemory
	want.Log.File = "enclave.log"
	data, err := Marshal(want)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "enclave.toml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.Storage, got.Storage)
	assert.Equal(t, want.Log, got.Log)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
