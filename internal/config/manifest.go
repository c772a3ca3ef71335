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
	"errors"
	"fmt"
	"strconv"
)

// ErrManifestMismatch is returned when a configured value contradicts one
// fixed by the enclave manifest.
var ErrManifestMismatch = errors.New("config contradicts manifest")

// Environment variables set by the enclave manifest. They take part in the
// enclave measurement, so they win over anything in the config file.
const (
	EnvSecretPath    = "ENCLAVE_SECRET_PATH"
	EnvDataPath      = "ENCLAVE_DATA_PATH"
	EnvBech32Prefix  = "ENCLAVE_BECH32_PREFIX"
	EnvMaxQueryDepth = "ENCLAVE_MAX_QUERY_DEPTH"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type pinnedString struct {
	env     string
	field   *string
	initial string
}

// ApplyManifest overrides cfg with the manifest pins found by lookup. A value
// that was changed from its default to something other than the pin is an
// error rather than being silently replaced.
func ApplyManifest(cfg *Config, lookup LookupFunc) error {
	def := DefaultConfig()
	pins := []pinnedString{
		{EnvSecretPath, &cfg.Storage.SecretPath, def.Storage.SecretPath},
		{EnvDataPath, &cfg.Storage.DataPath, def.Storage.DataPath},
		{EnvBech32Prefix, &cfg.Engine.Bech32Prefix, def.Engine.Bech32Prefix},
	}
	for _, p := range pins {
		v, ok := lookup(p.env)
		if !ok || v == "" {
			continue
		}
		if *p.field != p.initial && *p.field != v {
			return fmt.Errorf("%w: %s=%q, config has %q", ErrManifestMismatch, p.env, v, *p.field)
		}
		*p.field = v
	}

	if v, ok := lookup(EnvMaxQueryDepth); ok && v != "" {
		depth, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvMaxQueryDepth, err)
		}
		pinned := uint32(depth)
		if cfg.Engine.MaxQueryDepth != def.Engine.MaxQueryDepth && cfg.Engine.MaxQueryDepth != pinned {
			return fmt.Errorf("%w: %s=%d, config has %d", ErrManifestMismatch, EnvMaxQueryDepth, pinned, cfg.Engine.MaxQueryDepth)
		}
		cfg.Engine.MaxQueryDepth = pinned
	}
	return nil
}
