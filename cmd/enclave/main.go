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

// enclave is the command line front end of the confidential contract engine.
// It manages the sealed keyring and runs single contract calls against a
// local state store.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/scrtlabs/SecretNetwork-sub000/internal/config"
)

const (
	metaConfig    = "config"
	metaLogCloser = "log-closer"
)

var (
	configFlag = &cli.PathFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"ENCLAVE_CONFIG"},
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level, 0 (silent) to 5 (trace); overrides the config file",
		Value: 3,
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "enclave",
		Usage: "confidential contract engine",
		Flags: []cli.Flag{configFlag, verbosityFlag},
		Before: func(cCtx *cli.Context) error {
			cfg, err := config.Load(cCtx.Path(configFlag.Name))
			if err != nil {
				return err
			}
			if cCtx.IsSet(verbosityFlag.Name) {
				cfg.Log.Verbosity = cCtx.Int(verbosityFlag.Name)
			}
			closer, err := setupLogging(cfg.Log, cCtx.App.ErrWriter)
			if err != nil {
				return err
			}
			cCtx.App.Metadata[metaConfig] = &cfg
			cCtx.App.Metadata[metaLogCloser] = closer
			return nil
		},
		After: func(cCtx *cli.Context) error {
			if c, ok := cCtx.App.Metadata[metaLogCloser].(io.Closer); ok && c != nil {
				return c.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			keysCommand,
			instantiateCommand,
			executeCommand,
			migrateCommand,
			queryCommand,
			updateAdminCommand,
			encryptCommand,
			decryptCommand,
		},
	}
}

// configFrom returns the configuration loaded by the Before hook.
func configFrom(cCtx *cli.Context) *config.Config {
	return cCtx.App.Metadata[metaConfig].(*config.Config)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error("Command failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
