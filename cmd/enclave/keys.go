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
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/scrtlabs/SecretNetwork-sub000/internal/keyring"
	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

var (
	sealingKeyFlag = &cli.StringFlag{
		Name:     "sealing-key",
		Usage:    "hex encoded 32 byte key the keyring is sealed under",
		EnvVars:  []string{"ENCLAVE_SEALING_KEY"},
		Required: true,
	}
	newSealingKeyFlag = &cli.StringFlag{
		Name:     "new-sealing-key",
		Usage:    "hex encoded 32 byte key to reseal the keyring under",
		Required: true,
	}

	keysCommand = &cli.Command{
		Name:  "keys",
		Usage: "manage the sealed enclave keyring",
		Subcommands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "generate a new keyring and seal it",
				Flags:  []cli.Flag{sealingKeyFlag},
				Action: keysInit,
			},
			{
				Name:   "pubkey",
				Usage:  "print the IO public key users encrypt messages to",
				Flags:  []cli.Flag{sealingKeyFlag},
				Action: keysPubkey,
			},
			{
				Name:   "reseal",
				Usage:  "re-encrypt the sealed keyring under a new sealing key",
				Flags:  []cli.Flag{sealingKeyFlag, newSealingKeyFlag},
				Action: keysReseal,
			},
		},
	}
)

func parseKey32(name, s string) ([32]byte, error) {
	var k [32]byte
	b := common.FromHex(s)
	if len(b) != len(k) {
		return k, fmt.Errorf("--%s must be 32 hex encoded bytes, got %d", name, len(b))
	}
	copy(k[:], b)
	return k, nil
}

func secretPartition(cCtx *cli.Context) (*storage.DirPartition, error) {
	return storage.NewDirPartition(configFrom(cCtx).Storage.SecretPath)
}

// unsealKeyring opens the keyring sealed in the configured secret path.
func unsealKeyring(cCtx *cli.Context) (*keyring.Handle, error) {
	key, err := parseKey32(sealingKeyFlag.Name, cCtx.String(sealingKeyFlag.Name))
	if err != nil {
		return nil, err
	}
	p, err := secretPartition(cCtx)
	if err != nil {
		return nil, err
	}
	return keyring.Unseal(p, key)
}

func keysInit(cCtx *cli.Context) error {
	key, err := parseKey32(sealingKeyFlag.Name, cCtx.String(sealingKeyFlag.Name))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configFrom(cCtx).Storage.SecretPath, 0o700); err != nil {
		return err
	}
	p, err := secretPartition(cCtx)
	if err != nil {
		return err
	}
	_, err = p.ReadSecret(keyring.SealedID)
	switch {
	case err == nil:
		return errors.New("keyring already initialized")
	case !errors.Is(err, storage.ErrSecretNotFound):
		return err
	}
	h, err := keyring.Generate()
	if err != nil {
		return err
	}
	defer h.Teardown()
	if err := h.Seal(p, key); err != nil {
		return err
	}
	return printPubkey(cCtx, h)
}

func keysPubkey(cCtx *cli.Context) error {
	h, err := unsealKeyring(cCtx)
	if err != nil {
		return err
	}
	defer h.Teardown()
	return printPubkey(cCtx, h)
}

func keysReseal(cCtx *cli.Context) error {
	oldKey, err := parseKey32(sealingKeyFlag.Name, cCtx.String(sealingKeyFlag.Name))
	if err != nil {
		return err
	}
	newKey, err := parseKey32(newSealingKeyFlag.Name, cCtx.String(newSealingKeyFlag.Name))
	if err != nil {
		return err
	}
	p, err := secretPartition(cCtx)
	if err != nil {
		return err
	}
	if err := keyring.Reseal(p, oldKey, newKey); err != nil {
		return err
	}
	log.Info("Keyring resealed", "path", configFrom(cCtx).Storage.SecretPath)
	return nil
}

func printPubkey(cCtx *cli.Context, h *keyring.Handle) error {
	pub, err := h.IOPublicKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cCtx.App.Writer, hexutil.Encode(pub[:]))
	return err
}
