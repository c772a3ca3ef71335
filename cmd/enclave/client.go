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
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/curve25519"

	"github.com/scrtlabs/SecretNetwork-sub000/core/output"
	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

var (
	enclaveKeyFlag = &cli.StringFlag{
		Name:     "enclave-pubkey",
		Usage:    "hex encoded IO public key of the enclave",
		Required: true,
	}
	userKeyFlag = &cli.StringFlag{
		Name:    "user-key",
		Usage:   "hex encoded x25519 private key; a fresh one is generated when unset",
		EnvVars: []string{"ENCLAVE_USER_KEY"},
	}
	outFlag = &cli.PathFlag{
		Name:     "out",
		Usage:    "file the encrypted message is written to",
		Required: true,
	}
	callKeyFlag = &cli.StringFlag{
		Name:     "call-key",
		Usage:    "hex encoded call key printed by encrypt",
		Required: true,
	}
	resultFlag = &cli.PathFlag{
		Name:     "result",
		Usage:    "file holding the output of a contract call",
		Required: true,
	}

	encryptCommand = &cli.Command{
		Name:      "encrypt",
		Usage:     "encrypt a JSON message for a contract",
		ArgsUsage: "<json>",
		Flags:     []cli.Flag{enclaveKeyFlag, userKeyFlag, codeFlag, outFlag},
		Action:    encrypt,
	}
	decryptCommand = &cli.Command{
		Name:   "decrypt",
		Usage:  "decrypt the output of a contract call",
		Flags:  []cli.Flag{callKeyFlag, resultFlag},
		Action: decrypt,
	}
)

type encryptOutput struct {
	UserPublicKey hexutil.Bytes `json:"user_public_key"`
	Nonce         hexutil.Bytes `json:"nonce"`
	CallKey       hexutil.Bytes `json:"call_key"`
}

func userKey(cCtx *cli.Context) (priv, pub [32]byte, err error) {
	if s := cCtx.String(userKeyFlag.Name); s != "" {
		if priv, err = parseKey32(userKeyFlag.Name, s); err != nil {
			return priv, pub, err
		}
	} else if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	b, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], b)
	return priv, pub, nil
}

func encrypt(cCtx *cli.Context) error {
	plain := []byte(cCtx.Args().First())
	if !json.Valid(plain) {
		return errors.New("message must be valid JSON")
	}
	enclavePub, err := parseKey32(enclaveKeyFlag.Name, cCtx.String(enclaveKeyFlag.Name))
	if err != nil {
		return err
	}
	code, err := os.ReadFile(cCtx.Path(codeFlag.Name))
	if err != nil {
		return err
	}
	priv, pub, err := userKey(cCtx)
	if err != nil {
		return err
	}
	// The enclave only accepts messages bound to the code they are sent to.
	prefixed := append([]byte(types.NewContractCode(code).HashHex()), plain...)
	msg, key, err := secretmsg.NewClientMessage(priv, pub, enclavePub, prefixed)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cCtx.Path(outFlag.Name), msg.Bytes(), 0o600); err != nil {
		return err
	}
	return printJSON(cCtx, encryptOutput{UserPublicKey: pub[:], Nonce: msg.Nonce[:], CallKey: key[:]})
}

// decryptedOutput is the plaintext view of a call result.
type decryptedOutput struct {
	Error      string            `json:"error,omitempty"`
	Query      json.RawMessage   `json:"query,omitempty"`
	Attributes []types.Attribute `json:"attributes,omitempty"`
	Events     []types.Event     `json:"events,omitempty"`
	Data       hexutil.Bytes     `json:"data,omitempty"`
	Messages   int               `json:"messages"`
}

func decrypt(cCtx *cli.Context) error {
	b := common.FromHex(cCtx.String(callKeyFlag.Name))
	if len(b) != secretmsg.KeySize {
		return fmt.Errorf("--%s must be %d hex encoded bytes", callKeyFlag.Name, secretmsg.KeySize)
	}
	var key [secretmsg.KeySize]byte
	copy(key[:], b)

	raw, err := os.ReadFile(cCtx.Path(resultFlag.Name))
	if err != nil {
		return err
	}
	// Accept both the bare envelope and the JSON printed by the call commands.
	var wrapped callOutput
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Output) > 0 {
		raw = wrapped.Output
	}
	env, err := output.ParseEnvelope(raw)
	if err != nil {
		return err
	}
	out, err := decryptEnvelope(key, env)
	if err != nil {
		return err
	}
	return printJSON(cCtx, out)
}

func decryptEnvelope(key [secretmsg.KeySize]byte, env *output.Envelope) (*decryptedOutput, error) {
	out := new(decryptedOutput)
	if q := env.Query; q != nil {
		if q.Err != nil {
			plain, err := secretmsg.DecryptString(key, *q.Err)
			if err != nil {
				return nil, err
			}
			out.Error = string(plain)
			return out, nil
		}
		if q.Ok != nil {
			plain, err := secretmsg.DecryptString(key, *q.Ok)
			if err != nil {
				return nil, err
			}
			out.Query = plain
		}
		return out, nil
	}
	// IBC results are never encrypted.
	encrypted := env.V010 != nil || env.V1 != nil
	r := env.Result()
	if r == nil {
		return nil, output.ErrInvalidOutput
	}
	if msg := r.ErrorMessage(); msg != "" {
		if !encrypted {
			out.Error = msg
			return out, nil
		}
		plain, err := secretmsg.DecryptString(key, msg)
		if err != nil {
			return nil, err
		}
		out.Error = string(plain)
		return out, nil
	}
	if env.V010 != nil {
		resp, err := r.V010Response()
		if err != nil {
			return nil, err
		}
		out.Attributes, out.Data, out.Messages = resp.Log, resp.Data, len(resp.Messages)
	} else {
		resp, err := r.Response()
		if err != nil {
			return nil, err
		}
		out.Attributes, out.Events, out.Data, out.Messages = resp.Attributes, resp.Events, resp.Data, len(resp.Messages)
	}
	if !encrypted {
		return out, nil
	}
	if err := decryptAttributes(key, out.Attributes); err != nil {
		return nil, err
	}
	for i := range out.Events {
		if err := decryptAttributes(key, out.Events[i].Attributes); err != nil {
			return nil, err
		}
	}
	if len(out.Data) > 0 {
		plain, err := secretmsg.Decrypt(key, out.Data)
		if err != nil {
			return nil, err
		}
		out.Data = plain
	}
	return out, nil
}

func decryptAttributes(key [secretmsg.KeySize]byte, attrs []types.Attribute) error {
	for i := range attrs {
		if !attrs[i].IsEncrypted() {
			continue
		}
		k, err := secretmsg.DecryptString(key, attrs[i].Key)
		if err != nil {
			return err
		}
		v, err := secretmsg.DecryptString(key, attrs[i].Value)
		if err != nil {
			return err
		}
		attrs[i].Key, attrs[i].Value = string(k), string(v)
	}
	return nil
}
