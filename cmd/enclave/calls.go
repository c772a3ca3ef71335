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
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/scrtlabs/SecretNetwork-sub000/core/engine"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
	"github.com/scrtlabs/SecretNetwork-sub000/internal/keyring"
	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

// exitCodeBase offsets engine error codes so they do not collide with the
// generic failure status 1.
const exitCodeBase = 10

var (
	codeFlag = &cli.PathFlag{
		Name:     "code",
		Usage:    "contract wasm file",
		Required: true,
	}
	envFlag = &cli.PathFlag{
		Name:     "env",
		Usage:    "JSON file with the call environment",
		Required: true,
	}
	msgFlag = &cli.PathFlag{
		Name:     "msg",
		Usage:    "file with the raw encrypted message",
		Required: true,
	}
	sigFlag = &cli.PathFlag{
		Name:  "sig",
		Usage: "JSON file with the signature info",
	}
	gasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "gas limit of the call",
		Value: 10_000_000,
	}
	adminFlag = &cli.StringFlag{
		Name:  "admin",
		Usage: "bech32 address of the contract admin",
	}
	adminProofFlag = &cli.StringFlag{
		Name:  "admin-proof",
		Usage: "hex encoded admin proof of the current admin",
	}
	newAdminFlag = &cli.StringFlag{
		Name:  "new-admin",
		Usage: "bech32 address of the new admin, empty to clear it",
	}
	handleFlag = &cli.StringFlag{
		Name:  "handle",
		Usage: "handle type of the execute call",
		Value: types.HandleTypeExecute.String(),
	}
	contractsFlag = &cli.PathFlag{
		Name:  "contracts",
		Usage: "directory of deployed contracts answering nested queries",
	}

	nodeFlags = []cli.Flag{sealingKeyFlag, codeFlag, envFlag, gasFlag, contractsFlag}

	instantiateCommand = &cli.Command{
		Name:   "instantiate",
		Usage:  "create a contract instance",
		Flags:  append(append([]cli.Flag{}, nodeFlags...), msgFlag, sigFlag, adminFlag),
		Action: instantiate,
	}
	executeCommand = &cli.Command{
		Name:   "execute",
		Usage:  "run an execute, reply or IBC entry point",
		Flags:  append(append([]cli.Flag{}, nodeFlags...), msgFlag, sigFlag, handleFlag),
		Action: execute,
	}
	migrateCommand = &cli.Command{
		Name:   "migrate",
		Usage:  "move a contract to new code",
		Flags:  append(append([]cli.Flag{}, nodeFlags...), msgFlag, sigFlag, adminFlag, adminProofFlag),
		Action: migrate,
	}
	queryCommand = &cli.Command{
		Name:   "query",
		Usage:  "run a read-only contract query",
		Flags:  append(append([]cli.Flag{}, nodeFlags...), msgFlag),
		Action: query,
	}
	updateAdminCommand = &cli.Command{
		Name:   "update-admin",
		Usage:  "replace or clear the admin of a contract",
		Flags:  []cli.Flag{sealingKeyFlag, envFlag, sigFlag, adminFlag, adminProofFlag, newAdminFlag},
		Action: updateAdmin,
	}
)

// callOutput is printed as JSON after every call.
type callOutput struct {
	Output         json.RawMessage `json:"output,omitempty"`
	GasUsed        uint64          `json:"gas_used"`
	ContractKey    hexutil.Bytes   `json:"contract_key,omitempty"`
	NewContractKey hexutil.Bytes   `json:"new_contract_key,omitempty"`
	KeyProof       hexutil.Bytes   `json:"key_proof,omitempty"`
	AdminProof     hexutil.Bytes   `json:"admin_proof,omitempty"`
}

// node is an engine wired to the configured store and sealed keyring.
type node struct {
	engine *engine.Engine
	keys   *keyring.Handle
	kv     storage.KV
	env    []byte
}

func openNode(cCtx *cli.Context) (n *node, err error) {
	cfg := configFrom(cCtx)
	env, err := os.ReadFile(cCtx.Path(envFlag.Name))
	if err != nil {
		return nil, err
	}
	n = &node{env: env}
	defer func() {
		if err != nil {
			n.close(cCtx)
		}
	}()
	if n.keys, err = unsealKeyring(cCtx); err != nil {
		return nil, err
	}
	if n.kv, err = storage.Open(cfg.Storage); err != nil {
		return nil, err
	}
	rt, err := vm.NewWasmRuntime(cCtx.Context, cfg.Wasm)
	if err != nil {
		return nil, err
	}
	if n.engine, err = engine.New(cfg.Engine, n.keys, rt, n.kv, nil); err != nil {
		rt.Close(cCtx.Context)
		return nil, err
	}
	if dir := cCtx.Path(contractsFlag.Name); dir != "" {
		parsed, err := types.ParseEnv(env)
		if err != nil {
			return nil, err
		}
		n.engine.SetQuerier(&engine.Router{Engine: n.engine, Registry: dirRegistry{dir: dir}, Block: parsed.Block})
	}
	return n, nil
}

func (n *node) close(cCtx *cli.Context) {
	if n.engine != nil {
		if err := n.engine.Close(cCtx.Context); err != nil {
			log.Warn("Failed to close runtime", "err", err)
		}
	}
	if n.kv != nil {
		if err := n.kv.Close(); err != nil {
			log.Warn("Failed to close state store", "err", err)
		}
	}
	if n.keys != nil {
		n.keys.Teardown()
	}
}

// readOptional returns nil when the flag is unset.
func readOptional(cCtx *cli.Context, name string) ([]byte, error) {
	path := cCtx.Path(name)
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// callInputs reads the files every contract call takes.
func callInputs(cCtx *cli.Context) (code, msg, sig []byte, err error) {
	if code, err = os.ReadFile(cCtx.Path(codeFlag.Name)); err != nil {
		return nil, nil, nil, err
	}
	if msg, err = os.ReadFile(cCtx.Path(msgFlag.Name)); err != nil {
		return nil, nil, nil, err
	}
	if sig, err = readOptional(cCtx, sigFlag.Name); err != nil {
		return nil, nil, nil, err
	}
	return code, msg, sig, nil
}

func parseProof(cCtx *cli.Context) ([]byte, error) {
	s := cCtx.String(adminProofFlag.Name)
	if s == "" {
		return nil, nil
	}
	proof := common.FromHex(s)
	if len(proof) != 32 {
		return nil, errors.New("--admin-proof must be 32 hex encoded bytes")
	}
	return proof, nil
}

// callFailed maps an engine failure onto a process exit status.
func callFailed(err error) error {
	if err == nil {
		return nil
	}
	var ee *engine.EnclaveError
	if !errors.As(err, &ee) {
		return err
	}
	log.Debug("Enclave call failed", "code", ee.Code, "err", ee.Err)
	return cli.Exit(ee.Error(), exitCodeBase+int(ee.Code))
}

func printJSON(cCtx *cli.Context, v any) error {
	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func instantiate(cCtx *cli.Context) error {
	code, msg, sig, err := callInputs(cCtx)
	if err != nil {
		return err
	}
	n, err := openNode(cCtx)
	if err != nil {
		return err
	}
	defer n.close(cCtx)

	res, err := n.engine.Instantiate(cCtx.Context, cCtx.Uint64(gasFlag.Name), code, n.env, msg, sig, cCtx.String(adminFlag.Name))
	if err != nil {
		return callFailed(err)
	}
	out := callOutput{Output: res.Output, GasUsed: res.GasUsed, ContractKey: res.ContractKey[:]}
	if res.AdminProof != ([32]byte{}) {
		out.AdminProof = res.AdminProof[:]
	}
	return printJSON(cCtx, out)
}

func execute(cCtx *cli.Context) error {
	handle, err := types.ParseHandleType(cCtx.String(handleFlag.Name))
	if err != nil {
		return err
	}
	code, msg, sig, err := callInputs(cCtx)
	if err != nil {
		return err
	}
	n, err := openNode(cCtx)
	if err != nil {
		return err
	}
	defer n.close(cCtx)

	res, err := n.engine.Execute(cCtx.Context, cCtx.Uint64(gasFlag.Name), code, n.env, msg, sig, handle)
	if err != nil {
		return callFailed(err)
	}
	return printJSON(cCtx, callOutput{Output: res.Output, GasUsed: res.GasUsed})
}

func migrate(cCtx *cli.Context) error {
	proof, err := parseProof(cCtx)
	if err != nil {
		return err
	}
	code, msg, sig, err := callInputs(cCtx)
	if err != nil {
		return err
	}
	n, err := openNode(cCtx)
	if err != nil {
		return err
	}
	defer n.close(cCtx)

	res, err := n.engine.Migrate(cCtx.Context, cCtx.Uint64(gasFlag.Name), code, n.env, msg, sig, cCtx.String(adminFlag.Name), proof)
	if err != nil {
		return callFailed(err)
	}
	return printJSON(cCtx, callOutput{
		Output:         res.Output,
		GasUsed:        res.GasUsed,
		NewContractKey: res.NewContractKey[:],
		KeyProof:       res.KeyProof[:],
		AdminProof:     res.AdminProof[:],
	})
}

func query(cCtx *cli.Context) error {
	code, err := os.ReadFile(cCtx.Path(codeFlag.Name))
	if err != nil {
		return err
	}
	msg, err := os.ReadFile(cCtx.Path(msgFlag.Name))
	if err != nil {
		return err
	}
	n, err := openNode(cCtx)
	if err != nil {
		return err
	}
	defer n.close(cCtx)

	res, err := n.engine.Query(cCtx.Context, cCtx.Uint64(gasFlag.Name), code, n.env, msg)
	if err != nil {
		return callFailed(err)
	}
	return printJSON(cCtx, callOutput{Output: res.Output, GasUsed: res.GasUsed})
}

func updateAdmin(cCtx *cli.Context) error {
	proof, err := parseProof(cCtx)
	if err != nil {
		return err
	}
	sig, err := readOptional(cCtx, sigFlag.Name)
	if err != nil {
		return err
	}
	n, err := openNode(cCtx)
	if err != nil {
		return err
	}
	defer n.close(cCtx)

	newProof, err := n.engine.UpdateAdmin(cCtx.Context, n.env, sig, cCtx.String(adminFlag.Name), proof, cCtx.String(newAdminFlag.Name))
	if err != nil {
		return callFailed(err)
	}
	var out callOutput
	if newProof != ([32]byte{}) {
		out.AdminProof = newProof[:]
	}
	return printJSON(cCtx, out)
}
