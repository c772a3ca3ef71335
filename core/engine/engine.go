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

// Package engine runs the contract lifecycle operations inside the enclave.
// Every operation authenticates its caller, opens the encrypted message,
// runs the guest under the host bridge and returns encrypted output.
package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/scrtlabs/SecretNetwork-sub000/core/output"
	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/core/state"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
	"github.com/scrtlabs/SecretNetwork-sub000/internal/keyring"
	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

// Engine is safe for concurrent calls. Calls share nothing but the keyring,
// the runtime and the backing store.
type Engine struct {
	cfg     Config
	keys    *keyring.Handle
	runtime vm.Runtime
	kv      storage.KV
	querier vm.Querier
	addrs   *vm.AddressCodec
	log     log.Logger
}

// New creates an engine. querier may be nil, in which case nested contract
// queries report a system error to the guest.
func New(cfg Config, keys *keyring.Handle, runtime vm.Runtime, kv storage.KV, querier vm.Querier) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if keys == nil || runtime == nil || kv == nil {
		return nil, errors.New("engine needs a keyring, a runtime and a store")
	}
	return &Engine{
		cfg:     cfg,
		keys:    keys,
		runtime: runtime,
		kv:      kv,
		querier: querier,
		addrs:   cfg.addressCodec(),
		log:     log.New("module", "engine"),
	}, nil
}

// SetQuerier replaces the nested query router. It must not be called while
// calls are running.
func (e *Engine) SetQuerier(q vm.Querier) { e.querier = q }

// Addresses returns the bech32 codec the engine checks addresses with.
func (e *Engine) Addresses() *vm.AddressCodec { return e.addrs }

// Close releases the runtime. The keyring and the store belong to the caller.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// InstantiateResult is the outcome of Instantiate. Output is the encoded
// result envelope. AdminProof is zero when the contract has no admin.
type InstantiateResult struct {
	Output      []byte
	ContractKey types.ContractKey
	AdminProof  [32]byte
	GasUsed     uint64
}

// ExecuteResult is the outcome of Execute for every handle type.
type ExecuteResult struct {
	Output  []byte
	GasUsed uint64
}

// MigrateResult is the outcome of Migrate. KeyProof ties NewContractKey to
// the key it replaces, and AdminProof binds the admin to the new key.
type MigrateResult struct {
	Output         []byte
	NewContractKey types.ContractKey
	KeyProof       [32]byte
	AdminProof     [32]byte
	GasUsed        uint64
}

// QueryResult is the outcome of Query. Output holds the query envelope with
// the answer or the guest error encrypted for the querier.
type QueryResult struct {
	Output  []byte
	GasUsed uint64
}

// Instantiate creates the contract key of a new contract and runs its
// instantiate entry point. admin is the bech32 admin address, empty for an
// immutable contract.
func (e *Engine) Instantiate(ctx context.Context, gasLimit uint64, code, envBytes, msg, sigInfo []byte, admin string) (res *InstantiateResult, err error) {
	start := time.Now()
	defer func() { err = e.done(vm.OpInstantiate, start, err) }()

	c, env, err := e.prepare(code, envBytes)
	if err != nil {
		return nil, err
	}
	sender, err := e.canonical(env.Message.Sender)
	if err != nil {
		return nil, err
	}
	var adminC []byte
	if admin != "" {
		if adminC, err = e.canonical(admin); err != nil {
			return nil, err
		}
	}
	key, err := e.keys.ContractKey(sender, c.contract, env.Block.Height, c.code.Hash)
	if err != nil {
		return nil, err
	}
	sig, err := types.ParseSigInfo(sigInfo)
	if err != nil {
		return nil, err
	}
	err = e.verifySignature(sig, &signedCall{
		msgType:   MsgTypeInstantiate,
		chainID:   env.Block.ChainID,
		sender:    env.Message.Sender,
		senderC:   sender,
		msg:       msg,
		funds:     env.Message.SentFunds,
		callbacks: true,
	})
	if err != nil {
		return nil, err
	}
	if err := e.openMessage(c, msg); err != nil {
		return nil, err
	}
	if c.stateKey, err = e.keys.StateKey(key); err != nil {
		return nil, err
	}
	c.op, c.entry = vm.OpInstantiate, vm.EntryInstantiate
	c.contractKey = key
	c.info = &env.Message

	out, used, err := e.run(ctx, c, gasLimit)
	if err != nil {
		return nil, err
	}
	res = &InstantiateResult{Output: out, ContractKey: key, GasUsed: used}
	if adminC != nil {
		if res.AdminProof, err = e.keys.AdminProof(adminC, key); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Execute runs an execute-like entry point selected by handle.
func (e *Engine) Execute(ctx context.Context, gasLimit uint64, code, envBytes, msg, sigInfo []byte, handle types.HandleType) (res *ExecuteResult, err error) {
	start := time.Now()
	defer func() { err = e.done(vm.OpExecute, start, err) }()

	c, env, err := e.prepare(code, envBytes)
	if err != nil {
		return nil, err
	}
	if err := e.checkContractKey(c, env); err != nil {
		return nil, err
	}
	sig, err := types.ParseSigInfo(sigInfo)
	if err != nil {
		return nil, err
	}
	c.op, c.entry, c.handle = vm.OpExecute, handle.EntryPoint(), handle

	switch {
	case handle == types.HandleTypeExecute:
		sender, err := e.canonical(env.Message.Sender)
		if err != nil {
			return nil, err
		}
		err = e.verifySignature(sig, &signedCall{
			msgType:   MsgTypeExecute,
			chainID:   env.Block.ChainID,
			sender:    env.Message.Sender,
			senderC:   sender,
			contract:  env.Contract.Address,
			msg:       msg,
			funds:     env.Message.SentFunds,
			callbacks: true,
		})
		if err != nil {
			return nil, err
		}
		if err := e.openMessage(c, msg); err != nil {
			return nil, err
		}
		c.info = &env.Message
	case handle == types.HandleTypeReply:
		if err := e.openReply(c, msg, sig); err != nil {
			return nil, err
		}
	case handle.IsIbc():
		if !json.Valid(msg) {
			return nil, fmt.Errorf("%w: %s input", ErrInvalidMessage, handle)
		}
		c.msg = msg
		// Packet callbacks have no end-user signer.
		c.info = &types.MessageInfo{}
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownHandleType, handle)
	}

	out, used, err := e.run(ctx, c, gasLimit)
	if err != nil {
		return nil, err
	}
	return &ExecuteResult{Output: out, GasUsed: used}, nil
}

// Migrate moves a contract to new code. The sender must be the admin proven
// by adminProof. The contract gets a new key chained to the current one; its
// state stays encrypted under the original key.
func (e *Engine) Migrate(ctx context.Context, gasLimit uint64, code, envBytes, msg, sigInfo []byte, admin string, adminProof []byte) (res *MigrateResult, err error) {
	start := time.Now()
	defer func() { err = e.done(vm.OpMigrate, start, err) }()

	c, env, err := e.prepare(code, envBytes)
	if err != nil {
		return nil, err
	}
	if err := e.checkContractKey(c, env); err != nil {
		return nil, err
	}
	sender, err := e.authorizeAdmin(c, env, admin, adminProof)
	if err != nil {
		return nil, err
	}
	sig, err := types.ParseSigInfo(sigInfo)
	if err != nil {
		return nil, err
	}
	err = e.verifySignature(sig, &signedCall{
		msgType:   MsgTypeMigrate,
		chainID:   env.Block.ChainID,
		sender:    env.Message.Sender,
		senderC:   sender,
		contract:  env.Contract.Address,
		msg:       msg,
		funds:     env.Message.SentFunds,
		callbacks: true,
	})
	if err != nil {
		return nil, err
	}
	if err := e.openMessage(c, msg); err != nil {
		return nil, err
	}
	current := c.contractKey
	next, err := e.keys.MigratedContractKey(current, sender, c.contract, env.Block.Height, c.code.Hash)
	if err != nil {
		return nil, err
	}
	c.op, c.entry = vm.OpMigrate, vm.EntryMigrate

	out, used, err := e.run(ctx, c, gasLimit)
	if err != nil {
		return nil, err
	}
	res = &MigrateResult{Output: out, NewContractKey: next, GasUsed: used}
	if res.KeyProof, err = e.keys.KeyProof(current, next); err != nil {
		return nil, err
	}
	if res.AdminProof, err = e.keys.AdminProof(sender, next); err != nil {
		return nil, err
	}
	return res, nil
}

// Query runs the query entry point with writes refused.
func (e *Engine) Query(ctx context.Context, gasLimit uint64, code, envBytes, msg []byte) (res *QueryResult, err error) {
	start := time.Now()
	defer func() { err = e.done(vm.OpQuery, start, err) }()

	depth, err := types.QueryDepthOf(envBytes)
	if err != nil {
		return nil, err
	}
	if depth > e.cfg.MaxQueryDepth {
		return nil, fmt.Errorf("%w: %d > %d", ErrQueryDepthInEnv, depth, e.cfg.MaxQueryDepth)
	}
	c, env, err := e.prepare(code, envBytes)
	if err != nil {
		return nil, err
	}
	if err := e.checkContractKey(c, env); err != nil {
		return nil, err
	}
	if err := e.openMessage(c, msg); err != nil {
		return nil, err
	}
	c.op, c.entry, c.depth = vm.OpQuery, vm.EntryQuery, depth

	out, used, err := e.run(ctx, c, gasLimit)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Output: out, GasUsed: used}, nil
}

// UpdateAdmin moves the admin role to newAdmin and returns its proof. An
// empty newAdmin clears the admin and returns a zero proof.
func (e *Engine) UpdateAdmin(ctx context.Context, envBytes, sigInfo []byte, currentAdmin string, currentAdminProof []byte, newAdmin string) (proof [32]byte, err error) {
	start := time.Now()
	defer func() {
		err = classify(err)
		updateAdminStats.track(start, err)
		if err != nil {
			e.log.Debug("Admin update rejected", "err", err)
		}
	}()

	env, err := types.ParseEnv(envBytes)
	if err != nil {
		return proof, err
	}
	c := &call{env: env}
	if c.contract, err = e.canonical(env.Contract.Address); err != nil {
		return proof, err
	}
	if err := e.checkContractKey(c, env); err != nil {
		return proof, err
	}
	sender, err := e.authorizeAdmin(c, env, currentAdmin, currentAdminProof)
	if err != nil {
		return proof, err
	}
	var newAdminC []byte
	msgType := MsgTypeClearAdmin
	if newAdmin != "" {
		if newAdminC, err = e.canonical(newAdmin); err != nil {
			return proof, err
		}
		msgType = MsgTypeUpdateAdmin
	}
	sig, err := types.ParseSigInfo(sigInfo)
	if err != nil {
		return proof, err
	}
	err = e.verifySignature(sig, &signedCall{
		msgType:  msgType,
		chainID:  env.Block.ChainID,
		sender:   env.Message.Sender,
		senderC:  sender,
		contract: env.Contract.Address,
		newAdmin: newAdmin,
	})
	if err != nil {
		return proof, err
	}
	if newAdminC == nil {
		return proof, nil
	}
	return e.keys.AdminProof(newAdminC, c.contractKey)
}

// done classifies err and records the call.
func (e *Engine) done(op vm.Operation, start time.Time, err error) error {
	err = classify(err)
	opStats[op].track(start, err)
	if err != nil {
		e.log.Debug("Contract call failed", "op", op, "code", CodeOf(err), "err", err)
	}
	return err
}

// canonical decodes a bech32 address of a call parameter.
func (e *Engine) canonical(human string) ([]byte, error) {
	b, err := e.addrs.Canonicalize(human)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, human, err)
	}
	return b, nil
}

// authorizeAdmin checks that the sender is the admin the proof was issued to
// under the contract's current key. It returns the sender's canonical address.
func (e *Engine) authorizeAdmin(c *call, env *types.Env, admin string, proof []byte) ([]byte, error) {
	adminC, err := e.canonical(admin)
	if err != nil {
		return nil, err
	}
	ok, err := e.keys.VerifyAdminProof(adminC, c.contractKey, proof)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidAdminProof
	}
	sender, err := e.canonical(env.Message.Sender)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(sender, adminC) {
		return nil, fmt.Errorf("%w: %s", ErrNotAdmin, env.Message.Sender)
	}
	return sender, nil
}

// checkContractKey authenticates the stored key of an existing contract and
// its migration lineage, then sets the state key.
func (e *Engine) checkContractKey(c *call, env *types.Env) error {
	info := env.ContractKey
	if info == nil {
		return ErrMissingContractKey
	}
	current, err := types.BytesToContractKey(info.Key)
	if err != nil {
		return err
	}
	if err := e.verifyKey(current, c.contract); err != nil {
		return err
	}
	original := current
	if og := info.Original; og != nil {
		if original, err = types.BytesToContractKey(og.OgKey); err != nil {
			return err
		}
		if err := e.verifyKey(original, c.contract); err != nil {
			return err
		}
		prev := original
		if len(og.PrevKey) > 0 {
			if prev, err = types.BytesToContractKey(og.PrevKey); err != nil {
				return err
			}
		}
		ok, err := e.keys.VerifyKeyProof(prev, current, og.KeyProof)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidKeyProof
		}
	}
	c.contractKey = current
	c.stateKey, err = e.keys.StateKey(original)
	return err
}

func (e *Engine) verifyKey(key types.ContractKey, contract []byte) error {
	ok, err := e.keys.VerifyContractKey(key, contract)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: tag mismatch", types.ErrInvalidContractKey)
	}
	return nil
}

// openMessage decrypts a user message addressed to this contract's code and
// splits off any reply chain.
func (e *Engine) openMessage(c *call, msg []byte) error {
	m, err := secretmsg.ParseSecretMessage(msg)
	if err != nil {
		return err
	}
	plain, key, err := m.Decrypt(e.keys)
	if err != nil {
		return err
	}
	params, body, err := secretmsg.SplitForContract(plain, c.code.HashHex())
	if err != nil {
		return err
	}
	if !json.Valid(body) {
		return ErrInvalidMessage
	}
	c.message, c.key, c.replyParams, c.msg = m, key, params, body
	return nil
}

// openReply authenticates the result of a sub-message and turns it into the
// guest's reply argument. The reply travels as the dispatching call's header
// followed by the plaintext reply JSON.
func (e *Engine) openReply(c *call, msg []byte, sig *types.SigInfo) error {
	m, err := secretmsg.ParseSecretMessage(msg)
	if err != nil {
		return err
	}
	var reply types.Reply
	if err := json.Unmarshal(m.Msg, &reply); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	key, err := m.Key(e.keys)
	if err != nil {
		return err
	}
	rawID, err := secretmsg.DecryptString(key, reply.ID)
	if err != nil {
		return err
	}
	if len(rawID) != 8 {
		return fmt.Errorf("%w: id of %d bytes", ErrInvalidReply, len(rawID))
	}
	guest := types.GuestReply{ID: binary.BigEndian.Uint64(rawID)}

	switch res := reply.Result; {
	case res.Ok != nil && res.Error != nil, res.Ok == nil && res.Error == nil:
		return fmt.Errorf("%w: result must be either ok or error", ErrInvalidReply)
	case res.Ok != nil:
		resp := &types.SubMsgResponse{Events: res.Ok.Events}
		if len(sig.CallbackSig) == 0 {
			if res.Ok.Data != nil {
				return fmt.Errorf("%w: unsigned reply carries data", ErrInvalidReplySig)
			}
		} else {
			if err := e.verifyReplySig(reply.ID, true, res.Ok.Data, sig.CallbackSig); err != nil {
				return err
			}
			plain, err := secretmsg.Decrypt(key, res.Ok.Data)
			if err != nil {
				return err
			}
			params, data, err := secretmsg.SplitForContract(plain, c.code.HashHex())
			if err != nil {
				return err
			}
			c.replyParams = params
			if len(data) > 0 {
				resp.Data = data
			}
		}
		guest.Result.Ok = resp
	default:
		text, err := e.openFailure(key, reply.ID, *res.Error, sig.CallbackSig)
		if err != nil {
			return err
		}
		guest.Result.Error = &text
	}

	body, err := json.Marshal(guest)
	if err != nil {
		return err
	}
	c.message, c.key, c.msg = m, key, body
	return nil
}

// openFailure returns the error a failed sub-message reports to its
// dispatcher. A signed error is the guest's own, encrypted. An unsigned one
// can only be an enclave failure report, whose reason, if any, is sealed
// under the call key.
func (e *Engine) openFailure(key [secretmsg.KeySize]byte, id, text string, sig []byte) (string, error) {
	if len(sig) > 0 {
		if err := e.verifyReplySig(id, false, []byte(text), sig); err != nil {
			return "", err
		}
		plain, err := secretmsg.DecryptString(key, text)
		if err != nil {
			return "", err
		}
		return string(plain), nil
	}
	code, reason, ok := parseFailure(text)
	if !ok {
		return "", fmt.Errorf("%w: unsigned error is not an enclave failure", ErrInvalidReplySig)
	}
	if reason == "" {
		return code.String(), nil
	}
	plain, err := secretmsg.DecryptString(key, reason)
	if err != nil {
		return "", fmt.Errorf("%w: failure reason: %v", ErrInvalidReply, err)
	}
	return code.String() + failureSep + string(plain), nil
}

func (e *Engine) verifyReplySig(id string, ok bool, payload, sig []byte) error {
	valid, err := e.keys.VerifyReplySig(output.ReplySigPayload(id, ok, payload), sig)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidReplySig
	}
	return nil
}

// call is the per-call state assembled by an operation before the guest runs.
type call struct {
	op     vm.Operation
	entry  string // v1 name of the entry point
	handle types.HandleType

	code        *types.ContractCode
	env         *types.Env
	contract    []byte
	contractKey types.ContractKey
	stateKey    [32]byte
	depth       uint32

	message     *secretmsg.SecretMessage // nil for plaintext calls
	key         [secretmsg.KeySize]byte
	replyParams []types.ReplyParam
	msg         []byte
	info        *types.MessageInfo // nil for entry points without a sender
}

func (e *Engine) prepare(code, envBytes []byte) (*call, *types.Env, error) {
	env, err := types.ParseEnv(envBytes)
	if err != nil {
		return nil, nil, err
	}
	contract, err := e.canonical(env.Contract.Address)
	if err != nil {
		return nil, nil, err
	}
	return &call{code: types.NewContractCode(code), env: env, contract: contract}, env, nil
}

// contractStore scopes the backing store to one contract. The length byte
// keeps 20 and 32 byte addresses from sharing a prefix.
func (e *Engine) contractStore(contract []byte) storage.KV {
	prefix := make([]byte, 0, 1+len(contract))
	prefix = append(prefix, byte(len(contract)))
	return storage.Prefixed(e.kv, append(prefix, contract...))
}

// run executes the guest and post-processes its output. State is written
// back only when the guest succeeded in a call that may write.
func (e *Engine) run(ctx context.Context, c *call, gasLimit uint64) ([]byte, uint64, error) {
	gas := vm.NewGasState(gasLimit)
	store := state.New(e.contractStore(c.contract), c.stateKey)
	cc := &vm.CallContext{
		Operation:   c.op,
		AllowWrites: c.op != vm.OpQuery,
		Env:         c.env,
		Contract:    c.contract,
		CodeHash:    c.code.HashHex(),
		QueryDepth:  c.depth,
		MaxDepth:    e.cfg.MaxQueryDepth,
		Gas:         gas,
		Store:       store,
		Querier:     e.querier,
		Addresses:   e.addrs,
		Message:     c.message,
		CallKey:     c.key,
	}
	bridge := vm.NewHostBridge(cc)
	if e.cfg.GuestDebug {
		bridge.EnableDebug()
	}

	out, failed, err := e.invoke(ctx, c, bridge)
	if err == nil && !failed && cc.AllowWrites {
		err = store.Flush(func(key, value []byte, removed bool) error {
			return gas.ChargeHost(vm.StorageWriteCost(key, value, removed))
		})
	}
	if err != nil || failed || !cc.AllowWrites {
		store.Discard()
	}
	used := gas.Used()
	gasMeter.Mark(int64(used))
	if failed {
		guestErrorCounter.Inc(1)
	}
	if err != nil {
		return nil, used, e.sealFailure(c, err)
	}
	e.log.Debug("Contract call", "op", c.op, "handle", c.handle, "code", cc.CodeHash, "gas", used, "failed", failed)
	return out, used, nil
}

// sealFailure keeps a guest abort reason out of the failure the chain sees.
// The reason is encrypted under the call key, or dropped for plaintext calls.
func (e *Engine) sealFailure(c *call, err error) error {
	var p *vm.PanicError
	if !errors.As(err, &p) {
		return err
	}
	if e.cfg.GuestDebug {
		e.log.Debug("Contract panicked", "code", c.code.HashHex(), "reason", p.Reason)
	}
	ee := &EnclaveError{Code: CodeContractPanic, Err: err}
	if c.message == nil || p.Reason == "" {
		return ee
	}
	reason, sealErr := secretmsg.EncryptString(c.key, []byte(p.Reason))
	if sealErr != nil {
		return sealErr
	}
	ee.Reason = reason
	return ee
}

func (e *Engine) invoke(ctx context.Context, c *call, bridge *vm.HostBridge) ([]byte, bool, error) {
	inst, err := e.runtime.Load(ctx, c.code.Code, bridge)
	if err != nil {
		return nil, false, err
	}
	defer inst.Close(ctx)

	v := inst.Version()
	entry, err := resolveEntry(v, c)
	if err != nil {
		return nil, false, err
	}
	args, err := guestArgs(v, entry, c)
	if err != nil {
		return nil, false, err
	}
	raw, err := vm.CallEntry(ctx, inst, entry, args...)
	if err != nil {
		return nil, false, err
	}

	oc := &output.Call{
		Kind:        output.KindFor(v, entry),
		CodeHash:    c.code.HashHex(),
		Contract:    c.contract,
		ReplyParams: c.replyParams,
		Message:     c.message,
		Key:         c.key,
		Signer:      e.keys,
	}
	parsed, err := output.Parse(oc.Kind, raw)
	if err != nil {
		return nil, false, err
	}
	out, err := oc.Finish(parsed)
	if err != nil {
		return nil, false, err
	}
	return out, parsed.Failed(), nil
}

// resolveEntry maps the operation to the export name of version v.
func resolveEntry(v vm.Version, c *call) (string, error) {
	switch c.op {
	case vm.OpInstantiate:
		return v.InstantiateEntry(), nil
	case vm.OpExecute:
		if v == vm.Version010 && c.entry != vm.EntryExecute {
			return "", fmt.Errorf("%w: %s on %s", ErrUnsupportedHandle, c.handle, v)
		}
		return v.ExecuteEntry(c.entry), nil
	}
	return c.entry, nil
}

// guestInfo is the message info argument of v1 entry points.
type guestInfo struct {
	Sender string       `json:"sender"`
	Funds  []types.Coin `json:"funds"`
}

// guestArgs builds the JSON arguments in the calling convention of v.
func guestArgs(v vm.Version, entry string, c *call) ([][]byte, error) {
	var info types.MessageInfo
	if c.info != nil {
		info = *c.info
	}
	if info.SentFunds == nil {
		info.SentFunds = []types.Coin{}
	}

	var env any
	if v == vm.Version010 {
		ge := &types.GuestEnvV010{
			Block:            c.env.Block,
			Message:          info,
			Contract:         c.env.Contract,
			ContractCodeHash: c.code.HashHex(),
		}
		if !c.contractKey.IsZero() {
			ge.ContractKey = base64.StdEncoding.EncodeToString(c.contractKey[:])
		}
		env = ge
	} else {
		env = &types.GuestEnv{Block: c.env.Block, Contract: c.env.Contract, Transaction: c.env.Transaction}
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if !v.TakesInfo(entry) {
		return [][]byte{envJSON, c.msg}, nil
	}
	infoJSON, err := json.Marshal(guestInfo{Sender: info.Sender, Funds: info.SentFunds})
	if err != nil {
		return nil, err
	}
	return [][]byte{envJSON, infoJSON, c.msg}, nil
}
