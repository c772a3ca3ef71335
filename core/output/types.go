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

package output

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
	"github.com/scrtlabs/SecretNetwork-sub000/core/vm"
)

var (
	ErrInvalidOutput = errors.New("invalid contract output")
	ErrMissingSigner = errors.New("encrypted output needs a signer")
)

// Kind selects the result shape of a call and its wire envelope key.
type Kind uint8

const (
	KindV010 Kind = iota
	KindV1
	KindQuery
	KindIbcBasic
	KindIbcPacketReceive
	KindIbcChannelOpen
)

func (k Kind) String() string {
	switch k {
	case KindV010:
		return "v010"
	case KindV1:
		return "v1"
	case KindQuery:
		return "query"
	case KindIbcBasic:
		return "ibc_basic"
	case KindIbcPacketReceive:
		return "ibc_packet_receive"
	case KindIbcChannelOpen:
		return "ibc_channel_open"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KindFor maps a guest entry point to the shape of its result.
func KindFor(v vm.Version, entry string) Kind {
	switch entry {
	case vm.EntryQuery:
		return KindQuery
	case types.HandleTypeIbcChannelOpen.EntryPoint():
		return KindIbcChannelOpen
	case types.HandleTypeIbcPacketReceive.EntryPoint():
		return KindIbcPacketReceive
	case types.HandleTypeIbcChannelConnect.EntryPoint(), types.HandleTypeIbcChannelClose.EntryPoint(),
		types.HandleTypeIbcPacketAck.EntryPoint(), types.HandleTypeIbcPacketTimeout.EntryPoint():
		return KindIbcBasic
	}
	if v == vm.Version010 {
		return KindV010
	}
	return KindV1
}

// ReplyOn says when the dispatching contract wants to hear back.
type ReplyOn string

const (
	ReplyAlways  ReplyOn = "always"
	ReplySuccess ReplyOn = "success"
	ReplyError   ReplyOn = "error"
	ReplyNever   ReplyOn = "never"
)

func (r ReplyOn) WantsReply() bool { return r != "" && r != ReplyNever }

// SubMsg is a message dispatched by a contract. ID is replaced by 0 on the
// way out; the real id travels encrypted in EncryptedID.
type SubMsg struct {
	ID              uint64    `json:"id"`
	Msg             CosmosMsg `json:"msg"`
	GasLimit        *uint64   `json:"gas_limit"`
	ReplyOn         ReplyOn   `json:"reply_on"`
	WasMsgEncrypted bool      `json:"was_msg_encrypted"`
	EncryptedID     string    `json:"encrypted_id,omitempty"`
}

// CosmosMsg keeps messages other than wasm execute and instantiate as the
// raw JSON the guest produced.
type CosmosMsg struct {
	Wasm *WasmMsg
	raw  json.RawMessage
}

type WasmMsg struct {
	Execute     *WasmExecute     `json:"execute,omitempty"`
	Instantiate *WasmInstantiate `json:"instantiate,omitempty"`
}

type WasmExecute struct {
	ContractAddr     string       `json:"contract_addr"`
	CodeHash         string       `json:"code_hash,omitempty"`
	CallbackCodeHash string       `json:"callback_code_hash,omitempty"`
	Msg              []byte       `json:"msg"`
	Funds            []types.Coin `json:"funds,omitempty"`
	Send             []types.Coin `json:"send,omitempty"`
	CallbackSig      []byte       `json:"callback_sig,omitempty"`
}

type WasmInstantiate struct {
	CodeID           uint64       `json:"code_id"`
	CodeHash         string       `json:"code_hash,omitempty"`
	CallbackCodeHash string       `json:"callback_code_hash,omitempty"`
	Msg              []byte       `json:"msg"`
	Funds            []types.Coin `json:"funds,omitempty"`
	Send             []types.Coin `json:"send,omitempty"`
	Label            string       `json:"label"`
	Admin            string       `json:"admin,omitempty"`
	CallbackSig      []byte       `json:"callback_sig,omitempty"`
}

type wasmEnvelope struct {
	Wasm *WasmMsg `json:"wasm"`
}

func (m *CosmosMsg) UnmarshalJSON(b []byte) error {
	var peek wasmEnvelope
	if err := json.Unmarshal(b, &peek); err != nil {
		return err
	}
	m.raw = append(json.RawMessage(nil), b...)
	m.Wasm = nil
	if peek.Wasm != nil && (peek.Wasm.Execute != nil || peek.Wasm.Instantiate != nil) {
		m.Wasm = peek.Wasm
	}
	return nil
}

func (m CosmosMsg) MarshalJSON() ([]byte, error) {
	if m.Wasm != nil {
		return json.Marshal(wasmEnvelope{Wasm: m.Wasm})
	}
	if len(m.raw) == 0 {
		return []byte("null"), nil
	}
	return m.raw, nil
}

// Message returns the payload of the call.
func (w *WasmMsg) Message() []byte {
	if w.Execute != nil {
		return w.Execute.Msg
	}
	return w.Instantiate.Msg
}

func (w *WasmMsg) setMessage(msg []byte) {
	if w.Execute != nil {
		w.Execute.Msg = msg
		return
	}
	w.Instantiate.Msg = msg
}

// CodeHash is the code hash of the recipient.
func (w *WasmMsg) CodeHash() string {
	if w.Execute != nil {
		return firstNonEmpty(w.Execute.CodeHash, w.Execute.CallbackCodeHash)
	}
	return firstNonEmpty(w.Instantiate.CodeHash, w.Instantiate.CallbackCodeHash)
}

// Funds returns the coins attached to the call.
func (w *WasmMsg) Funds() []types.Coin {
	if w.Execute != nil {
		return concatCoins(w.Execute.Funds, w.Execute.Send)
	}
	return concatCoins(w.Instantiate.Funds, w.Instantiate.Send)
}

func (w *WasmMsg) CallbackSig() []byte {
	if w.Execute != nil {
		return w.Execute.CallbackSig
	}
	return w.Instantiate.CallbackSig
}

func (w *WasmMsg) setCallbackSig(sig []byte) {
	if w.Execute != nil {
		w.Execute.CallbackSig = sig
		return
	}
	w.Instantiate.CallbackSig = sig
}

func concatCoins(a, b []types.Coin) []types.Coin {
	out := make([]types.Coin, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Response is the success body of v1 and IBC results.
type Response struct {
	Messages        []SubMsg          `json:"messages"`
	Attributes      []types.Attribute `json:"attributes"`
	Events          []types.Event     `json:"events"`
	Data            []byte            `json:"data,omitempty"`
	Acknowledgement []byte            `json:"acknowledgement,omitempty"`
}

// V010Response is the success body of v0.10 init and handle.
type V010Response struct {
	Messages []CosmosMsg       `json:"messages"`
	Log      []types.Attribute `json:"log"`
	Data     []byte            `json:"data,omitempty"`
}

type ChannelOpenResponse struct {
	Version string `json:"version"`
}
