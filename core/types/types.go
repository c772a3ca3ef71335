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

// Package types contains the data model shared by the contract engine, the
// sandbox host bridge and the output post-processor.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidEnv         = errors.New("invalid env")
	ErrInvalidContractKey = errors.New("invalid contract key")
	ErrInvalidSigInfo     = errors.New("invalid sig info")
	ErrUnknownHandleType  = errors.New("unknown handle type")
)

// ContractCode is guest bytecode together with its content hash.
type ContractCode struct {
	Code []byte
	Hash common.Hash
}

// NewContractCode hashes the bytecode. The hash identifies the contract code
// and keys the compiled module cache.
func NewContractCode(code []byte) *ContractCode {
	return &ContractCode{Code: code, Hash: sha256.Sum256(code)}
}

// HashHex returns the lowercase hex form used in message prefixes.
func (c *ContractCode) HashHex() string {
	return hex.EncodeToString(c.Hash[:])
}

// ContractKeySize is KeyID (32) followed by an authentication tag (32).
const ContractKeySize = 64

// ContractKey is the per-instance secret that scopes state encryption.
type ContractKey [ContractKeySize]byte

// KeyID returns the first half, derived from public inputs.
func (k ContractKey) KeyID() []byte { return k[:32] }

// Tag returns the second half, only computable inside the enclave.
func (k ContractKey) Tag() []byte { return k[32:] }

func (k ContractKey) IsZero() bool { return k == ContractKey{} }

// BytesToContractKey rejects anything that is not exactly ContractKeySize long.
func BytesToContractKey(b []byte) (ContractKey, error) {
	var k ContractKey
	if len(b) != ContractKeySize {
		return k, fmt.Errorf("%w: length %d", ErrInvalidContractKey, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Coin is an amount of a single denomination. Amounts are decimal strings.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// ReplyParam is one hop of the call chain above the executing contract.
type ReplyParam struct {
	SubMsgID          uint64 `json:"sub_msg_id"`
	RecipientCodeHash string `json:"recipient_code_hash"`
}

// HandleType is the reason an execute-like entry point is invoked.
type HandleType uint8

const (
	HandleTypeExecute HandleType = iota
	HandleTypeReply
	HandleTypeIbcChannelOpen
	HandleTypeIbcChannelConnect
	HandleTypeIbcChannelClose
	HandleTypeIbcPacketReceive
	HandleTypeIbcPacketAck
	HandleTypeIbcPacketTimeout
	HandleTypeIbcWasmHooksIncomingTransfer
	HandleTypeIbcWasmHooksOutgoingTransferAck
	HandleTypeIbcWasmHooksOutgoingTransferTimeout
)

var handleTypeNames = [...]string{
	"execute",
	"reply",
	"ibc_channel_open",
	"ibc_channel_connect",
	"ibc_channel_close",
	"ibc_packet_receive",
	"ibc_packet_ack",
	"ibc_packet_timeout",
	"ibc_wasm_hooks_incoming_transfer",
	"ibc_wasm_hooks_outgoing_transfer_ack",
	"ibc_wasm_hooks_outgoing_transfer_timeout",
}

func (h HandleType) String() string {
	if int(h) < len(handleTypeNames) {
		return handleTypeNames[h]
	}
	return fmt.Sprintf("handle_type(%d)", uint8(h))
}

// ParseHandleType accepts the names returned by String.
func ParseHandleType(s string) (HandleType, error) {
	for i, name := range handleTypeNames {
		if name == s {
			return HandleType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownHandleType, s)
}

// IsIbc reports handle types that originate from a cross-chain packet and
// therefore carry plaintext input and no end-user signer.
func (h HandleType) IsIbc() bool {
	return h >= HandleTypeIbcChannelOpen
}

// EntryPoint is the guest export invoked for this handle type.
func (h HandleType) EntryPoint() string {
	switch h {
	case HandleTypeExecute, HandleTypeIbcWasmHooksIncomingTransfer:
		return "execute"
	case HandleTypeIbcWasmHooksOutgoingTransferAck, HandleTypeIbcWasmHooksOutgoingTransferTimeout:
		return "execute"
	case HandleTypeReply:
		return "reply"
	case HandleTypeIbcChannelOpen:
		return "ibc_channel_open"
	case HandleTypeIbcChannelConnect:
		return "ibc_channel_connect"
	case HandleTypeIbcChannelClose:
		return "ibc_channel_close"
	case HandleTypeIbcPacketReceive:
		return "ibc_packet_receive"
	case HandleTypeIbcPacketAck:
		return "ibc_packet_ack"
	case HandleTypeIbcPacketTimeout:
		return "ibc_packet_timeout"
	}
	return ""
}

// MarshalJSON keeps the wire representation stable across reorderings.
func (h HandleType) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *HandleType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseHandleType(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}
