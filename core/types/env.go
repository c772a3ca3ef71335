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

package types

import (
	"encoding/json"
	"fmt"
)

// Env is the environment supplied by the chain for every call.
type Env struct {
	Block       BlockInfo        `json:"block"`
	Message     MessageInfo      `json:"message"`
	Contract    ContractInfo     `json:"contract"`
	Transaction *TransactionInfo `json:"transaction,omitempty"`
	ContractKey *ContractKeyInfo `json:"contract_key,omitempty"`
}

type BlockInfo struct {
	Height  uint64 `json:"height"`
	Time    uint64 `json:"time,string"`
	ChainID string `json:"chain_id"`
	Random  []byte `json:"random,omitempty"`
}

// MessageInfo identifies the sender and the funds moved with the call.
type MessageInfo struct {
	Sender    string `json:"sender"`
	SentFunds []Coin `json:"sent_funds"`
}

type ContractInfo struct {
	Address string `json:"address"`
}

type TransactionInfo struct {
	Index uint32 `json:"index"`
}

// ContractKeyInfo carries the stored key of an existing contract. Original is
// set once the contract has been migrated at least once.
type ContractKeyInfo struct {
	Key      []byte               `json:"key"`
	Original *OriginalContractKey `json:"original,omitempty"`
}

type OriginalContractKey struct {
	OgKey    []byte `json:"og_key"`
	KeyProof []byte `json:"key_proof"`
	PrevKey  []byte `json:"prev_key,omitempty"`
}

// ParseEnv decodes env bytes and checks the fields every operation relies on.
func ParseEnv(b []byte) (*Env, error) {
	var env Env
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnv, err)
	}
	if env.Contract.Address == "" {
		return nil, fmt.Errorf("%w: missing contract address", ErrInvalidEnv)
	}
	return &env, nil
}

// queryDepthEnv reads the single recursion counter out of the env bytes
// without coupling it to the Env schema.
type queryDepthEnv struct {
	QueryDepth uint32 `json:"query_depth"`
}

// QueryDepthOf returns the query recursion depth carried by env. Absent means 0.
func QueryDepthOf(env []byte) (uint32, error) {
	var d queryDepthEnv
	if err := json.Unmarshal(env, &d); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEnv, err)
	}
	return d.QueryDepth, nil
}

// WithQueryDepth re-encodes env with the given recursion depth.
func WithQueryDepth(env []byte, depth uint32) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(env, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnv, err)
	}
	raw, _ := json.Marshal(depth)
	m["query_depth"] = raw
	return json.Marshal(m)
}

// GuestEnv is what the contract sees for interface version 1: no sender,
// no key material.
type GuestEnv struct {
	Block       BlockInfo        `json:"block"`
	Contract    ContractInfo     `json:"contract"`
	Transaction *TransactionInfo `json:"transaction,omitempty"`
}

// GuestEnvV010 additionally embeds the message info.
type GuestEnvV010 struct {
	Block            BlockInfo    `json:"block"`
	Message          MessageInfo  `json:"message"`
	Contract         ContractInfo `json:"contract"`
	ContractKey      string       `json:"contract_key,omitempty"`
	ContractCodeHash string       `json:"contract_code_hash"`
}

// SigInfo authenticates the call. CallbackSig replaces the user signature on
// contract-to-contract messages.
type SigInfo struct {
	SignBytes   []byte `json:"sign_bytes"`
	SignMode    string `json:"sign_mode"`
	ModeInfo    []byte `json:"mode_info"`
	PublicKey   []byte `json:"public_key"`
	Signature   []byte `json:"signature"`
	CallbackSig []byte `json:"callback_sig"`
}

func ParseSigInfo(b []byte) (*SigInfo, error) {
	var s SigInfo
	if len(b) == 0 {
		return &s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSigInfo, err)
	}
	return &s, nil
}
