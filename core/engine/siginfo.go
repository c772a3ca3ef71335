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

package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"

	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

// Message types of the signed transaction messages the engine accepts.
const (
	MsgTypeInstantiate = "wasm/MsgInstantiateContract"
	MsgTypeExecute     = "wasm/MsgExecuteContract"
	MsgTypeMigrate     = "wasm/MsgMigrateContract"
	MsgTypeUpdateAdmin = "wasm/MsgUpdateAdmin"
	MsgTypeClearAdmin  = "wasm/MsgClearAdmin"
)

const (
	pubKeySize    = 33
	signatureSize = 64
)

// SignDoc is the document the user signs. Only the fields the engine checks
// are decoded.
type SignDoc struct {
	ChainID string      `json:"chain_id"`
	Msgs    []SignedMsg `json:"msgs"`
}

type SignedMsg struct {
	Type  string         `json:"type"`
	Value SignedMsgValue `json:"value"`
}

type SignedMsgValue struct {
	Sender    string       `json:"sender"`
	Contract  string       `json:"contract,omitempty"`
	Msg       []byte       `json:"msg,omitempty"`
	InitMsg   []byte       `json:"init_msg,omitempty"`
	SentFunds []types.Coin `json:"sent_funds,omitempty"`
	InitFunds []types.Coin `json:"init_funds,omitempty"`
	NewAdmin  string       `json:"new_admin,omitempty"`
}

// signedCall is what a signature must cover.
type signedCall struct {
	msgType  string
	chainID  string
	sender   string
	senderC  []byte
	contract string // empty for instantiate, the address is not known at signing
	msg      []byte
	funds    []types.Coin
	newAdmin string
	// callbacks says whether an enclave callback signature may stand in for
	// the user signature.
	callbacks bool
}

// AccountAddress returns the canonical address controlled by a compressed
// secp256k1 public key.
func AccountAddress(pub []byte) []byte {
	sum := sha256.Sum256(pub)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// verifySignature authenticates a call either by the enclave callback
// signature of the dispatching contract named as sender or by the sender's signature over a
// sign doc that contains exactly this call.
func (e *Engine) verifySignature(sig *types.SigInfo, call *signedCall) error {
	if len(sig.CallbackSig) > 0 {
		if !call.callbacks {
			return fmt.Errorf("%w: callback signature on %s", ErrInvalidCallbackSig, call.msgType)
		}
		funds, err := types.CanonicalFunds(call.funds)
		if err != nil {
			return err
		}
		ok, err := e.keys.VerifyCallbackSig(call.senderC, call.msg, funds, sig.CallbackSig)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCallbackSig
		}
		return nil
	}

	if len(sig.PublicKey) != pubKeySize || len(sig.Signature) != signatureSize {
		return fmt.Errorf("%w: pubkey %d bytes, signature %d bytes", ErrInvalidSignature, len(sig.PublicKey), len(sig.Signature))
	}
	digest := sha256.Sum256(sig.SignBytes)
	if !crypto.VerifySignature(sig.PublicKey, digest[:], sig.Signature) {
		return ErrInvalidSignature
	}
	if !bytes.Equal(AccountAddress(sig.PublicKey), call.senderC) {
		return ErrSenderMismatch
	}

	var doc SignDoc
	if err := json.Unmarshal(sig.SignBytes, &doc); err != nil {
		return fmt.Errorf("%w: sign doc: %v", ErrMessageNotSigned, err)
	}
	if call.chainID != "" && doc.ChainID != call.chainID {
		return fmt.Errorf("%w: chain id %q", ErrMessageNotSigned, doc.ChainID)
	}
	for _, m := range doc.Msgs {
		if call.matches(&m) {
			return nil
		}
	}
	return fmt.Errorf("%w: no %s from %s", ErrMessageNotSigned, call.msgType, call.sender)
}

func (c *signedCall) matches(m *SignedMsg) bool {
	if m.Type != c.msgType || m.Value.Sender != c.sender {
		return false
	}
	v := &m.Value
	switch c.msgType {
	case MsgTypeInstantiate:
		return bytes.Equal(v.InitMsg, c.msg) && types.FundsEqual(v.InitFunds, c.funds)
	case MsgTypeExecute:
		return v.Contract == c.contract && bytes.Equal(v.Msg, c.msg) && types.FundsEqual(v.SentFunds, c.funds)
	case MsgTypeMigrate:
		return v.Contract == c.contract && bytes.Equal(v.Msg, c.msg)
	case MsgTypeUpdateAdmin:
		return v.Contract == c.contract && v.NewAdmin == c.newAdmin
	case MsgTypeClearAdmin:
		return v.Contract == c.contract
	}
	return false
}
