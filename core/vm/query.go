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

package vm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
)

type queryRequest struct {
	Wasm *wasmQuery `json:"wasm,omitempty"`
}

type wasmQuery struct {
	Smart *smartQuery `json:"smart,omitempty"`
}

type smartQuery struct {
	ContractAddr     string `json:"contract_addr"`
	CodeHash         string `json:"code_hash,omitempty"`
	CallbackCodeHash string `json:"callback_code_hash,omitempty"`
	Msg              []byte `json:"msg"`
}

func (s *smartQuery) codeHash() string {
	if s.CodeHash != "" {
		return s.CodeHash
	}
	return s.CallbackCodeHash
}

// queryEnvelope is the output of the query operation of another contract.
type queryEnvelope struct {
	Query *struct {
		Ok  *string `json:"ok,omitempty"`
		Err *string `json:"err,omitempty"`
	} `json:"query"`
}

// systemResult and contractResult mirror the shapes the guest expects back
// from query_chain.
type systemResult struct {
	Ok    *contractResult `json:"ok,omitempty"`
	Error *systemError    `json:"error,omitempty"`
}

type contractResult struct {
	Ok    *[]byte `json:"ok,omitempty"`
	Error *string `json:"error,omitempty"`
}

type systemError struct {
	Unknown *struct{} `json:"unknown,omitempty"`
	Invalid *struct {
		Error   string `json:"error"`
		Request []byte `json:"request"`
	} `json:"invalid_request,omitempty"`
}

func invalidRequest(msg string, request []byte) []byte {
	out, _ := json.Marshal(systemResult{Error: &systemError{Invalid: &struct {
		Error   string `json:"error"`
		Request []byte `json:"request"`
	}{msg, request}}})
	return out
}

func unknownSystemError() []byte {
	out, _ := json.Marshal(systemResult{Error: &systemError{Unknown: &struct{}{}}})
	return out
}

// QueryChain runs a nested query one level deeper than the current call.
// Exceeding the depth limit is fatal rather than an error the guest could
// handle. Smart contract queries are encrypted with the current call's key,
// so the target decrypts them under the same user envelope, and the answer is
// decrypted before it is handed to the guest.
func (b *HostBridge) QueryChain(ctx context.Context, request []byte) ([]byte, error) {
	if err := b.charge(GasQueryBase); err != nil {
		return nil, err
	}
	next := b.cc.QueryDepth + 1
	if next > b.cc.MaxDepth {
		return nil, fmt.Errorf("%w: depth %d, max %d", ErrRecursionLimit, next, b.cc.MaxDepth)
	}
	if b.cc.Querier == nil {
		return unknownSystemError(), nil
	}

	var req queryRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return invalidRequest("failed to parse query request", request), nil
	}
	smart := req.Wasm != nil && req.Wasm.Smart != nil
	forward := request
	if smart {
		if b.cc.Plaintext() {
			return invalidRequest("contract queries need an encrypted call", request), nil
		}
		q := *req.Wasm.Smart
		plaintext := secretmsg.EncodeWithReplyChain(q.codeHash(), nil, q.Msg)
		enc, err := b.cc.Message.Reencrypt(b.cc.CallKey, plaintext)
		if err != nil {
			return nil, err
		}
		q.Msg = enc.Bytes()
		forward, err = json.Marshal(queryRequest{Wasm: &wasmQuery{Smart: &q}})
		if err != nil {
			return nil, err
		}
	}

	result, used, err := b.cc.Querier.Query(ctx, forward, b.cc.Gas.Remaining(), next)
	if chargeErr := b.charge(used); chargeErr != nil {
		return nil, chargeErr
	}
	if err != nil {
		if errors.Is(err, ErrRecursionLimit) || errors.Is(err, ErrOutOfGas) {
			return nil, err
		}
		b.logger.Debug("Nested query failed", "err", err)
		return unknownSystemError(), nil
	}
	if !smart {
		return result, nil
	}
	return b.decryptQueryResult(result, request)
}

func (b *HostBridge) decryptQueryResult(result, request []byte) ([]byte, error) {
	var env queryEnvelope
	if err := json.Unmarshal(result, &env); err != nil || env.Query == nil {
		return invalidRequest("malformed query response", request), nil
	}
	var cr contractResult
	switch {
	case env.Query.Ok != nil:
		plain, err := secretmsg.DecryptString(b.cc.CallKey, *env.Query.Ok)
		if err != nil {
			return nil, err
		}
		cr.Ok = &plain
	case env.Query.Err != nil:
		plain, err := secretmsg.DecryptString(b.cc.CallKey, *env.Query.Err)
		if err != nil {
			return nil, err
		}
		msg := string(plain)
		cr.Error = &msg
	default:
		return invalidRequest("empty query response", request), nil
	}
	return json.Marshal(systemResult{Ok: &cr})
}

// DecodeQueryResult unpacks a query_chain answer into raw result bytes or the
// contract error. It is the guest-side counterpart of QueryChain.
func DecodeQueryResult(b []byte) ([]byte, error) {
	var sr systemResult
	if err := json.Unmarshal(b, &sr); err != nil {
		return nil, err
	}
	switch {
	case sr.Error != nil:
		raw, _ := json.Marshal(sr.Error)
		return nil, fmt.Errorf("system error: %s", raw)
	case sr.Ok == nil:
		return nil, errors.New("empty query result")
	case sr.Ok.Error != nil:
		return nil, errors.New(*sr.Ok.Error)
	}
	if sr.Ok.Ok == nil {
		return nil, errors.New("empty query result")
	}
	return *sr.Ok.Ok, nil
}
