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
	"fmt"
)

// Envelope is the wire form of a call result. Exactly one of the variant
// fields is set. The internal reply fields are read by the chain and never
// reach a contract.
type Envelope struct {
	V010             *Result      `json:"v010,omitempty"`
	V1               *Result      `json:"v1,omitempty"`
	Query            *QueryResult `json:"query,omitempty"`
	IbcBasic         *Result      `json:"ibc_basic,omitempty"`
	IbcPacketReceive *Result      `json:"ibc_packet_receive,omitempty"`
	IbcChannelOpen   *Result      `json:"ibc_channel_open,omitempty"`

	InternalReplyEnclaveSig []byte `json:"internal_reply_enclave_sig,omitempty"`
	InternalMsgID           string `json:"internal_msg_id,omitempty"`
}

type Result struct {
	Ok  json.RawMessage `json:"ok,omitempty"`
	Err *StdError       `json:"err,omitempty"`
}

type StdError struct {
	GenericErr *GenericErr `json:"generic_err,omitempty"`
}

type GenericErr struct {
	Msg string `json:"msg"`
}

type QueryResult struct {
	Ok  *string `json:"ok,omitempty"`
	Err *string `json:"err,omitempty"`
}

// ParseEnvelope decodes a finalized result.
func ParseEnvelope(b []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &env, nil
}

// Result returns the populated variant other than Query.
func (e *Envelope) Result() *Result {
	for _, r := range []*Result{e.V010, e.V1, e.IbcBasic, e.IbcPacketReceive, e.IbcChannelOpen} {
		if r != nil {
			return r
		}
	}
	return nil
}

// Response decodes the success body of a v1 or IBC result.
func (r *Result) Response() (*Response, error) {
	var resp Response
	if err := json.Unmarshal(r.Ok, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &resp, nil
}

// V010Response decodes the success body of a v0.10 result.
func (r *Result) V010Response() (*V010Response, error) {
	var resp V010Response
	if err := json.Unmarshal(r.Ok, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &resp, nil
}

// ErrorMessage returns the (encrypted) error text, or "" for success.
func (r *Result) ErrorMessage() string {
	if r.Err == nil || r.Err.GenericErr == nil {
		return ""
	}
	return r.Err.GenericErr.Msg
}
