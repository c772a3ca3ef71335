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

// Package output turns a raw guest result into the wire envelope returned to
// the chain. Processing is a fixed sequence of stages, each consuming the
// type produced by the previous one:
//
//	Parse -> AttachReplyHeaders -> Encrypt -> CreateCallbackSignatures -> AdaptForReply -> Finalize
//
// A stage takes ownership of its input.
package output

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

// Signer authenticates messages leaving the enclave. keyring.Handle
// implements it.
type Signer interface {
	CallbackSig(sender, msg, funds []byte) ([32]byte, error)
	ReplySig(payload []byte) ([32]byte, error)
}

// Call describes the call whose result is being processed.
type Call struct {
	Kind     Kind
	CodeHash string // code hash of the running contract
	Contract []byte // canonical address of the running contract
	// ReplyParams is the call chain above this call, innermost first. It is
	// non-empty when the caller asked for a reply.
	ReplyParams []types.ReplyParam
	// Message is the envelope of the call input. Nil marks a plaintext call,
	// whose output is neither encrypted nor signed.
	Message *secretmsg.SecretMessage
	Key     [secretmsg.KeySize]byte
	Signer  Signer
}

func (c *Call) plaintext() bool { return c.Message == nil }

// body is the result content shared by all stages.
type body struct {
	kind    Kind
	ok      *Response
	channel *ChannelOpenResponse
	query   []byte
	err     *string

	queryOut *string
}

type (
	Parsed struct{ body }
	Headed struct {
		body
		ids map[int]uint64 // message index -> id replaced by the placeholder
	}
	Encrypted struct{ body }
	Signed    struct{ body }
	Adapted   struct {
		body
		msgID    string
		replySig []byte
	}
)

// Process runs every stage in order.
func (c *Call) Process(raw []byte) ([]byte, error) {
	p, err := Parse(c.Kind, raw)
	if err != nil {
		return nil, err
	}
	return c.Finish(p)
}

// Finish runs the stages after Parse.
func (c *Call) Finish(p *Parsed) ([]byte, error) {
	e, err := c.Encrypt(c.AttachReplyHeaders(p))
	if err != nil {
		return nil, err
	}
	s, err := c.CreateCallbackSignatures(e)
	if err != nil {
		return nil, err
	}
	a, err := c.AdaptForReply(s)
	if err != nil {
		return nil, err
	}
	return Finalize(a)
}

// Failed reports whether the guest returned an error.
func (p *Parsed) Failed() bool { return p.err != nil }

// Parse decodes raw as the result shape of kind. The guest reports failure
// with an "err" (v0.10 StdError) or "error" (v1 string) field.
func Parse(kind Kind, raw []byte) (*Parsed, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	okRaw, hasOk := top["ok"]
	errRaw, hasErr := top["err"]
	if !hasErr {
		errRaw, hasErr = top["error"]
	}
	if hasOk == hasErr {
		return nil, fmt.Errorf("%w: want exactly one of ok and error", ErrInvalidOutput)
	}
	b := body{kind: kind}
	if hasErr {
		msg, err := errorMessage(errRaw)
		if err != nil {
			return nil, err
		}
		b.err = &msg
		return &Parsed{b}, nil
	}

	switch kind {
	case KindQuery:
		if err := json.Unmarshal(okRaw, &b.query); err != nil {
			return nil, fmt.Errorf("%w: query result: %v", ErrInvalidOutput, err)
		}
	case KindIbcChannelOpen:
		if !bytes.Equal(bytes.TrimSpace(okRaw), []byte("null")) {
			b.channel = new(ChannelOpenResponse)
			if err := json.Unmarshal(okRaw, b.channel); err != nil {
				return nil, fmt.Errorf("%w: channel open: %v", ErrInvalidOutput, err)
			}
		}
	case KindV010:
		var r V010Response
		if err := json.Unmarshal(okRaw, &r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		b.ok = &Response{Attributes: r.Log, Data: r.Data}
		for _, m := range r.Messages {
			b.ok.Messages = append(b.ok.Messages, SubMsg{Msg: m, ReplyOn: ReplyNever})
		}
	case KindV1, KindIbcBasic, KindIbcPacketReceive:
		b.ok = new(Response)
		if err := json.Unmarshal(okRaw, b.ok); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
		if kind != KindIbcPacketReceive {
			b.ok.Acknowledgement = nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidOutput, kind)
	}
	return &Parsed{b}, nil
}

// errorMessage flattens a guest error to text: a plain string, the msg of a
// generic_err, or the compact JSON of any other StdError variant.
func errorMessage(raw json.RawMessage) (string, error) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, nil
	}
	var std StdError
	if err := json.Unmarshal(raw, &std); err != nil {
		return "", fmt.Errorf("%w: error value: %v", ErrInvalidOutput, err)
	}
	if std.GenericErr != nil {
		return std.GenericErr.Msg, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("%w: error value: %v", ErrInvalidOutput, err)
	}
	return buf.String(), nil
}

// AttachReplyHeaders prefixes every wasm sub-message with the recipient's
// code hash and, when a reply is requested, with this call's id and code
// hash followed by the ancestors in ReplyParams. Ids of reply-bearing
// messages are replaced by 0.
func (c *Call) AttachReplyHeaders(p *Parsed) *Headed {
	h := &Headed{body: p.body}
	if h.ok == nil || c.plaintext() {
		return h
	}
	for i := range h.ok.Messages {
		sub := &h.ok.Messages[i]
		var chain []types.ReplyParam
		if h.kind != KindV010 && sub.ReplyOn.WantsReply() {
			chain = append([]types.ReplyParam{{SubMsgID: sub.ID, RecipientCodeHash: c.CodeHash}}, c.ReplyParams...)
			if h.ids == nil {
				h.ids = make(map[int]uint64)
			}
			h.ids[i] = sub.ID
			sub.ID = 0
		}
		if w := sub.Msg.Wasm; w != nil {
			w.setMessage(secretmsg.EncodeWithReplyChain(w.CodeHash(), chain, w.Message()))
		}
	}
	return h
}

// Encrypt encrypts every contract-controlled field under the call key.
// Attributes marked encrypted:false stay as they are.
func (c *Call) Encrypt(h *Headed) (*Encrypted, error) {
	e := &Encrypted{body: h.body}
	if c.plaintext() {
		if e.kind == KindQuery && e.err == nil {
			s := base64.StdEncoding.EncodeToString(e.query)
			e.queryOut = &s
		}
		return e, nil
	}
	key := c.Key
	if e.err != nil {
		enc, err := secretmsg.EncryptString(key, []byte(*e.err))
		if err != nil {
			return nil, err
		}
		e.err = &enc
		return e, nil
	}
	if e.kind == KindQuery {
		enc, err := secretmsg.EncryptString(key, e.query)
		if err != nil {
			return nil, err
		}
		e.queryOut = &enc
		return e, nil
	}
	if e.ok == nil {
		return e, nil
	}

	for i := range e.ok.Messages {
		sub := &e.ok.Messages[i]
		if id, ok := h.ids[i]; ok {
			var be [8]byte
			binary.BigEndian.PutUint64(be[:], id)
			enc, err := secretmsg.EncryptString(key, be[:])
			if err != nil {
				return nil, err
			}
			sub.EncryptedID = enc
		}
		if w := sub.Msg.Wasm; w != nil {
			m, err := c.Message.Reencrypt(key, w.Message())
			if err != nil {
				return nil, err
			}
			w.setMessage(m.Bytes())
			sub.WasMsgEncrypted = true
		}
	}
	if err := encryptAttributes(key, e.ok.Attributes); err != nil {
		return nil, err
	}
	for i := range e.ok.Events {
		if err := encryptAttributes(key, e.ok.Events[i].Attributes); err != nil {
			return nil, err
		}
	}

	data := e.ok.Data
	if len(c.ReplyParams) > 0 {
		// The reply recipient finds its own code hash and the rest of the
		// chain in front of the data.
		data = secretmsg.EncodeWithReplyChain(c.ReplyParams[0].RecipientCodeHash, c.ReplyParams[1:], data)
	}
	if data != nil {
		enc, err := secretmsg.Encrypt(key, data)
		if err != nil {
			return nil, err
		}
		e.ok.Data = enc
	}
	return e, nil
}

func encryptAttributes(key [secretmsg.KeySize]byte, attrs []types.Attribute) error {
	for i := range attrs {
		if !attrs[i].IsEncrypted() {
			continue
		}
		k, err := secretmsg.EncryptString(key, []byte(attrs[i].Key))
		if err != nil {
			return err
		}
		v, err := secretmsg.EncryptString(key, []byte(attrs[i].Value))
		if err != nil {
			return err
		}
		attrs[i].Key, attrs[i].Value = k, v
	}
	return nil
}

// CreateCallbackSignatures signs every encrypted wasm sub-message over the
// dispatching contract, its final payload and attached funds, so the receiving call can tell it came
// from a contract rather than the chain.
func (c *Call) CreateCallbackSignatures(e *Encrypted) (*Signed, error) {
	s := &Signed{body: e.body}
	if s.ok == nil || c.plaintext() {
		return s, nil
	}
	for i := range s.ok.Messages {
		sub := &s.ok.Messages[i]
		w := sub.Msg.Wasm
		if w == nil || !sub.WasMsgEncrypted {
			continue
		}
		if c.Signer == nil {
			return nil, ErrMissingSigner
		}
		funds, err := types.CanonicalFunds(w.Funds())
		if err != nil {
			return nil, fmt.Errorf("%w: sub-message %d: %v", ErrInvalidOutput, i, err)
		}
		sig, err := c.Signer.CallbackSig(c.Contract, w.Message(), funds)
		if err != nil {
			return nil, err
		}
		w.setCallbackSig(sig[:])
	}
	return s, nil
}

// ReplySigPayload is the byte string covered by a reply signature.
func ReplySigPayload(encryptedID string, ok bool, payload []byte) []byte {
	out := []byte(encryptedID)
	if ok {
		out = append(out, "ok"...)
	} else {
		out = append(out, "err"...)
	}
	return append(out, payload...)
}

// AdaptForReply attaches the encrypted sub-message id and a signature over
// the result when this call answers a reply-bearing sub-message.
func (c *Call) AdaptForReply(s *Signed) (*Adapted, error) {
	a := &Adapted{body: s.body}
	if len(c.ReplyParams) == 0 || c.plaintext() {
		return a, nil
	}
	var payload func(id string) []byte
	switch {
	case a.err != nil:
		payload = func(id string) []byte { return ReplySigPayload(id, false, []byte(*a.err)) }
	case a.ok != nil:
		payload = func(id string) []byte { return ReplySigPayload(id, true, a.ok.Data) }
	default:
		return a, nil
	}
	if c.Signer == nil {
		return nil, ErrMissingSigner
	}
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], c.ReplyParams[0].SubMsgID)
	id, err := secretmsg.EncryptString(c.Key, be[:])
	if err != nil {
		return nil, err
	}
	sig, err := c.Signer.ReplySig(payload(id))
	if err != nil {
		return nil, err
	}
	a.msgID, a.replySig = id, sig[:]
	return a, nil
}

// Finalize wraps the result in the envelope variant of its kind.
func Finalize(a *Adapted) ([]byte, error) {
	env := Envelope{InternalMsgID: a.msgID, InternalReplyEnclaveSig: a.replySig}
	if a.kind == KindQuery {
		env.Query = &QueryResult{Ok: a.queryOut, Err: a.err}
		return json.Marshal(env)
	}

	r := new(Result)
	if a.err != nil {
		r.Err = &StdError{GenericErr: &GenericErr{Msg: *a.err}}
	} else {
		ok, err := a.okJSON()
		if err != nil {
			return nil, err
		}
		r.Ok = ok
	}
	switch a.kind {
	case KindV010:
		env.V010 = r
	case KindV1:
		env.V1 = r
	case KindIbcBasic:
		env.IbcBasic = r
	case KindIbcPacketReceive:
		env.IbcPacketReceive = r
	case KindIbcChannelOpen:
		env.IbcChannelOpen = r
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidOutput, a.kind)
	}
	return json.Marshal(env)
}

func (b *body) okJSON() (json.RawMessage, error) {
	if b.kind == KindIbcChannelOpen {
		return json.Marshal(b.channel)
	}
	resp := b.ok
	if resp.Messages == nil {
		resp.Messages = []SubMsg{}
	}
	if resp.Attributes == nil {
		resp.Attributes = []types.Attribute{}
	}
	if b.kind == KindV010 {
		v := V010Response{Log: resp.Attributes, Data: resp.Data, Messages: []CosmosMsg{}}
		for _, m := range resp.Messages {
			v.Messages = append(v.Messages, m.Msg)
		}
		return json.Marshal(v)
	}
	if resp.Events == nil {
		resp.Events = []types.Event{}
	}
	return json.Marshal(resp)
}
