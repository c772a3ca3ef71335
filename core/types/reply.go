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

// Reply is the message a contract receives when one of its sub-messages
// completes. As delivered by the chain the id is the encrypted id taken
// from the dispatched sub-message; the contract sees the numeric id.
type Reply struct {
	ID     string       `json:"id"`
	Result SubMsgResult `json:"result"`
}

type SubMsgResult struct {
	Ok    *SubMsgResponse `json:"ok,omitempty"`
	Error *string         `json:"error,omitempty"`
}

type SubMsgResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// GuestReply is the reply as handed to the guest.
type GuestReply struct {
	ID     uint64       `json:"id"`
	Result SubMsgResult `json:"result"`
}

// Attribute is a key/value pair emitted by a contract. Attributes are
// encrypted unless Encrypted is explicitly false.
type Attribute struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Encrypted *bool  `json:"encrypted,omitempty"`
}

func (a Attribute) IsEncrypted() bool { return a.Encrypted == nil || *a.Encrypted }

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}
