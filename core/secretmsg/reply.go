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

package secretmsg

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

// ReplyMagic separates reply chain entries in a message prefix.
const ReplyMagic = "REPLY01"

const (
	hashHexSize    = 64
	replyEntrySize = len(ReplyMagic) + 8 + hashHexSize
)

// EncodeWithReplyChain prefixes msg with the recipient's code hash followed by
// one entry per ancestor in params, innermost first:
//
//	hash_hex(64) || ("REPLY01" || sub_msg_id_be8 || hash_hex(64))* || msg
func EncodeWithReplyChain(recipientHash string, params []types.ReplyParam, msg []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hashHexSize + len(params)*replyEntrySize + len(msg))
	buf.WriteString(strings.ToLower(recipientHash))
	for _, p := range params {
		var id [8]byte
		binary.BigEndian.PutUint64(id[:], p.SubMsgID)
		buf.WriteString(ReplyMagic)
		buf.Write(id[:])
		buf.WriteString(strings.ToLower(p.RecipientCodeHash))
	}
	buf.Write(msg)
	return buf.Bytes()
}

// SplitMessage reverses EncodeWithReplyChain.
func SplitMessage(b []byte) (codeHash string, params []types.ReplyParam, msg []byte, err error) {
	if len(b) < hashHexSize || !isHex(b[:hashHexSize]) {
		return "", nil, nil, fmt.Errorf("%w: missing code hash prefix", ErrInvalidHeader)
	}
	codeHash = strings.ToLower(string(b[:hashHexSize]))
	rest := b[hashHexSize:]
	for bytes.HasPrefix(rest, []byte(ReplyMagic)) {
		if len(rest) < replyEntrySize {
			return "", nil, nil, fmt.Errorf("%w: truncated reply entry", ErrInvalidHeader)
		}
		id := binary.BigEndian.Uint64(rest[len(ReplyMagic):])
		hash := rest[len(ReplyMagic)+8 : replyEntrySize]
		if !isHex(hash) {
			return "", nil, nil, fmt.Errorf("%w: bad reply code hash", ErrInvalidHeader)
		}
		params = append(params, types.ReplyParam{SubMsgID: id, RecipientCodeHash: strings.ToLower(string(hash))})
		rest = rest[replyEntrySize:]
	}
	return codeHash, params, rest, nil
}

// SplitForContract is SplitMessage plus a check that the prefix names the
// contract that is about to run.
func SplitForContract(b []byte, expectedHash string) ([]types.ReplyParam, []byte, error) {
	hash, params, msg, err := SplitMessage(b)
	if err != nil {
		return nil, nil, err
	}
	if hash != strings.ToLower(expectedHash) {
		return nil, nil, fmt.Errorf("%w: got %s, want %s", ErrCodeHashMismatch, hash, expectedHash)
	}
	return params, msg, nil
}

func isHex(b []byte) bool {
	_, err := hex.DecodeString(string(b))
	return err == nil
}
