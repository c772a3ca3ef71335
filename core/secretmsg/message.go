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
	"crypto/rand"
	"fmt"
	"io"
)

// HeaderSize is nonce (32) plus the sender's ephemeral public key (32).
const HeaderSize = 64

// SecretMessage is one encrypted contract input.
type SecretMessage struct {
	Nonce         [32]byte
	UserPublicKey [32]byte
	Msg           []byte
}

// ParseSecretMessage splits the wire form nonce || user_pubkey || ciphertext.
func ParseSecretMessage(b []byte) (*SecretMessage, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooShort, len(b))
	}
	m := &SecretMessage{Msg: append([]byte(nil), b[HeaderSize:]...)}
	copy(m.Nonce[:], b[:32])
	copy(m.UserPublicKey[:], b[32:HeaderSize])
	return m, nil
}

func (m *SecretMessage) Bytes() []byte {
	out := make([]byte, 0, HeaderSize+len(m.Msg))
	out = append(out, m.Nonce[:]...)
	out = append(out, m.UserPublicKey[:]...)
	return append(out, m.Msg...)
}

// Key derives the symmetric key of this message.
func (m *SecretMessage) Key(kx KeyExchanger) ([KeySize]byte, error) {
	return DeriveCallKey(kx, m.Nonce, m.UserPublicKey)
}

// Decrypt returns the plaintext and the key that opened it.
func (m *SecretMessage) Decrypt(kx KeyExchanger) ([]byte, [KeySize]byte, error) {
	key, err := m.Key(kx)
	if err != nil {
		return nil, key, err
	}
	plain, err := Decrypt(key, m.Msg)
	if err != nil {
		zero(key[:])
		return nil, [KeySize]byte{}, err
	}
	return plain, key, nil
}

// Reencrypt returns a message with the same header whose ciphertext is
// plaintext encrypted under key. Sub-messages and nested queries are sent
// this way so the original user can still decrypt them.
func (m *SecretMessage) Reencrypt(key [KeySize]byte, plaintext []byte) (*SecretMessage, error) {
	ct, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}
	return &SecretMessage{Nonce: m.Nonce, UserPublicKey: m.UserPublicKey, Msg: ct}, nil
}

// NewClientMessage encrypts plaintext for the enclave with a fresh nonce.
// It returns the message and the call key the user decrypts results with.
func NewClientMessage(userPriv, userPub, enclavePub [32]byte, plaintext []byte) (*SecretMessage, [KeySize]byte, error) {
	var nonce [32]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, [KeySize]byte{}, err
	}
	key, err := ClientKey(userPriv, enclavePub, nonce)
	if err != nil {
		return nil, key, err
	}
	ct, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, key, err
	}
	return &SecretMessage{Nonce: nonce, UserPublicKey: userPub, Msg: ct}, key, nil
}
