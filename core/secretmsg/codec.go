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

// Package secretmsg implements the encrypted envelope around every contract
// input and output.
package secretmsg

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrDecryption       = errors.New("failed to decrypt message")
	ErrMessageTooShort  = errors.New("secret message too short")
	ErrInvalidHeader    = errors.New("invalid reply header")
	ErrCodeHashMismatch = errors.New("code hash mismatch")
)

const (
	// KeySize is the size of every derived symmetric key.
	KeySize = 32
	sivSize = chacha20poly1305.NonceSizeX
)

// KeyExchanger performs Diffie-Hellman with the enclave's long-term IO key.
type KeyExchanger interface {
	SharedSecret(peer [32]byte) ([32]byte, error)
}

// DeriveCallKey computes the symmetric key of one message. It is derived
// anew for every message and never cached.
func DeriveCallKey(kx KeyExchanger, nonce, peer [32]byte) ([KeySize]byte, error) {
	shared, err := kx.SharedSecret(peer)
	if err != nil {
		return [KeySize]byte{}, err
	}
	defer zero(shared[:])
	return deriveFromShared(shared, nonce)
}

// ClientKey is the user side of DeriveCallKey.
func ClientKey(userPriv, enclavePub, nonce [32]byte) ([KeySize]byte, error) {
	s, err := curve25519.X25519(userPriv[:], enclavePub[:])
	if err != nil {
		return [KeySize]byte{}, err
	}
	var shared [32]byte
	copy(shared[:], s)
	defer zero(shared[:])
	return deriveFromShared(shared, nonce)
}

func deriveFromShared(shared, nonce [32]byte) ([KeySize]byte, error) {
	var key [KeySize]byte
	_, err := io.ReadFull(hkdf.New(sha256.New, shared[:], nonce[:], []byte("secretmsg/call-key")), key[:])
	return key, err
}

func subKeys(key [KeySize]byte) (enc, mac [KeySize]byte) {
	r := hkdf.New(sha256.New, key[:], nil, []byte("secretmsg/siv"))
	io.ReadFull(r, enc[:])
	io.ReadFull(r, mac[:])
	return enc, mac
}

func synthNonce(mac [KeySize]byte, ad, plaintext []byte) []byte {
	m := hmac.New(sha256.New, mac[:])
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(ad)))
	m.Write(l[:])
	m.Write(ad)
	m.Write(plaintext)
	return m.Sum(nil)[:sivSize]
}

// Seal encrypts deterministically: the same key, plaintext and additional
// data always give the same ciphertext, so every node produces identical
// output. The synthetic nonce is prepended.
func Seal(key [KeySize]byte, plaintext, ad []byte) ([]byte, error) {
	enc, mac := subKeys(key)
	defer zero(enc[:])
	defer zero(mac[:])

	aead, err := chacha20poly1305.NewX(enc[:])
	if err != nil {
		return nil, err
	}
	siv := synthNonce(mac, ad, plaintext)
	out := make([]byte, 0, sivSize+len(plaintext)+aead.Overhead())
	out = append(out, siv...)
	return aead.Seal(out, siv, plaintext, ad), nil
}

// Open reverses Seal. Every failure is reported as ErrDecryption.
func Open(key [KeySize]byte, ciphertext, ad []byte) ([]byte, error) {
	if len(ciphertext) < sivSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	enc, mac := subKeys(key)
	defer zero(enc[:])
	defer zero(mac[:])

	aead, err := chacha20poly1305.NewX(enc[:])
	if err != nil {
		return nil, err
	}
	siv := ciphertext[:sivSize]
	plain, err := aead.Open(nil, siv, ciphertext[sivSize:], ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if !hmac.Equal(siv, synthNonce(mac, ad, plain)) {
		return nil, fmt.Errorf("%w: synthetic nonce mismatch", ErrDecryption)
	}
	return plain, nil
}

func Encrypt(key [KeySize]byte, plaintext []byte) ([]byte, error) {
	return Seal(key, plaintext, nil)
}

func Decrypt(key [KeySize]byte, ciphertext []byte) ([]byte, error) {
	return Open(key, ciphertext, nil)
}

// EncryptString encrypts and base64-encodes, for JSON string fields.
func EncryptString(key [KeySize]byte, plaintext []byte) (string, error) {
	ct, err := Encrypt(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func DecryptString(key [KeySize]byte, s string) ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return Decrypt(key, ct)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
