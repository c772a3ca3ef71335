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

// Package keyring holds the enclave's long-term secrets and derives every
// per-contract key, proof and authenticator from them.
package keyring

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

var (
	ErrKeyringClosed  = errors.New("keyring closed")
	ErrInvalidPeerKey = errors.New("invalid peer public key")
	ErrSealedCorrupt  = errors.New("sealed keyring corrupt")
	ErrSealedVersion  = errors.New("unsupported sealed keyring version")
)

// HKDF info labels, one per derived secret.
const (
	labelIOExchange  = "secret/io-exchange/v1"
	labelContractKey = "secret/contract-key/v1"
	labelKeyProof    = "secret/key-proof/v1"
	labelAdminProof  = "secret/admin-proof/v1"
	labelCallback    = "secret/callback/v1"
	labelState       = "secret/state/v1"
)

// Handle is the sealed holder of the enclave master secrets. It is created
// once at enclave start and passed by reference into every call. All methods
// are safe for concurrent use; after Teardown every method fails with
// ErrKeyringClosed.
type Handle struct {
	mu     sync.RWMutex
	closed bool

	seed [32]byte

	ioPriv [32]byte
	ioPub  [32]byte

	contractSecret   [32]byte
	keyProofSecret   [32]byte
	adminProofSecret [32]byte
	callbackSecret   [32]byte
	stateSecret      [32]byte
}

// New derives a keyring from a provisioned master seed.
func New(seed [32]byte) (*Handle, error) {
	h := &Handle{seed: seed}
	for _, d := range []struct {
		label string
		out   *[32]byte
	}{
		{labelIOExchange, &h.ioPriv},
		{labelContractKey, &h.contractSecret},
		{labelKeyProof, &h.keyProofSecret},
		{labelAdminProof, &h.adminProofSecret},
		{labelCallback, &h.callbackSecret},
		{labelState, &h.stateSecret},
	} {
		if _, err := io.ReadFull(hkdf.New(sha256.New, seed[:], nil, []byte(d.label)), d.out[:]); err != nil {
			h.Teardown()
			return nil, fmt.Errorf("derive %s: %w", d.label, err)
		}
	}
	pub, err := curve25519.X25519(h.ioPriv[:], curve25519.Basepoint)
	if err != nil {
		h.Teardown()
		return nil, err
	}
	copy(h.ioPub[:], pub)
	return h, nil
}

// Generate creates a keyring from a fresh random seed.
func Generate() (*Handle, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return nil, err
	}
	defer zeroBytes(seed[:])
	return New(seed)
}

// Teardown zeroes every secret. It is idempotent.
func (h *Handle) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, b := range [][]byte{
		h.seed[:], h.ioPriv[:], h.ioPub[:], h.contractSecret[:], h.keyProofSecret[:],
		h.adminProofSecret[:], h.callbackSecret[:], h.stateSecret[:],
	} {
		zeroBytes(b)
	}
	h.closed = true
	log.Debug("Keyring torn down")
}

// read runs fn under the read lock unless the keyring is closed.
func (h *Handle) read(fn func()) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrKeyringClosed
	}
	fn()
	return nil
}

// IOPublicKey is the registration public key users encrypt to.
func (h *Handle) IOPublicKey() ([32]byte, error) {
	var pub [32]byte
	err := h.read(func() { pub = h.ioPub })
	return pub, err
}

// SharedSecret runs X25519 between the IO exchange key and a peer key.
func (h *Handle) SharedSecret(peer [32]byte) ([32]byte, error) {
	var (
		out    [32]byte
		dhErr  error
		shared []byte
	)
	err := h.read(func() { shared, dhErr = curve25519.X25519(h.ioPriv[:], peer[:]) })
	if err != nil {
		return out, err
	}
	if dhErr != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidPeerKey, dhErr)
	}
	copy(out[:], shared)
	zeroBytes(shared)
	return out, nil
}

func mac(secret []byte, parts ...[]byte) []byte {
	var m hash.Hash = hmac.New(sha256.New, secret)
	for _, p := range parts {
		m.Write(p)
	}
	return m.Sum(nil)
}

func heightBytes(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

func (h *Handle) tagKey(keyID, contract []byte) (types.ContractKey, error) {
	var key types.ContractKey
	err := h.read(func() {
		copy(key[:32], keyID)
		copy(key[32:], mac(h.contractSecret[:], keyID, contract))
	})
	return key, err
}

// ContractKey derives the key of a newly instantiated contract.
func (h *Handle) ContractKey(sender, contract []byte, height uint64, codeHash common.Hash) (types.ContractKey, error) {
	id := sha256.New()
	id.Write(sender)
	id.Write(heightBytes(height))
	id.Write(codeHash[:])
	return h.tagKey(id.Sum(nil), contract)
}

// MigratedContractKey chains a new key to the current one.
func (h *Handle) MigratedContractKey(current types.ContractKey, sender, contract []byte, height uint64, newCodeHash common.Hash) (types.ContractKey, error) {
	id := sha256.New()
	id.Write(current[:])
	id.Write(sender)
	id.Write(heightBytes(height))
	id.Write(newCodeHash[:])
	return h.tagKey(id.Sum(nil), contract)
}

// VerifyContractKey reports whether key was produced by this enclave for the
// given contract address.
func (h *Handle) VerifyContractKey(key types.ContractKey, contract []byte) (bool, error) {
	want, err := h.tagKey(key.KeyID(), contract)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want.Tag(), key.Tag()), nil
}

// KeyProof binds a migrated key to its predecessor.
func (h *Handle) KeyProof(prev, next types.ContractKey) ([32]byte, error) {
	var proof [32]byte
	err := h.read(func() { copy(proof[:], mac(h.keyProofSecret[:], prev[:], next[:])) })
	return proof, err
}

func (h *Handle) VerifyKeyProof(prev, next types.ContractKey, proof []byte) (bool, error) {
	want, err := h.KeyProof(prev, next)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want[:], proof), nil
}

// AdminProof binds an admin address to a contract key. An empty admin yields
// the zero proof.
func (h *Handle) AdminProof(admin []byte, key types.ContractKey) ([32]byte, error) {
	var proof [32]byte
	if len(admin) == 0 {
		return proof, h.read(func() {})
	}
	err := h.read(func() { copy(proof[:], mac(h.adminProofSecret[:], admin, key[:])) })
	return proof, err
}

func (h *Handle) VerifyAdminProof(admin []byte, key types.ContractKey, proof []byte) (bool, error) {
	if len(admin) == 0 {
		return false, nil
	}
	want, err := h.AdminProof(admin, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want[:], proof), nil
}

// CallbackSig authenticates a message and its funds as dispatched by the
// contract with canonical address sender.
func (h *Handle) CallbackSig(sender, msg, funds []byte) ([32]byte, error) {
	var sig [32]byte
	err := h.read(func() {
		copy(sig[:], mac(h.callbackSecret[:], []byte("callback"), []byte{byte(len(sender))}, sender, msg, funds))
	})
	return sig, err
}

func (h *Handle) VerifyCallbackSig(sender, msg, funds, sig []byte) (bool, error) {
	want, err := h.CallbackSig(sender, msg, funds)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want[:], sig), nil
}

// ReplySig authenticates a sub-message result returned to its dispatcher.
func (h *Handle) ReplySig(payload []byte) ([32]byte, error) {
	var sig [32]byte
	err := h.read(func() { copy(sig[:], mac(h.callbackSecret[:], []byte("reply"), payload)) })
	return sig, err
}

func (h *Handle) VerifyReplySig(payload, sig []byte) (bool, error) {
	want, err := h.ReplySig(payload)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want[:], sig), nil
}

// StateKey is the root of state encryption for the contract whose first key
// was original. It does not change across migrations.
func (h *Handle) StateKey(original types.ContractKey) ([32]byte, error) {
	var key [32]byte
	err := h.read(func() { copy(key[:], mac(h.stateSecret[:], original[:])) })
	return key, err
}

// zeroBytes securely zeros the given byte slice to prevent data leakage
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
