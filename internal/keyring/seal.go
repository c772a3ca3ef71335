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

package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

// SealedID is the partition entry holding the sealed master seed.
const SealedID = "keyring.sealed"

const sealedVersion = 1

var sealAD = []byte("secret/keyring-seal")

type sealedKeyring struct {
	Version    uint
	Nonce      []byte
	Ciphertext []byte
}

// Seal encrypts the master seed under sealingKey and stores it in p.
func (h *Handle) Seal(p storage.EncryptedPartition, sealingKey [32]byte) error {
	var blob []byte
	var sealErr error
	if err := h.read(func() { blob, sealErr = sealSeed(h.seed, sealingKey) }); err != nil {
		return err
	}
	if sealErr != nil {
		return sealErr
	}
	if err := p.WriteSecret(SealedID, blob); err != nil {
		return fmt.Errorf("write sealed keyring: %w", err)
	}
	log.Info("Keyring sealed", "id", SealedID, "size", len(blob))
	return nil
}

// Unseal loads and decrypts the sealed seed from p and rebuilds the keyring.
func Unseal(p storage.EncryptedPartition, sealingKey [32]byte) (*Handle, error) {
	blob, err := p.ReadSecret(SealedID)
	if err != nil {
		return nil, fmt.Errorf("read sealed keyring: %w", err)
	}
	seed, err := unsealSeed(blob, sealingKey)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(seed[:])
	return New(seed)
}

// Reseal re-encrypts the stored seed under a new sealing key, as done when
// the enclave is upgraded and its sealing identity changes.
func Reseal(p storage.EncryptedPartition, oldKey, newKey [32]byte) error {
	h, err := Unseal(p, oldKey)
	if err != nil {
		return err
	}
	defer h.Teardown()
	return h.Seal(p, newKey)
}

func sealSeed(seed, sealingKey [32]byte) ([]byte, error) {
	block, err := aes.NewCipher(sealingKey[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&sealedKeyring{
		Version:    sealedVersion,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, seed[:], sealAD),
	})
}

func unsealSeed(blob []byte, sealingKey [32]byte) ([32]byte, error) {
	var (
		seed   [32]byte
		sealed sealedKeyring
	)
	if err := rlp.DecodeBytes(blob, &sealed); err != nil {
		return seed, fmt.Errorf("%w: %v", ErrSealedCorrupt, err)
	}
	if sealed.Version != sealedVersion {
		return seed, fmt.Errorf("%w: %d", ErrSealedVersion, sealed.Version)
	}
	block, err := aes.NewCipher(sealingKey[:])
	if err != nil {
		return seed, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return seed, err
	}
	if len(sealed.Nonce) != gcm.NonceSize() {
		return seed, fmt.Errorf("%w: nonce length %d", ErrSealedCorrupt, len(sealed.Nonce))
	}
	plain, err := gcm.Open(nil, sealed.Nonce, sealed.Ciphertext, sealAD)
	if err != nil {
		return seed, fmt.Errorf("%w: %v", ErrSealedCorrupt, err)
	}
	defer zeroBytes(plain)
	if len(plain) != len(seed) {
		return seed, fmt.Errorf("%w: seed length %d", ErrSealedCorrupt, len(plain))
	}
	copy(seed[:], plain)
	return seed, nil
}
