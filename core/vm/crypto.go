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
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/crypto"
)

// Crypto result codes returned to the guest in place of trapping.
const (
	CryptoOK                     uint32 = 0
	CryptoInvalidSignature       uint32 = 1
	CryptoInvalidHashFormat      uint32 = 3
	CryptoInvalidSignatureFormat uint32 = 4
	CryptoInvalidPubkeyFormat    uint32 = 5
	CryptoInvalidRecoveryParam   uint32 = 6
	CryptoBatchErr               uint32 = 7
	CryptoGenericErr             uint32 = 10
)

const (
	hashLength       = 32
	ecdsaSigLength   = 64
	ed25519SigLength = ed25519.SignatureSize
)

// secp256k1Verify checks a 64 byte [R || S] signature over a 32 byte hash
// against a compressed (33) or uncompressed (65) public key.
func secp256k1Verify(hash, sig, pubkey []byte) uint32 {
	if len(hash) != hashLength {
		return CryptoInvalidHashFormat
	}
	if len(sig) != ecdsaSigLength {
		return CryptoInvalidSignatureFormat
	}
	switch len(pubkey) {
	case 33:
		if _, err := crypto.DecompressPubkey(pubkey); err != nil {
			return CryptoInvalidPubkeyFormat
		}
	case 65:
		if _, err := crypto.UnmarshalPubkey(pubkey); err != nil {
			return CryptoInvalidPubkeyFormat
		}
	default:
		return CryptoInvalidPubkeyFormat
	}
	if !crypto.VerifySignature(pubkey, hash, sig) {
		return CryptoInvalidSignature
	}
	return CryptoOK
}

// secp256k1Recover returns the 65 byte uncompressed public key.
func secp256k1Recover(hash, sig []byte, recoveryParam uint32) ([]byte, uint32) {
	if len(hash) != hashLength {
		return nil, CryptoInvalidHashFormat
	}
	if len(sig) != ecdsaSigLength {
		return nil, CryptoInvalidSignatureFormat
	}
	if recoveryParam > 1 {
		return nil, CryptoInvalidRecoveryParam
	}
	full := make([]byte, 65)
	copy(full, sig)
	full[64] = byte(recoveryParam)
	pub, err := crypto.Ecrecover(hash, full)
	if err != nil {
		return nil, CryptoInvalidSignature
	}
	return pub, CryptoOK
}

// secp256k1Sign signs sha256(msg) with a raw 32 byte private key.
func secp256k1Sign(msg, priv []byte) ([]byte, uint32) {
	if len(priv) != 32 {
		return nil, CryptoInvalidPubkeyFormat
	}
	key, err := crypto.ToECDSA(priv)
	if err != nil {
		return nil, CryptoInvalidPubkeyFormat
	}
	hash := sha256.Sum256(msg)
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return nil, CryptoGenericErr
	}
	return sig[:ecdsaSigLength], CryptoOK
}

func ed25519Verify(msg, sig, pubkey []byte) uint32 {
	if len(sig) != ed25519SigLength {
		return CryptoInvalidSignatureFormat
	}
	if len(pubkey) != ed25519.PublicKeySize {
		return CryptoInvalidPubkeyFormat
	}
	if !ed25519.Verify(ed25519.PublicKey(pubkey), msg, sig) {
		return CryptoInvalidSignature
	}
	return CryptoOK
}

// ed25519BatchVerify verifies n signatures. A single message may be shared
// by all signatures, and so may a single public key.
func ed25519BatchVerify(msgs, sigs, pubkeys [][]byte) uint32 {
	n := len(sigs)
	switch {
	case len(msgs) == n && len(pubkeys) == n:
	case len(msgs) == 1 && len(pubkeys) == n:
	case len(pubkeys) == 1 && len(msgs) == n:
	default:
		return CryptoBatchErr
	}
	for i := 0; i < n; i++ {
		msg, pub := msgs[0], pubkeys[0]
		if len(msgs) > 1 {
			msg = msgs[i]
		}
		if len(pubkeys) > 1 {
			pub = pubkeys[i]
		}
		if code := ed25519Verify(msg, sigs[i], pub); code != CryptoOK {
			return code
		}
	}
	return CryptoOK
}

// ed25519Sign signs msg with a 32 byte seed.
func ed25519Sign(msg, seed []byte) ([]byte, uint32) {
	if len(seed) != ed25519.SeedSize {
		return nil, CryptoInvalidPubkeyFormat
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), msg), CryptoOK
}
