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
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// HostBridge implements every service the guest can reach. Guest runtimes
// adapt these methods to their calling convention; the methods themselves
// do all authorization and gas accounting.
//
// Errors that are GuestErrors go back to the guest. Any other error is fatal
// to the call.
type HostBridge struct {
	cc     *CallContext
	logger log.Logger
	debug  bool
	meter  *guestMeter // nil for runtimes that charge guest gas themselves
}

func NewHostBridge(cc *CallContext) *HostBridge {
	return &HostBridge{
		cc:     cc,
		logger: log.New("op", cc.Operation.String(), "depth", cc.QueryDepth),
	}
}

// EnableDebug lets guest debug messages reach the log.
func (b *HostBridge) EnableDebug() { b.debug = true }

func (b *HostBridge) Context() *CallContext { return b.cc }

func (b *HostBridge) Gas() *GasState { return b.cc.Gas }

// ChargeGas accounts guest-declared gas for work the interpreter cannot see.
// syncGuestGas folds the gas burnt by instrumented guest code into the
// call's GasState.
func (b *HostBridge) syncGuestGas() error {
	if b.meter == nil {
		return nil
	}
	return b.meter.sync(b.cc.Gas)
}

func (b *HostBridge) ChargeGas(amount uint64) error {
	return b.cc.Gas.ChargeGuest(amount)
}

func (b *HostBridge) charge(amount uint64) error {
	return b.cc.Gas.ChargeHost(amount)
}

// ReadStorage returns nil for an absent key.
func (b *HostBridge) ReadStorage(key []byte) ([]byte, error) {
	if err := b.charge(GasReadBase + GasReadPerByte*uint64(len(key))); err != nil {
		return nil, err
	}
	value, err := b.cc.Store.Get(key)
	if err != nil {
		return nil, err
	}
	if err := b.charge(GasReadPerByte * uint64(len(value))); err != nil {
		return nil, err
	}
	return value, nil
}

// WriteStorage stages a write in the call cache. Gas for it is charged once
// per final key when the cache is flushed, see StorageWriteCost.
func (b *HostBridge) WriteStorage(key, value []byte) error {
	if !b.cc.AllowWrites {
		return fmt.Errorf("%w: write during %s", ErrUnauthorizedWrite, b.cc.Operation)
	}
	return b.cc.Store.Set(key, value)
}

func (b *HostBridge) RemoveStorage(key []byte) error {
	if !b.cc.AllowWrites {
		return fmt.Errorf("%w: remove during %s", ErrUnauthorizedWrite, b.cc.Operation)
	}
	return b.cc.Store.Remove(key)
}

// StorageWriteCost is the flush-time charge for one final key.
func StorageWriteCost(key, value []byte, removed bool) uint64 {
	if removed {
		return GasRemove
	}
	return GasWriteBase + GasWritePerByte*uint64(len(key)+len(value))
}

func (b *HostBridge) CanonicalizeAddress(human string) ([]byte, error) {
	if err := b.charge(GasCanonicalize); err != nil {
		return nil, err
	}
	return b.cc.Addresses.Canonicalize(human)
}

func (b *HostBridge) HumanizeAddress(canonical []byte) (string, error) {
	if err := b.charge(GasHumanize); err != nil {
		return "", err
	}
	return b.cc.Addresses.Humanize(canonical)
}

func (b *HostBridge) ValidateAddress(human string) error {
	if err := b.charge(GasValidate); err != nil {
		return err
	}
	return b.cc.Addresses.Validate(human)
}

func (b *HostBridge) Secp256k1Verify(hash, sig, pubkey []byte) (uint32, error) {
	if err := b.charge(GasSecp256k1Verify); err != nil {
		return 0, err
	}
	return secp256k1Verify(hash, sig, pubkey), nil
}

func (b *HostBridge) Secp256k1RecoverPubkey(hash, sig []byte, recoveryParam uint32) ([]byte, uint32, error) {
	if err := b.charge(GasSecp256k1Recover); err != nil {
		return nil, 0, err
	}
	pub, code := secp256k1Recover(hash, sig, recoveryParam)
	return pub, code, nil
}

func (b *HostBridge) Secp256k1Sign(msg, priv []byte) ([]byte, uint32, error) {
	if err := b.charge(GasSecp256k1Sign); err != nil {
		return nil, 0, err
	}
	sig, code := secp256k1Sign(msg, priv)
	return sig, code, nil
}

func (b *HostBridge) Ed25519Verify(msg, sig, pubkey []byte) (uint32, error) {
	if err := b.charge(GasEd25519Verify); err != nil {
		return 0, err
	}
	return ed25519Verify(msg, sig, pubkey), nil
}

func (b *HostBridge) Ed25519BatchVerify(msgs, sigs, pubkeys [][]byte) (uint32, error) {
	if err := b.charge(GasEd25519Verify + GasEd25519PerItem*uint64(len(sigs))); err != nil {
		return 0, err
	}
	return ed25519BatchVerify(msgs, sigs, pubkeys), nil
}

func (b *HostBridge) Ed25519Sign(msg, seed []byte) ([]byte, uint32, error) {
	if err := b.charge(GasEd25519Sign); err != nil {
		return nil, 0, err
	}
	sig, code := ed25519Sign(msg, seed)
	return sig, code, nil
}

// Debug logs a guest message when debugging is enabled.
func (b *HostBridge) Debug(msg string) error {
	if err := b.charge(GasDebug); err != nil {
		return err
	}
	if b.debug {
		b.logger.Debug("Contract debug", "code", b.cc.CodeHash, "msg", msg)
	}
	return nil
}
