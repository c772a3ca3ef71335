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

import "fmt"

// Gas costs of host services. Guest gas is metered on every function entry
// and every loop iteration.
const (
	GasPerFunctionCall  uint64 = 10
	GasPerLoopIteration uint64 = 10
	GasReadBase         uint64 = 1000
	GasReadPerByte      uint64 = 3
	GasWriteBase        uint64 = 2000
	GasWritePerByte     uint64 = 30
	GasRemove           uint64 = 1000
	GasCanonicalize     uint64 = 400
	GasHumanize         uint64 = 400
	GasValidate         uint64 = 800
	GasQueryBase        uint64 = 3000
	GasSecp256k1Verify  uint64 = 5000
	GasSecp256k1Recover uint64 = 5000
	GasSecp256k1Sign    uint64 = 10000
	GasEd25519Verify    uint64 = 3000
	GasEd25519PerItem   uint64 = 1500
	GasEd25519Sign      uint64 = 6000
	GasDebug            uint64 = 50
)

// GasState tracks interpreter-metered and host-service gas separately so
// flush-time charges for storage writes land in one place only once.
type GasState struct {
	Limit       uint64
	UsedByGuest uint64
	UsedByHost  uint64
}

func NewGasState(limit uint64) *GasState { return &GasState{Limit: limit} }

// Used never decreases within a call.
func (g *GasState) Used() uint64 { return g.UsedByGuest + g.UsedByHost }

func (g *GasState) Remaining() uint64 {
	if used := g.Used(); used < g.Limit {
		return g.Limit - used
	}
	return 0
}

func (g *GasState) ChargeGuest(amount uint64) error {
	return g.charge(&g.UsedByGuest, amount)
}

func (g *GasState) ChargeHost(amount uint64) error {
	return g.charge(&g.UsedByHost, amount)
}

func (g *GasState) charge(bucket *uint64, amount uint64) error {
	if *bucket+amount < *bucket {
		*bucket = ^uint64(0)
	} else {
		*bucket += amount
	}
	if g.UsedByGuest+g.UsedByHost < g.UsedByGuest || g.Used() > g.Limit {
		return fmt.Errorf("%w: used %d, limit %d", ErrOutOfGas, g.Used(), g.Limit)
	}
	return nil
}
