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

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var ErrInvalidFunds = errors.New("invalid funds")

// ParseAmount parses a decimal coin amount as an unsigned 256-bit integer.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidFunds, s, err)
	}
	return v, nil
}

// CanonicalFunds encodes coins in a form that does not depend on how the
// amounts were spelled: per coin, len(denom) as u32, denom, then the amount
// as 32 big-endian bytes. Order is preserved.
func CanonicalFunds(coins []Coin) ([]byte, error) {
	out := make([]byte, 0, len(coins)*48)
	for _, c := range coins {
		if c.Denom == "" {
			return nil, fmt.Errorf("%w: empty denom", ErrInvalidFunds)
		}
		amount, err := ParseAmount(c.Amount)
		if err != nil {
			return nil, err
		}
		out = binary.BigEndian.AppendUint32(out, uint32(len(c.Denom)))
		out = append(out, c.Denom...)
		b := amount.Bytes32()
		out = append(out, b[:]...)
	}
	return out, nil
}

// FundsEqual compares two coin lists by denom and numeric amount.
func FundsEqual(a, b []Coin) bool {
	ca, err := CanonicalFunds(a)
	if err != nil {
		return false
	}
	cb, err := CanonicalFunds(b)
	if err != nil {
		return false
	}
	return string(ca) == string(cb)
}
