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
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Address error messages, returned to the guest.
const (
	msgAddressEmpty         = "Input is empty"
	msgAddressNotBech32     = "Input is not a bech32 address"
	msgAddressWrongPrefix   = "Wrong address prefix"
	msgAddressNotNormalized = "Address is not normalized"
	msgAddressBadLength     = "Invalid canonical address length"
)

// AddressCodec converts between human-readable bech32 addresses and their
// canonical byte form under one chain prefix.
type AddressCodec struct {
	hrp string
}

func NewAddressCodec(hrp string) *AddressCodec {
	return &AddressCodec{hrp: strings.ToLower(hrp)}
}

func (c *AddressCodec) Prefix() string { return c.hrp }

func validCanonicalLength(n int) bool { return n == 20 || n == 32 }

// Canonicalize decodes a bech32 address. Failures are GuestErrors.
func (c *AddressCodec) Canonicalize(human string) ([]byte, error) {
	if strings.TrimSpace(human) == "" {
		return nil, guestErr(msgAddressEmpty)
	}
	hrp, data, err := bech32.DecodeToBase256(human)
	if err != nil {
		return nil, guestErr(msgAddressNotBech32)
	}
	if hrp != c.hrp {
		return nil, guestErr(msgAddressWrongPrefix)
	}
	if !validCanonicalLength(len(data)) {
		return nil, guestErr(msgAddressBadLength)
	}
	return data, nil
}

func (c *AddressCodec) Humanize(canonical []byte) (string, error) {
	if !validCanonicalLength(len(canonical)) {
		return "", guestErr(msgAddressBadLength)
	}
	s, err := bech32.EncodeFromBase256(c.hrp, canonical)
	if err != nil {
		return "", guestErr(msgAddressNotBech32)
	}
	return s, nil
}

// Validate additionally requires that re-encoding reproduces the input
// exactly, rejecting upper case and other non-canonical spellings.
func (c *AddressCodec) Validate(human string) error {
	canonical, err := c.Canonicalize(human)
	if err != nil {
		return err
	}
	normalized, err := c.Humanize(canonical)
	if err != nil {
		return err
	}
	if normalized != human {
		return guestErr(msgAddressNotNormalized)
	}
	return nil
}
