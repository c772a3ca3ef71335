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
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bech32Address(t *testing.T, hrp string, n int) string {
	t.Helper()
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i + 1)
	}
	s, err := bech32.EncodeFromBase256(hrp, data)
	require.NoError(t, err)
	return s
}

func flipLast(s string) string {
	last := "q"
	if strings.HasSuffix(s, "q") {
		last = "p"
	}
	return s[:len(s)-1] + last
}

func TestCanonicalize(t *testing.T) {
	codec := NewAddressCodec("secret")
	valid := bech32Address(t, "secret", 20)
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"valid", valid, ""},
		{"valid 32 bytes", bech32Address(t, "secret", 32), ""},
		{"upper case", strings.ToUpper(valid), ""},
		{"empty", "", msgAddressEmpty},
		{"blank", "   ", msgAddressEmpty},
		{"garbage", "not an address", msgAddressNotBech32},
		{"bad checksum", flipLast(valid), msgAddressNotBech32},
		{"other chain", bech32Address(t, "cosmos", 20), msgAddressWrongPrefix},
		{"short", bech32Address(t, "secret", 10), msgAddressBadLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, err := codec.Canonicalize(tt.input)
			if tt.wantErr != "" {
				require.True(t, IsGuestError(err))
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.True(t, validCanonicalLength(len(canonical)))
		})
	}
}

func TestHumanizeRoundTrip(t *testing.T) {
	codec := NewAddressCodec("secret")
	valid := bech32Address(t, "secret", 20)

	canonical, err := codec.Canonicalize(valid)
	require.NoError(t, err)
	human, err := codec.Humanize(canonical)
	require.NoError(t, err)
	assert.Equal(t, valid, human)

	_, err = codec.Humanize(make([]byte, 19))
	require.True(t, IsGuestError(err))
}

func TestValidateRequiresNormalForm(t *testing.T) {
	codec := NewAddressCodec("secret")
	valid := bech32Address(t, "secret", 20)

	require.NoError(t, codec.Validate(valid))
	err := codec.Validate(strings.ToUpper(valid))
	require.True(t, IsGuestError(err))
	assert.Equal(t, msgAddressNotNormalized, err.Error())
}
