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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGasState(t *testing.T) {
	g := NewGasState(100)
	require.NoError(t, g.ChargeGuest(40))
	require.NoError(t, g.ChargeHost(60))
	assert.Equal(t, uint64(100), g.Used())
	assert.Zero(t, g.Remaining())

	require.ErrorIs(t, g.ChargeHost(1), ErrOutOfGas)
	assert.Equal(t, uint64(101), g.Used())
	assert.Zero(t, g.Remaining())
}

func TestGasSaturates(t *testing.T) {
	g := NewGasState(^uint64(0))
	require.NoError(t, g.ChargeGuest(10))
	require.ErrorIs(t, g.ChargeHost(^uint64(0)), ErrOutOfGas)
	assert.Equal(t, ^uint64(0), g.UsedByHost)
	require.ErrorIs(t, g.ChargeHost(1), ErrOutOfGas)
	assert.Equal(t, ^uint64(0), g.UsedByHost)
}
