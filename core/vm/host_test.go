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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/core/types"
)

type mapStore map[string][]byte

func (s mapStore) Get(key []byte) ([]byte, error) { return s[string(key)], nil }

func (s mapStore) Set(key, value []byte) error {
	s[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s mapStore) Remove(key []byte) error {
	delete(s, string(key))
	return nil
}

func testContext(op Operation, gasLimit uint64) *CallContext {
	return &CallContext{
		Operation:   op,
		AllowWrites: op != OpQuery,
		Env:         &types.Env{Contract: types.ContractInfo{Address: "secret1contract"}},
		Contract:    make([]byte, 20),
		CodeHash:    "00",
		MaxDepth:    3,
		Gas:         NewGasState(gasLimit),
		Store:       mapStore{},
		Addresses:   NewAddressCodec("secret"),
	}
}

func TestWriteDuringQueryIsRefused(t *testing.T) {
	cc := testContext(OpQuery, 1_000_000)
	b := NewHostBridge(cc)
	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		value := make([]byte, i)
		require.ErrorIs(t, b.WriteStorage(key, value), ErrUnauthorizedWrite)
		require.ErrorIs(t, b.RemoveStorage(key), ErrUnauthorizedWrite)
	}
	assert.Empty(t, cc.Store.(mapStore))

	// The memory adapter refuses before looking at its pointers.
	h := &hostCall{b: b, mem: &guestMemory{mem: newFakeMemory(64)}}
	require.ErrorIs(t, h.dbWrite(0, 0), ErrUnauthorizedWrite)
	require.ErrorIs(t, h.dbRemove(0xffffffff), ErrUnauthorizedWrite)
}

func TestReadWriteStorage(t *testing.T) {
	cc := testContext(OpExecute, 1_000_000)
	b := NewHostBridge(cc)

	value, err := b.ReadStorage([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, GasReadBase+GasReadPerByte*7, cc.Gas.UsedByHost)

	require.NoError(t, b.WriteStorage([]byte("k"), []byte("v")))
	value, err = b.ReadStorage([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, b.RemoveStorage([]byte("k")))
	value, err = b.ReadStorage([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStorageWriteCost(t *testing.T) {
	assert.Equal(t, GasRemove, StorageWriteCost([]byte("key"), nil, true))
	assert.Equal(t, GasWriteBase+GasWritePerByte*5, StorageWriteCost([]byte("key"), []byte("vv"), false))
}

func TestHostOutOfGas(t *testing.T) {
	cc := testContext(OpExecute, GasCanonicalize-1)
	b := NewHostBridge(cc)
	_, err := b.CanonicalizeAddress("secret1whatever")
	require.ErrorIs(t, err, ErrOutOfGas)
}

type recordingQuerier struct {
	depths []uint32
	result func(request []byte) []byte
	used   uint64
	err    error
}

func (q *recordingQuerier) Query(_ context.Context, request []byte, _ uint64, depth uint32) ([]byte, uint64, error) {
	q.depths = append(q.depths, depth)
	if q.err != nil {
		return nil, q.used, q.err
	}
	return q.result(request), q.used, nil
}

func TestQueryChainDepth(t *testing.T) {
	tests := []struct {
		depth   uint32
		wantErr bool
	}{
		{0, false},
		{2, false},
		{3, true},
		{10, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth %d", tt.depth), func(t *testing.T) {
			q := &recordingQuerier{result: func([]byte) []byte { return []byte(`{"ok":{"ok":"e30="}}`) }, used: 7}
			cc := testContext(OpQuery, 1_000_000)
			cc.QueryDepth = tt.depth
			cc.Querier = q

			out, err := NewHostBridge(cc).QueryChain(context.Background(), []byte(`{"bank":{"balance":{}}}`))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrRecursionLimit)
				assert.Empty(t, q.depths)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []uint32{tt.depth + 1}, q.depths)
			assert.Equal(t, GasQueryBase+7, cc.Gas.UsedByHost)
			raw, err := DecodeQueryResult(out)
			require.NoError(t, err)
			assert.Equal(t, "{}", string(raw))
		})
	}
}

func TestQueryChainPropagatesFatalErrors(t *testing.T) {
	for _, fatal := range []error{ErrRecursionLimit, ErrOutOfGas} {
		cc := testContext(OpQuery, 1_000_000)
		cc.Querier = &recordingQuerier{err: fmt.Errorf("nested: %w", fatal)}
		_, err := NewHostBridge(cc).QueryChain(context.Background(), []byte(`{"bank":{}}`))
		require.ErrorIs(t, err, fatal)
	}

	cc := testContext(OpQuery, 1_000_000)
	cc.Querier = &recordingQuerier{err: fmt.Errorf("contract not found")}
	out, err := NewHostBridge(cc).QueryChain(context.Background(), []byte(`{"bank":{}}`))
	require.NoError(t, err)
	_, err = DecodeQueryResult(out)
	require.ErrorContains(t, err, "unknown")
}

func TestQueryChainEncryptsSmartQueries(t *testing.T) {
	var userPriv, enclavePriv [32]byte
	userPriv[0], enclavePriv[0] = 1, 2
	userPubRaw, _ := curve25519.X25519(userPriv[:], curve25519.Basepoint)
	enclavePubRaw, _ := curve25519.X25519(enclavePriv[:], curve25519.Basepoint)
	var userPub, enclavePub [32]byte
	copy(userPub[:], userPubRaw)
	copy(enclavePub[:], enclavePubRaw)

	msg, key, err := secretmsg.NewClientMessage(userPriv, userPub, enclavePub, []byte(`{}`))
	require.NoError(t, err)

	target := strings.Repeat("ab", 32)
	q := &recordingQuerier{result: func(request []byte) []byte {
		var req queryRequest
		require.NoError(t, json.Unmarshal(request, &req))
		inner, err := secretmsg.ParseSecretMessage(req.Wasm.Smart.Msg)
		require.NoError(t, err)
		assert.Equal(t, msg.Nonce, inner.Nonce)
		plain, err := secretmsg.Decrypt(key, inner.Msg)
		require.NoError(t, err)
		hash, _, body, err := secretmsg.SplitMessage(plain)
		require.NoError(t, err)
		assert.Equal(t, target, hash)
		assert.Equal(t, `{"count":{}}`, string(body))

		answer, err := secretmsg.EncryptString(key, []byte(`{"count":5}`))
		require.NoError(t, err)
		out, _ := json.Marshal(map[string]any{"query": map[string]string{"ok": answer}})
		return out
	}}

	cc := testContext(OpQuery, 1_000_000)
	cc.Querier = q
	cc.Message = msg
	cc.CallKey = key

	request, _ := json.Marshal(queryRequest{Wasm: &wasmQuery{Smart: &smartQuery{
		ContractAddr: "secret1other",
		CodeHash:     target,
		Msg:          []byte(`{"count":{}}`),
	}}})
	out, err := NewHostBridge(cc).QueryChain(context.Background(), request)
	require.NoError(t, err)
	raw, err := DecodeQueryResult(out)
	require.NoError(t, err)
	assert.Equal(t, `{"count":5}`, string(raw))
}

func TestSmartQueryNeedsEncryptedCall(t *testing.T) {
	cc := testContext(OpQuery, 1_000_000)
	cc.Querier = &recordingQuerier{result: func([]byte) []byte { return nil }}
	out, err := NewHostBridge(cc).QueryChain(context.Background(), []byte(`{"wasm":{"smart":{"contract_addr":"x","code_hash":"ab","msg":"e30="}}}`))
	require.NoError(t, err)
	_, err = DecodeQueryResult(out)
	require.ErrorContains(t, err, "invalid_request")
}
