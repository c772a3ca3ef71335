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

package state

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

func newStore(t *testing.T, key byte) (*Store, storage.KV) {
	kv, err := storage.NewMemoryLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return New(kv, [32]byte{key}), kv
}

func TestReadYourWrites(t *testing.T) {
	s, kv := newStore(t, 1)

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	v, err = s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	// Not visible in the backing store before flush.
	_, err = kv.Get(s.CiphertextKey([]byte("a")))
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Remove([]byte("a")))
	v, err = s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestFlushEncryptsAndPersists(t *testing.T) {
	s, kv := newStore(t, 1)
	require.NoError(t, s.Set([]byte("balance"), []byte("100")))
	require.NoError(t, s.Set([]byte("balance"), []byte("90")))
	require.NoError(t, s.Set([]byte("other"), []byte("x")))

	var charged []string
	require.NoError(t, s.Flush(func(key, value []byte, removed bool) error {
		charged = append(charged, string(key))
		return nil
	}))
	assert.Equal(t, []string{"balance", "other"}, charged, "one charge per final key")

	raw, err := kv.Get(s.CiphertextKey([]byte("balance")))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "90")

	fresh := New(kv, [32]byte{1})
	v, err := fresh.Get([]byte("balance"))
	require.NoError(t, err)
	assert.Equal(t, []byte("90"), v)

	// A different state key cannot read it.
	foreign := New(kv, [32]byte{2})
	v, err = foreign.Get([]byte("balance"))
	require.NoError(t, err)
	assert.Nil(t, v, "different key maps to different ciphertext keys")

	require.NoError(t, fresh.Remove([]byte("balance")))
	require.NoError(t, fresh.Flush(nil))
	_, err = kv.Get(s.CiphertextKey([]byte("balance")))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestValuesCannotBeMovedBetweenKeys(t *testing.T) {
	s, kv := newStore(t, 1)
	require.NoError(t, s.Set([]byte("a"), []byte("secret")))
	require.NoError(t, s.Flush(nil))

	ct, err := kv.Get(s.CiphertextKey([]byte("a")))
	require.NoError(t, err)
	b := kv.NewBatch()
	require.NoError(t, b.Put(s.CiphertextKey([]byte("b")), ct))
	require.NoError(t, b.Write())

	_, err = New(kv, [32]byte{1}).Get([]byte("b"))
	require.Error(t, err)
}

func TestFlushAbortsOnChargeError(t *testing.T) {
	s, kv := newStore(t, 1)
	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	require.NoError(t, s.Set([]byte("b"), []byte("2")))

	errOutOfGas := errors.New("out of gas")
	calls := 0
	err := s.Flush(func([]byte, []byte, bool) error {
		calls++
		if calls == 2 {
			return errOutOfGas
		}
		return nil
	})
	require.ErrorIs(t, err, errOutOfGas)

	_, err = kv.Get(s.CiphertextKey([]byte("a")))
	require.ErrorIs(t, err, storage.ErrNotFound, "no partial flush")
}

func TestDiscard(t *testing.T) {
	s, _ := newStore(t, 1)
	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	assert.Equal(t, 1, s.Dirty())
	s.Discard()

	_, err := s.Get([]byte("a"))
	require.ErrorIs(t, err, ErrStoreDiscarded)
	require.ErrorIs(t, s.Set([]byte("a"), nil), ErrStoreDiscarded)
	require.ErrorIs(t, s.Flush(nil), ErrStoreDiscarded)
}

func TestFlushAndDiscardAreLogged(t *testing.T) {
	var buf bytes.Buffer
	old := log.Root()
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(&buf, log.LevelTrace, false)))
	t.Cleanup(func() { log.SetDefault(old) })

	s, _ := newStore(t, 1)
	require.NoError(t, s.Set([]byte("balance/alice"), []byte("42")))
	require.NoError(t, s.Remove([]byte("balance/bob")))
	require.NoError(t, s.Flush(nil))
	assert.Contains(t, buf.String(), "Flushed contract state")
	assert.Contains(t, buf.String(), "writes=1")
	assert.Contains(t, buf.String(), "removes=1")

	require.NoError(t, s.Set([]byte("balance/alice"), []byte("41")))
	s.Discard()
	s.Discard()
	assert.Contains(t, buf.String(), "Discarded contract state")
	assert.Equal(t, 1, strings.Count(buf.String(), "Discarded contract state"))
	assert.NotContains(t, buf.String(), "alice")
}
