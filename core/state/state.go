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

// Package state keeps a contract's plaintext write-back cache for one call
// and maps it onto encrypted keys and values in the untrusted store.
package state

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/log"

	"github.com/scrtlabs/SecretNetwork-sub000/core/secretmsg"
	"github.com/scrtlabs/SecretNetwork-sub000/storage"
)

var ErrStoreDiscarded = errors.New("state store discarded")

type entry struct {
	value   []byte
	removed bool
}

// Store is the per-call view of one contract's state. Reads see the call's
// own writes first. Nothing reaches the backing store until Flush.
type Store struct {
	kv        storage.KV
	fieldKey  [32]byte
	valueKey  [32]byte
	cache     map[string]entry
	discarded bool
}

// New returns a store encrypting under stateKey, the contract's state root.
func New(kv storage.KV, stateKey [32]byte) *Store {
	return &Store{
		kv:       kv,
		fieldKey: subKey(stateKey, "field"),
		valueKey: subKey(stateKey, "value"),
		cache:    make(map[string]entry),
	}
}

func subKey(root [32]byte, label string) [32]byte {
	var out [32]byte
	m := hmac.New(sha256.New, root[:])
	m.Write([]byte(label))
	copy(out[:], m.Sum(nil))
	return out
}

// CiphertextKey maps a plaintext key to the key used in the backing store.
func (s *Store) CiphertextKey(key []byte) []byte {
	m := hmac.New(sha256.New, s.fieldKey[:])
	m.Write(key)
	return m.Sum(nil)
}

// Get returns nil if the key is absent or removed in this call.
func (s *Store) Get(key []byte) ([]byte, error) {
	if s.discarded {
		return nil, ErrStoreDiscarded
	}
	if e, ok := s.cache[string(key)]; ok {
		if e.removed {
			return nil, nil
		}
		return e.value, nil
	}
	ctKey := s.CiphertextKey(key)
	ct, err := s.kv.Get(ctKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	plain, err := secretmsg.Open(s.valueKey, ct, ctKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt state: %w", err)
	}
	return plain, nil
}

func (s *Store) Set(key, value []byte) error {
	if s.discarded {
		return ErrStoreDiscarded
	}
	s.cache[string(key)] = entry{value: append([]byte{}, value...)}
	return nil
}

func (s *Store) Remove(key []byte) error {
	if s.discarded {
		return ErrStoreDiscarded
	}
	s.cache[string(key)] = entry{removed: true}
	return nil
}

// Dirty is the number of distinct keys written or removed in this call.
func (s *Store) Dirty() int { return len(s.cache) }

// ChargeFunc is called once per distinct key before the batch is written.
// Returning an error aborts the flush with nothing written.
type ChargeFunc func(key, value []byte, removed bool) error

// Flush encrypts the cache and writes it as a single batch in key order.
func (s *Store) Flush(charge ChargeFunc) error {
	if s.discarded {
		return ErrStoreDiscarded
	}
	keys := make([]string, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := s.kv.NewBatch()
	var removed int
	for _, k := range keys {
		e := s.cache[k]
		if charge != nil {
			if err := charge([]byte(k), e.value, e.removed); err != nil {
				return err
			}
		}
		ctKey := s.CiphertextKey([]byte(k))
		if e.removed {
			if err := batch.Delete(ctKey); err != nil {
				return err
			}
			removed++
			continue
		}
		ct, err := secretmsg.Seal(s.valueKey, e.value, ctKey)
		if err != nil {
			return fmt.Errorf("encrypt state: %w", err)
		}
		if err := batch.Put(ctKey, ct); err != nil {
			return err
		}
	}
	if batch.Len() > 0 {
		if err := batch.Write(); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
	}
	// Plaintext keys stay out of the log.
	log.Trace("Flushed contract state", "writes", len(keys)-removed, "removes", removed)
	s.cache = make(map[string]entry)
	return nil
}

// Discard drops every pending write. The store cannot be used afterwards.
func (s *Store) Discard() {
	if !s.discarded {
		log.Trace("Discarded contract state", "pending", len(s.cache))
	}
	s.cache = nil
	s.discarded = true
}
