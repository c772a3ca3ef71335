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

package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/ethereum/go-ethereum/log"
)

// Pebble is a KV backed by cockroachdb/pebble.
type Pebble struct {
	db *pebble.DB
}

func OpenPebble(path string, cacheMB int) (*Pebble, error) {
	cache := pebble.NewCache(int64(cacheMB) * 1024 * 1024)
	defer cache.Unref()

	db, err := pebble.Open(path, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	log.Info("Opened state database", "backend", BackendPebble, "path", path, "cache", cacheMB)
	return &Pebble{db: db}, nil
}

// NewMemoryPebble returns a pebble instance on an in-memory filesystem.
func NewMemoryPebble() (*Pebble, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (p *Pebble) NewBatch() Batch {
	return &pebbleBatch{b: p.db.NewBatch()}
}

func (p *Pebble) Close() error { return p.db.Close() }

type pebbleBatch struct {
	b *pebble.Batch
	n int
}

func (b *pebbleBatch) Put(key, value []byte) error {
	b.n++
	return b.b.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) error {
	b.n++
	return b.b.Delete(key, nil)
}

func (b *pebbleBatch) Len() int { return b.n }

func (b *pebbleBatch) Write() error {
	defer b.b.Close()
	return b.b.Commit(pebble.Sync)
}
