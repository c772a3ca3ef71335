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

// KV is the untrusted key-value store holding encrypted contract state. Keys
// and values are opaque ciphertext from the engine's point of view.
type KV interface {
	// Get returns ErrNotFound if the key is absent.
	Get(key []byte) ([]byte, error)
	NewBatch() Batch
	Close() error
}

// Batch collects writes that are applied atomically by Write.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Len() int
	Write() error
}

// Prefixed namespaces every key of kv under prefix.
func Prefixed(kv KV, prefix []byte) KV {
	return &prefixKV{kv: kv, prefix: append([]byte(nil), prefix...)}
}

type prefixKV struct {
	kv     KV
	prefix []byte
}

func (p *prefixKV) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *prefixKV) Get(key []byte) ([]byte, error) { return p.kv.Get(p.key(key)) }

func (p *prefixKV) NewBatch() Batch { return &prefixBatch{p: p, b: p.kv.NewBatch()} }

// Close is a no-op; the underlying store is owned by whoever opened it.
func (p *prefixKV) Close() error { return nil }

type prefixBatch struct {
	p *prefixKV
	b Batch
}

func (b *prefixBatch) Put(key, value []byte) error { return b.b.Put(b.p.key(key), value) }
func (b *prefixBatch) Delete(key []byte) error     { return b.b.Delete(b.p.key(key)) }
func (b *prefixBatch) Len() int                    { return b.b.Len() }
func (b *prefixBatch) Write() error                { return b.b.Write() }
