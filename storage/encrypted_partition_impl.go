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
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const tmpSuffix = ".tmp"

// DirPartition implements EncryptedPartition on top of a directory that the
// enclave runtime mounts as an encrypted filesystem.
type DirPartition struct {
	mu       sync.RWMutex
	basePath string
}

// NewDirPartition opens an existing partition directory.
func NewDirPartition(basePath string) (*DirPartition, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("encrypted partition path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("encrypted partition path is not a directory: %s", basePath)
	}
	return &DirPartition{basePath: basePath}, nil
}

func (p *DirPartition) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasSuffix(id, tmpSuffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSecretID, id)
	}
	return filepath.Join(p.basePath, id), nil
}

// WriteSecret writes to a temporary file and renames it over the target so a
// crash never leaves a truncated secret behind.
func (p *DirPartition) WriteSecret(id string, data []byte) error {
	target, err := p.path(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	tmp := target + tmpSuffix
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync data: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, target)
}

func (p *DirPartition) ReadSecret(id string) ([]byte, error) {
	target, err := p.path(id)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}
	return data, nil
}

func (p *DirPartition) DeleteSecret(id string) error {
	target, err := p.path(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	err = secureDelete(target)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, id)
	}
	return err
}

// secureDelete overwrites the file with random bytes before unlinking it.
func secureDelete(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(filePath, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(file, rand.Reader, info.Size()); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	file.Close()
	return os.Remove(filePath)
}

func (p *DirPartition) ListSecrets() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(p.basePath)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasSuffix(entry.Name(), tmpSuffix) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// MemoryPartition is an in-process EncryptedPartition.
type MemoryPartition struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

func NewMemoryPartition() *MemoryPartition {
	return &MemoryPartition{secrets: make(map[string][]byte)}
}

func (p *MemoryPartition) WriteSecret(id string, data []byte) error {
	if id == "" {
		return ErrInvalidSecretID
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[id] = append([]byte(nil), data...)
	return nil
}

func (p *MemoryPartition) ReadSecret(id string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.secrets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, id)
	}
	return append([]byte(nil), data...), nil
}

func (p *MemoryPartition) DeleteSecret(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.secrets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, id)
	}
	for i := range data {
		data[i] = 0
	}
	delete(p.secrets, id)
	return nil
}

func (p *MemoryPartition) ListSecrets() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.secrets))
	for id := range p.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
