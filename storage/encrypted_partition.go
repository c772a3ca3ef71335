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

import "errors"

var (
	ErrSecretNotFound  = errors.New("secret not found")
	ErrInvalidSecretID = errors.New("invalid secret id")
	ErrNotFound        = errors.New("key not found")
	ErrClosed          = errors.New("storage closed")
	ErrUnknownBackend  = errors.New("unknown storage backend")
)

// EncryptedPartition stores sealed enclave secrets. The enclave runtime
// encrypts the backing directory transparently; callers still seal what
// they write so a plain directory is safe for tests.
type EncryptedPartition interface {
	// WriteSecret atomically replaces the secret stored under id.
	WriteSecret(id string, data []byte) error

	// ReadSecret returns ErrSecretNotFound if id was never written.
	ReadSecret(id string) ([]byte, error)

	// DeleteSecret overwrites and removes the secret.
	DeleteSecret(id string) error

	// ListSecrets lists all secret IDs in the partition
	ListSecrets() ([]string, error)
}
