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
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewDirPartition(t *testing.T) {
	tmpDir := t.TempDir()

	partition, err := NewDirPartition(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create encrypted partition: %v", err)
	}
	if partition.basePath != tmpDir {
		t.Errorf("Expected basePath %s, got %s", tmpDir, partition.basePath)
	}

	if _, err := NewDirPartition("/non/existent/path"); err == nil {
		t.Fatal("Expected error for non-existent path")
	}

	file := filepath.Join(tmpDir, "plain")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDirPartition(file); err == nil {
		t.Fatal("Expected error for regular file")
	}
}

func testPartitions(t *testing.T) map[string]EncryptedPartition {
	dir, err := NewDirPartition(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create partition: %v", err)
	}
	return map[string]EncryptedPartition{
		"dir":    dir,
		"memory": NewMemoryPartition(),
	}
}

func TestWriteReadDeleteSecret(t *testing.T) {
	for name, partition := range testPartitions(t) {
		t.Run(name, func(t *testing.T) {
			secretData := []byte("this is a test secret")
			if err := partition.WriteSecret("test-secret", secretData); err != nil {
				t.Fatalf("Failed to write secret: %v", err)
			}
			readData, err := partition.ReadSecret("test-secret")
			if err != nil {
				t.Fatalf("Failed to read secret: %v", err)
			}
			if !bytes.Equal(readData, secretData) {
				t.Errorf("Read data doesn't match written data. Got %v, want %v", readData, secretData)
			}

			// Overwrite replaces the old content.
			if err := partition.WriteSecret("test-secret", []byte("v2")); err != nil {
				t.Fatalf("Failed to overwrite secret: %v", err)
			}
			readData, _ = partition.ReadSecret("test-secret")
			if string(readData) != "v2" {
				t.Errorf("Expected overwritten secret, got %q", readData)
			}

			if err := partition.DeleteSecret("test-secret"); err != nil {
				t.Fatalf("Failed to delete secret: %v", err)
			}
			if _, err := partition.ReadSecret("test-secret"); !errors.Is(err, ErrSecretNotFound) {
				t.Fatalf("Expected ErrSecretNotFound, got %v", err)
			}
			if err := partition.DeleteSecret("test-secret"); !errors.Is(err, ErrSecretNotFound) {
				t.Fatalf("Expected ErrSecretNotFound on second delete, got %v", err)
			}
		})
	}
}

func TestListSecrets(t *testing.T) {
	for name, partition := range testPartitions(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"secret3", "secret1", "secret2"} {
				if err := partition.WriteSecret(id, []byte(id)); err != nil {
					t.Fatalf("Failed to write secret %s: %v", id, err)
				}
			}
			ids, err := partition.ListSecrets()
			if err != nil {
				t.Fatalf("Failed to list secrets: %v", err)
			}
			want := []string{"secret1", "secret2", "secret3"}
			if fmt.Sprint(ids) != fmt.Sprint(want) {
				t.Errorf("Expected %v, got %v", want, ids)
			}
		})
	}
}

func TestDirPartitionRejectsTraversal(t *testing.T) {
	partition, err := NewDirPartition(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"", "..", "../escape", "a/b", "x.tmp"} {
		if err := partition.WriteSecret(id, []byte("x")); !errors.Is(err, ErrInvalidSecretID) {
			t.Errorf("id %q: expected ErrInvalidSecretID, got %v", id, err)
		}
	}
}

func TestSecureDelete(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test-file")
	if err := os.WriteFile(testFile, []byte("sensitive data to be securely deleted"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := secureDelete(testFile); err != nil {
		t.Fatalf("Failed to secure delete: %v", err)
	}
	if _, err := os.Stat(testFile); !os.IsNotExist(err) {
		t.Error("File should not exist after secure delete")
	}
}

func TestConcurrentWriteAndRead(t *testing.T) {
	partition, err := NewDirPartition(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create partition: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := partition.WriteSecret(fmt.Sprintf("secret-%d", id), []byte{byte(id)}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent operation error: %v", err)
	}
	for i := 0; i < 10; i++ {
		data, err := partition.ReadSecret(fmt.Sprintf("secret-%d", i))
		if err != nil || len(data) != 1 || data[0] != byte(i) {
			t.Errorf("secret-%d: got %v, %v", i, data, err)
		}
	}
}
