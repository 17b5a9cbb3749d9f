// Package kvstore provides the key-value backends the test-mode ledger
// runs on.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// Entry is one key-value pair returned by Scan.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a flat key-value surface with prefix scans. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, prefix string) ([]Entry, error)
}
