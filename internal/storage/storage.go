// Package storage provides the opaque key/value persistence boundary for
// pathlight. The engine only ever sees serialized records behind the
// Repository interface, so the backing store is swappable.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when no record exists for the key.
var ErrNotFound = errors.New("storage: record not found")

// PersistenceError wraps a backend failure. Callers treat it as non-fatal
// and fall back to in-memory defaults.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Repository is the opaque serialized-record key/value interface provided
// to the engine. Implementations must be safe for concurrent use.
type Repository interface {
	// Load returns the record stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores the record under key, replacing any existing value.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes the record under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// wrap converts a backend error into a PersistenceError, passing
// ErrNotFound through untouched.
func wrap(op, key string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Key: key, Err: err}
}
