package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Repository. It is the default backend and the
// one tests use.
type Memory struct {
	records map[string][]byte
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

// Load returns the record stored under key, or ErrNotFound.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Save stores the record under key.
func (m *Memory) Save(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.records[key] = stored
	m.mu.Unlock()
	return nil
}

// Delete removes the record under key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error { return nil }
