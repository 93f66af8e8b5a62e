// ABOUTME: Key/value backends for the local lead cache
// ABOUTME: Badger, SQLite and in-memory implementations of a minimal KV interface
package cache

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by KV.Get for absent keys.
var ErrNotFound = errors.New("key not found")

// KV is the minimal durable storage the cache needs.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Close() error
}

// Memory is a process-local KV used in tests and for throwaway sessions.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
