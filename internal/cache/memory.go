package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache for tests and Redis-less runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, docID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.entries[Key(docID)]
	return blob, ok
}

func (m *Memory) Put(_ context.Context, docID string, blob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(docID)] = append([]byte(nil), blob...)
}

func (m *Memory) Delete(_ context.Context, docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, Key(docID))
}

func (m *Memory) Ping(context.Context) error { return nil }

// Len reports the number of cached artifacts; used by tests.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
