package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store for tests and credential-less runs.
type Memory struct {
	mu     sync.RWMutex
	docs   map[uuid.UUID]Document
	chunks map[uuid.UUID][]Chunk
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:   make(map[uuid.UUID]Document),
		chunks: make(map[uuid.UUID][]Chunk),
	}
}

func (m *Memory) CreateDocument(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *Memory) FinalizeDocument(_ context.Context, doc Document, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	doc.CreatedAt = cur.CreatedAt
	doc.Status = StatusReady
	doc.FailReason = ""
	m.docs[doc.ID] = doc
	m.chunks[doc.ID] = append([]Chunk(nil), chunks...)
	return nil
}

func (m *Memory) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = StatusFailed
	doc.FailReason = reason
	m.docs[id] = doc
	return nil
}

func (m *Memory) GetDocument(_ context.Context, id uuid.UUID) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) ListDocuments(_ context.Context, limit int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(a, b int) bool {
		return docs[a].CreatedAt.After(docs[b].CreatedAt)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *Memory) GetChunks(_ context.Context, docID uuid.UUID) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Chunk(nil), m.chunks[docID]...), nil
}

func (m *Memory) DeleteDocument(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
