package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoc(name string, createdAt time.Time) Document {
	return Document{
		ID:        uuid.New(),
		Filename:  name,
		Size:      100,
		Status:    StatusUploading,
		CreatedAt: createdAt,
	}
}

func TestMemoryCreateGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	doc := newDoc("a.txt", time.Now())

	require.NoError(t, m.CreateDocument(ctx, doc))
	got, err := m.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Filename, got.Filename)

	_, err = m.GetDocument(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFinalize(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	doc := newDoc("a.txt", time.Now())
	require.NoError(t, m.CreateDocument(ctx, doc))

	doc.TokenCount = 30000
	doc.Tier = 3
	chunks := []Chunk{
		{DocID: doc.ID, Index: 0, Tokens: 10, Text: "first"},
		{DocID: doc.ID, Index: 1, Tokens: 12, Text: "second"},
	}
	require.NoError(t, m.FinalizeDocument(ctx, doc, chunks))

	got, err := m.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, 30000, got.TokenCount)

	gotChunks, err := m.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, gotChunks, 2)

	assert.ErrorIs(t, m.FinalizeDocument(ctx, newDoc("ghost", time.Now()), nil), ErrNotFound)
}

func TestMemoryMarkFailed(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	doc := newDoc("a.txt", time.Now())
	require.NoError(t, m.CreateDocument(ctx, doc))

	require.NoError(t, m.MarkFailed(ctx, doc.ID, "decode error"))
	got, err := m.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "decode error", got.FailReason)
}

func TestMemoryListOrdersMostRecentFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now()
	old := newDoc("old.txt", base.Add(-2*time.Hour))
	mid := newDoc("mid.txt", base.Add(-1*time.Hour))
	recent := newDoc("new.txt", base)
	for _, d := range []Document{old, recent, mid} {
		require.NoError(t, m.CreateDocument(ctx, d))
	}

	docs, err := m.ListDocuments(ctx, 100)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "new.txt", docs[0].Filename)
	assert.Equal(t, "mid.txt", docs[1].Filename)
	assert.Equal(t, "old.txt", docs[2].Filename)

	limited, err := m.ListDocuments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMemoryDeleteCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	doc := newDoc("a.txt", time.Now())
	require.NoError(t, m.CreateDocument(ctx, doc))
	require.NoError(t, m.FinalizeDocument(ctx, doc, []Chunk{{DocID: doc.ID, Index: 0, Text: "x"}}))

	require.NoError(t, m.DeleteDocument(ctx, doc.ID))
	_, err := m.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	chunks, err := m.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// deleting again is not an error
	assert.NoError(t, m.DeleteDocument(ctx, doc.ID))
}
