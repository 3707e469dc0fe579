package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "sdch:index:abc", Key("abc"))
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok := m.Get(ctx, "doc1")
	assert.False(t, ok)

	m.Put(ctx, "doc1", []byte("artifact"))
	blob, ok := m.Get(ctx, "doc1")
	assert.True(t, ok)
	assert.Equal(t, []byte("artifact"), blob)

	// duplicate puts are harmless
	m.Put(ctx, "doc1", []byte("artifact"))
	assert.Equal(t, 1, m.Len())

	m.Delete(ctx, "doc1")
	_, ok = m.Get(ctx, "doc1")
	assert.False(t, ok)

	assert.NoError(t, m.Ping(ctx))
}
