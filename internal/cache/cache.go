// Package cache keeps serialized index artifacts warm between queries.
// The cache is authoritative nowhere: every artifact can be rebuilt from
// the durable chunk store, so all cache failures are logged and swallowed.
package cache

import "context"

// Cache stores one opaque artifact blob per document id.
type Cache interface {
	// Get returns the blob and true on a hit. Backend errors read as misses.
	Get(ctx context.Context, docID string) ([]byte, bool)
	// Put stores the blob best-effort; duplicate puts are harmless.
	Put(ctx context.Context, docID string, blob []byte)
	// Delete removes the entry best-effort.
	Delete(ctx context.Context, docID string)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// Key is the cache key for a document's index artifact.
func Key(docID string) string {
	return "sdch:index:" + docID
}
