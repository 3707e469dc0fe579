// Package embedder converts text to embedding vectors. A gateway fronts the
// primary (remote) embedder and falls back to a local deterministic one, so
// ingestion never hard-fails on embedding availability.
package embedder

import (
	"context"
	"errors"
)

// Embedder converts a batch of texts into one vector per text.
type Embedder interface {
	// Embed returns an embedding per input, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name is the stable identity recorded in index artifacts; query-time
	// embedding must use the same identity the artifact was built with.
	Name() string
	// Dimension is the fixed output dimensionality.
	Dimension() int
}

// ErrUnavailable reports that no embedder could produce vectors.
var ErrUnavailable = errors.New("no embedder available")
