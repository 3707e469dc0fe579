package embedder

import (
	"context"
	"hash/fnv"

	"sdch/internal/vector"
)

// LocalName identifies the hashing embedder in index artifacts.
const LocalName = "local-trigram"

// LocalDimension is the fallback embedder's fixed output size.
const LocalDimension = 384

// Local is a deterministic, dependency-free embedder: byte 3-grams are
// hashed into a fixed-size vector which is then L2-normalized. It has no
// semantic understanding but gives stable, well-distributed vectors when the
// primary embedder is unreachable or unconfigured.
type Local struct {
	dim int
}

// NewLocal returns the hashing embedder at the standard fallback dimension.
func NewLocal() *Local {
	return &Local{dim: LocalDimension}
}

func (l *Local) Name() string   { return LocalName }
func (l *Local) Dimension() int { return l.dim }

func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.embedOne(t)
	}
	return out, nil
}

func (l *Local) embedOne(s string) []float32 {
	v := make([]float32, l.dim)
	b := []byte(s)
	if len(b) == 0 {
		return v
	}
	if len(b) < 3 {
		addGram(b, v)
	} else {
		for i := 0; i+3 <= len(b); i++ {
			addGram(b[i:i+3], v)
		}
	}
	vector.Normalize(v)
	return v
}

func addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	// map the high bits to a signed weight in [-1, 1]
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
