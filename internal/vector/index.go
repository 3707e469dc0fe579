// Package vector implements a flat, exact cosine-similarity index over
// L2-normalized float32 embeddings. At current document scale a brute-force
// scan beats maintaining an approximate structure.
package vector

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDimensionMismatch reports a query or row whose dimension does not match
// the index.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is a row-major N x Dim matrix of normalized vectors.
type Index struct {
	dim  int
	rows int
	data []float32
}

// New builds an index from pre-computed embeddings, normalizing each row.
// All rows must share the same dimension.
func New(dim int, vectors [][]float32) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	ix := &Index{dim: dim, data: make([]float32, 0, len(vectors)*dim)}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("row %d has dimension %d: %w", i, len(v), ErrDimensionMismatch)
		}
		nv := append([]float32(nil), v...)
		Normalize(nv)
		ix.data = append(ix.data, nv...)
		ix.rows++
	}
	return ix, nil
}

// FromFlat wraps an already-normalized row-major matrix, as decoded from an
// index artifact. The slice is used directly, not copied.
func FromFlat(dim int, data []float32) (*Index, error) {
	if dim <= 0 || len(data)%dim != 0 {
		return nil, fmt.Errorf("flat matrix of %d floats does not divide into rows of %d: %w",
			len(data), dim, ErrDimensionMismatch)
	}
	return &Index{dim: dim, rows: len(data) / dim, data: data}, nil
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Len returns the number of rows.
func (ix *Index) Len() int { return ix.rows }

// Flat exposes the normalized row-major matrix for serialization.
func (ix *Index) Flat() []float32 { return ix.data }

// Match is one search hit; Score is the cosine similarity in [-1, 1].
type Match struct {
	Index int
	Score float64
}

// Search returns the top-k rows by dot product against query (cosine after
// normalization). A normalized copy of the query is used; the caller's slice
// is left unchanged. Ties break on ascending row index.
func (ix *Index) Search(query []float32, k int) ([]Match, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d vs index %d: %w", len(query), ix.dim, ErrDimensionMismatch)
	}
	q := append([]float32(nil), query...)
	Normalize(q)

	matches := make([]Match, ix.rows)
	for r := 0; r < ix.rows; r++ {
		row := ix.data[r*ix.dim : (r+1)*ix.dim]
		var dot float64
		for i, x := range row {
			dot += float64(x) * float64(q[i])
		}
		matches[r] = Match{Index: r, Score: dot}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].Index < matches[b].Index
	})
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Normalize scales v to unit L2 length in place. Zero vectors are left as-is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
