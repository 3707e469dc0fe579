package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestSearchOrdersByCosine(t *testing.T) {
	ix, err := New(2, [][]float32{
		{1, 0},
		{0, 1},
		{1, 1},
	})
	require.NoError(t, err)

	matches, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Index)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, 2, matches[1].Index)
	assert.InDelta(t, 1/math.Sqrt2, matches[1].Score, 1e-6)
	assert.Equal(t, 1, matches[2].Index)
	assert.InDelta(t, 0.0, matches[2].Score, 1e-6)
}

func TestSearchScoresWithinCosineRange(t *testing.T) {
	ix, err := New(3, [][]float32{
		{1, 2, 3},
		{-1, -2, -3},
		{0.5, -0.5, 2},
	})
	require.NoError(t, err)
	matches, err := ix.Search([]float32{2, -1, 0.25}, 0)
	require.NoError(t, err)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, -1.0-1e-6)
		assert.LessOrEqual(t, m.Score, 1.0+1e-6)
	}
}

func TestSearchTopK(t *testing.T) {
	ix, err := New(2, [][]float32{{1, 0}, {0, 1}, {1, 1}, {-1, 0}})
	require.NoError(t, err)
	matches, err := ix.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestDimensionMismatch(t *testing.T) {
	_, err := New(2, [][]float32{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	ix, err := New(2, [][]float32{{1, 0}})
	require.NoError(t, err)
	_, err = ix.Search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFromFlat(t *testing.T) {
	ix, err := FromFlat(2, []float32{1, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, 2, ix.Dim())

	_, err = FromFlat(3, []float32{1, 0, 0, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
