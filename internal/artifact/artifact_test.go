package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdch/internal/rank"
)

func sampleArtifact(withVectors bool) *Artifact {
	texts := []string{
		"The first chunk talks about databases.",
		"The second chunk covers embeddings and vectors.",
	}
	a := &Artifact{
		Chunks: []Chunk{
			{Index: 0, Tokens: 8, Text: texts[0], Section: "page:1"},
			{Index: 1, Tokens: 9, Text: texts[1]},
		},
		BM25: rank.BuildStats(texts),
	}
	if withVectors {
		a.Embedder = "local-trigram"
		a.Dim = 4
		a.Vectors = []float32{0.5, 0.5, 0.5, 0.5, 1, 0, 0, 0}
	}
	return a
}

func TestRoundTripWithVectors(t *testing.T) {
	a := sampleArtifact(true)
	blob, err := a.Encode()
	require.NoError(t, err)

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, a.Embedder, got.Embedder)
	assert.Equal(t, a.Dim, got.Dim)
	assert.Equal(t, a.Chunks, got.Chunks)
	assert.Equal(t, a.Vectors, got.Vectors)
	assert.Equal(t, a.BM25.N, got.BM25.N)
	assert.Equal(t, a.BM25.AvgLen, got.BM25.AvgLen)
	assert.Equal(t, a.BM25.Lengths, got.BM25.Lengths)
	assert.Equal(t, a.BM25.DocFreq, got.BM25.DocFreq)
	assert.Equal(t, a.BM25.TermFreq, got.BM25.TermFreq)
	assert.True(t, got.HasVectors())
}

func TestRoundTripLexicalOnly(t *testing.T) {
	a := sampleArtifact(false)
	blob, err := a.Encode()
	require.NoError(t, err)

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.False(t, got.HasVectors())
	assert.Empty(t, got.Vectors)
	assert.Equal(t, a.Chunks, got.Chunks)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an artifact at all"))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	blob, err := sampleArtifact(false).Encode()
	require.NoError(t, err)
	blob[4] = 99
	_, err = Decode(blob)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDecodeRejectsTruncation(t *testing.T) {
	blob, err := sampleArtifact(true).Encode()
	require.NoError(t, err)
	_, err = Decode(blob[:len(blob)-6])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestValidateDimension(t *testing.T) {
	a := sampleArtifact(true)
	assert.NoError(t, a.ValidateDimension(4))
	assert.ErrorIs(t, a.ValidateDimension(384), ErrDimensionMismatch)

	lexical := sampleArtifact(false)
	assert.NoError(t, lexical.ValidateDimension(1536))
}
