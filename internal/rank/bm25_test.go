package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"The quick brown fox jumps over the lazy dog.",
	"A discussion of database indexing strategies and query planners.",
	"The zeppelin migration pattern appears exactly once in this corpus.",
	"Indexing and retrieval of documents with inverted indexes.",
	"Weather patterns over the Atlantic shifted in March.",
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The Quick, quick FOX!")
	assert.Equal(t, []string{"quick", "quick", "fox"}, got)
}

func TestTokenizeDropsStopwords(t *testing.T) {
	got := Tokenize("the of and to a")
	assert.Empty(t, got)
}

func TestBuildStats(t *testing.T) {
	st := BuildStats(corpus)
	require.Equal(t, len(corpus), st.N)
	assert.Len(t, st.Lengths, len(corpus))
	assert.Len(t, st.TermFreq, len(corpus))
	assert.Greater(t, st.AvgLen, 0.0)
	// "indexing" appears in chunks 1 and 3
	assert.Equal(t, 2, st.DocFreq["indexing"])
}

func TestScoreRanksUniquePhraseFirst(t *testing.T) {
	st := BuildStats(corpus)
	results := st.Score("zeppelin migration", DefaultParams)
	require.Len(t, results, len(corpus))
	assert.Equal(t, 2, results[0].Index)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestScoreDeterministic(t *testing.T) {
	st := BuildStats(corpus)
	first := st.Score("indexing documents", DefaultParams)
	for i := 0; i < 5; i++ {
		again := st.Score("indexing documents", DefaultParams)
		assert.Equal(t, first, again)
	}
}

func TestScoreTieBreaksByAscendingIndex(t *testing.T) {
	st := BuildStats([]string{"alpha beta", "gamma delta", "epsilon zeta"})
	results := st.Score("nomatch", DefaultParams)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Zero(t, r.Score)
	}
}

func TestScoreEmptyCorpus(t *testing.T) {
	st := BuildStats(nil)
	assert.Empty(t, st.Score("anything", DefaultParams))
}
