// Package rank scores chunks against a query with BM25. Statistics are
// precomputed once per document and serialized into the index artifact so
// queries never re-tokenize the corpus.
package rank

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Params are the BM25 free parameters.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams are the conventional values used across the system.
var DefaultParams = Params{K1: 1.5, B: 0.75}

// Stats holds the per-document term statistics BM25 needs.
type Stats struct {
	// N is the number of chunks.
	N int
	// AvgLen is the mean chunk length in terms.
	AvgLen float64
	// Lengths is the per-chunk term count.
	Lengths []int
	// DocFreq maps a term to the number of chunks containing it.
	DocFreq map[string]int
	// TermFreq maps, per chunk, each term to its occurrence count.
	TermFreq []map[string]int
}

// stopwords is the small removal list applied to both chunks and queries.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {},
	"were": {}, "with": {},
}

// Tokenize lowercases, NFKC-normalizes, splits on non-word runes, and drops
// stopwords. The same function serves chunks and queries so scores line up.
func Tokenize(s string) []string {
	s = strings.ToLower(norm.NFKC.String(s))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// BuildStats tokenizes every chunk and accumulates BM25 statistics.
func BuildStats(chunks []string) Stats {
	st := Stats{
		N:        len(chunks),
		Lengths:  make([]int, len(chunks)),
		DocFreq:  make(map[string]int),
		TermFreq: make([]map[string]int, len(chunks)),
	}
	total := 0
	for i, c := range chunks {
		terms := Tokenize(c)
		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		st.TermFreq[i] = tf
		st.Lengths[i] = len(terms)
		total += len(terms)
		for t := range tf {
			st.DocFreq[t]++
		}
	}
	if st.N > 0 {
		st.AvgLen = float64(total) / float64(st.N)
	}
	return st
}

// Result is one chunk's score.
type Result struct {
	Index int
	Score float64
}

// Score computes the BM25 score of every chunk against query. The returned
// slice is ordered by descending score, ties broken by ascending chunk
// index, so the ranking is deterministic.
func (st Stats) Score(query string, p Params) []Result {
	terms := Tokenize(query)
	results := make([]Result, st.N)
	for i := range results {
		results[i].Index = i
	}
	if len(terms) == 0 || st.N == 0 {
		return results
	}
	avg := st.AvgLen
	if avg == 0 {
		avg = 1
	}
	for _, t := range terms {
		df := st.DocFreq[t]
		if df == 0 {
			continue
		}
		idf := math.Log((float64(st.N)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i := 0; i < st.N; i++ {
			tf := float64(st.TermFreq[i][t])
			if tf == 0 {
				continue
			}
			denom := tf + p.K1*(1-p.B+p.B*float64(st.Lengths[i])/avg)
			results[i].Score += idf * tf * (p.K1 + 1) / denom
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].Index < results[b].Index
	})
	return results
}
