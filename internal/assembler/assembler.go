// Package assembler turns a stored document and a query into a bounded,
// query-relevant context string. Dispatch is by tier: direct injection,
// trim-then-inject, BM25 chunk retrieval, or vector-narrowed retrieval.
// Index builds are coalesced per document with single-flight.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"sdch/internal/artifact"
	"sdch/internal/budget"
	"sdch/internal/cache"
	"sdch/internal/chunker"
	"sdch/internal/embedder"
	"sdch/internal/ingest"
	"sdch/internal/objectstore"
	"sdch/internal/rank"
	"sdch/internal/store"
	"sdch/internal/tier"
	"sdch/internal/tokenizer"
	"sdch/internal/trimmer"
	"sdch/internal/vector"
)

var (
	// ErrDocumentNotReady reports a query against a document that is still
	// ingesting or failed.
	ErrDocumentNotReady = errors.New("document not ready")
	// ErrEmptyQuery reports a blank query string.
	ErrEmptyQuery = errors.New("query must not be empty")
)

// chunkSeparator joins accepted chunks in the assembled context.
const chunkSeparator = "\n\n---\n\n"

// Options configure assembly.
type Options struct {
	Budget   budget.Config
	Chunking chunker.Options
	// Tier1MaxTokens is the threshold a trimmed tier-2 document must fall
	// under to be injected whole.
	Tier1MaxTokens int
	// TopKDefault applies when a request does not set top_k.
	TopKDefault int
	BM25        rank.Params
	// Timeout bounds one whole assembly. Zero means the default.
	Timeout time.Duration
}

// DefaultTimeout is the total assembler budget per query.
const DefaultTimeout = 120 * time.Second

// ChunkUse describes one chunk included in the assembled context.
type ChunkUse struct {
	Index  int     `json:"index"`
	Tokens int     `json:"tokens"`
	Score  float64 `json:"score"`
}

// Result is the assembled context plus its trace.
type Result struct {
	DocID         uuid.UUID
	Query         string
	Tier          int
	Context       string
	TokenCount    int
	ChunksUsed    []ChunkUse
	StrategyNotes string
	Budget        budget.Allocation
}

// Service assembles contexts.
type Service struct {
	store   store.Store
	texts   objectstore.Store
	cache   cache.Cache
	gateway *embedder.Gateway
	chunker *chunker.Chunker
	trimmer *trimmer.Trimmer
	opts    Options

	count chunker.CountFunc
	slice chunker.SliceFunc

	builds singleflight.Group
}

// New wires the assembler against the shared cl100k_base tokenizer.
func New(st store.Store, texts objectstore.Store, c cache.Cache, gw *embedder.Gateway, ch *chunker.Chunker, opts Options) *Service {
	return NewWithTokenizer(st, texts, c, gw, ch, opts, tokenizer.Count, tokenizer.Slice)
}

// NewWithTokenizer injects token functions; used by tests.
func NewWithTokenizer(st store.Store, texts objectstore.Store, c cache.Cache, gw *embedder.Gateway, ch *chunker.Chunker, opts Options, count chunker.CountFunc, slice chunker.SliceFunc) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.TopKDefault <= 0 {
		opts.TopKDefault = 10
	}
	if opts.BM25 == (rank.Params{}) {
		opts.BM25 = rank.DefaultParams
	}
	return &Service{
		store:   st,
		texts:   texts,
		cache:   c,
		gateway: gw,
		chunker: ch,
		trimmer: trimmer.New(),
		opts:    opts,
		count:   count,
		slice:   slice,
	}
}

// Assemble produces the context for one query.
func (s *Service) Assemble(ctx context.Context, docID uuid.UUID, query string, topK int) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.opts.TopKDefault
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	if doc.Status != store.StatusReady {
		return Result{}, fmt.Errorf("document %s is %s: %w", docID, doc.Status, ErrDocumentNotReady)
	}

	res := Result{DocID: docID, Query: query, Tier: doc.Tier}
	switch tier.Tier(doc.Tier) {
	case tier.DirectInjection:
		err = s.assembleDirect(ctx, doc, &res, "Full document injected directly.")
	case tier.SmartTrimming:
		err = s.assembleTrimmed(ctx, doc, query, topK, &res)
	case tier.ChunkedRetrieval:
		err = s.assembleLexical(ctx, doc, query, topK, &res, "")
	case tier.VectorRetrieval:
		err = s.assembleVector(ctx, doc, query, topK, &res)
	default:
		err = fmt.Errorf("document %s has invalid tier %d", docID, doc.Tier)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// assembleDirect injects text verbatim, slicing on a token boundary in the
// degenerate case where even a tier-1 document exceeds the document budget.
func (s *Service) assembleDirect(ctx context.Context, doc store.Document, res *Result, notes string) error {
	text, err := s.canonicalText(ctx, doc)
	if err != nil {
		return err
	}
	return s.inject(text, doc.TokenCount, notes, res)
}

func (s *Service) inject(text string, tokens int, notes string, res *Result) error {
	alloc := budget.Allocate(s.opts.Budget, tokens)
	if tokens > alloc.DocumentBudget {
		sliced, err := s.slice(text, alloc.DocumentBudget)
		if err != nil {
			return err
		}
		text = sliced
		tokens, err = s.count(text)
		if err != nil {
			return err
		}
		notes += " Truncated to fit the document budget."
	}
	res.Context = text
	res.TokenCount = tokens
	res.ChunksUsed = []ChunkUse{}
	res.StrategyNotes = notes
	res.Budget = alloc
	return nil
}

// assembleTrimmed strips boilerplate; when the trimmed text fits under the
// tier-1 threshold it is injected whole, otherwise assembly continues with
// chunked retrieval over the trimmed text.
func (s *Service) assembleTrimmed(ctx context.Context, doc store.Document, query string, topK int, res *Result) error {
	text, err := s.canonicalText(ctx, doc)
	if err != nil {
		return err
	}
	trimmed := s.trimmer.Trim(text)
	tokens, err := s.count(trimmed)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	alloc := budget.Allocate(s.opts.Budget, tokens)
	if tokens <= s.opts.Tier1MaxTokens && tokens <= alloc.DocumentBudget {
		notes := fmt.Sprintf("Boilerplate trimmed (%d to %d tokens); trimmed document injected directly.",
			doc.TokenCount, tokens)
		return s.inject(trimmed, tokens, notes, res)
	}

	// Still too large: chunk the trimmed text on the fly and rank it.
	cs, err := s.chunker.Chunk(trimmed, s.opts.Chunking)
	if err != nil {
		return err
	}
	chunks := make([]store.Chunk, len(cs))
	for i, c := range cs {
		chunks[i] = store.Chunk{DocID: doc.ID, Index: c.Index, Tokens: c.Tokens, Text: c.Text, Section: c.Section}
	}
	art, err := ingest.BuildArtifact(ctx, s.gateway, chunks, false)
	if err != nil {
		return err
	}
	notes := fmt.Sprintf("Boilerplate trimmed (%d to %d tokens); still above the direct-injection threshold, fell back to chunked retrieval.",
		doc.TokenCount, tokens)
	return s.fillLexical(art, query, topK, notes, res)
}

// assembleLexical ranks the stored chunks with BM25 and greedy-fills the
// document budget.
func (s *Service) assembleLexical(ctx context.Context, doc store.Document, query string, topK int, res *Result, extraNotes string) error {
	art, err := s.loadOrBuildArtifact(ctx, doc, false)
	if err != nil {
		return err
	}
	notes := "Chunks ranked with BM25; budget filled in score order."
	if extraNotes != "" {
		notes = extraNotes + " " + notes
	}
	return s.fillLexical(art, query, topK, notes, res)
}

func (s *Service) fillLexical(art *artifact.Artifact, query string, topK int, notes string, res *Result) error {
	ranked := art.BM25.Score(query, s.opts.BM25)
	scored := make([]scoredChunk, len(ranked))
	for i, r := range ranked {
		scored[i] = scoredChunk{index: r.Index, score: r.Score}
	}
	return s.fill(art, scored, topK, notes, res)
}

// assembleVector narrows candidates by cosine similarity before the lexical
// greedy fill. Degrades to BM25-only when the artifact has no vectors or
// its embedder cannot serve right now.
func (s *Service) assembleVector(ctx context.Context, doc store.Document, query string, topK int, res *Result) error {
	art, err := s.loadOrBuildArtifact(ctx, doc, true)
	if err != nil {
		return err
	}
	if !art.HasVectors() {
		return s.fillFromArtifactLexical(art, query, topK,
			"Embeddings unavailable at build time; fell back to BM25 ranking.", res)
	}
	emb := s.gateway.ByName(art.Embedder)
	if emb == nil {
		return s.fillFromArtifactLexical(art, query, topK,
			fmt.Sprintf("Index embedder %q is not available; fell back to BM25 ranking.", art.Embedder), res)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	qvecs, err := emb.Embed(ctx, []string{query})
	if err != nil || len(qvecs) == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("doc_id", doc.ID.String()).Msg("query_embedding_failed_lexical_fallback")
		return s.fillFromArtifactLexical(art, query, topK,
			"Query embedding failed; fell back to BM25 ranking.", res)
	}

	ix, err := vector.FromFlat(art.Dim, art.Vectors)
	if err != nil {
		return err
	}
	matches, err := ix.Search(qvecs[0], 3*topK)
	if err != nil {
		return err
	}
	scored := make([]scoredChunk, len(matches))
	for i, m := range matches {
		scored[i] = scoredChunk{index: m.Index, score: m.Score}
	}
	notes := fmt.Sprintf("Top %d candidates by cosine similarity (%s); budget filled in similarity order.",
		len(matches), art.Embedder)
	return s.fill(art, scored, topK, notes, res)
}

func (s *Service) fillFromArtifactLexical(art *artifact.Artifact, query string, topK int, reason string, res *Result) error {
	notes := reason + " Chunks ranked with BM25; budget filled in score order."
	return s.fillLexical(art, query, topK, notes, res)
}

type scoredChunk struct {
	index int
	score float64
}

// fill greedy-accepts candidates in rank order while they fit the document
// budget (accounting for separators), capped at topK, then assembles the
// accepted chunks in ascending ordinal order.
func (s *Service) fill(art *artifact.Artifact, candidates []scoredChunk, topK int, notes string, res *Result) error {
	sepTokens, err := s.count(chunkSeparator)
	if err != nil {
		return err
	}
	docBudget := s.opts.Budget.DocumentBudget()

	type accepted struct {
		scoredChunk
		tokens int
	}
	var picks []accepted
	total := 0
	for _, c := range candidates {
		if len(picks) >= topK {
			break
		}
		if c.index < 0 || c.index >= len(art.Chunks) {
			continue
		}
		need := art.Chunks[c.index].Tokens
		if len(picks) > 0 {
			need += sepTokens
		}
		if total+need > docBudget {
			continue
		}
		picks = append(picks, accepted{scoredChunk: c, tokens: art.Chunks[c.index].Tokens})
		total += need
	}

	sort.Slice(picks, func(a, b int) bool { return picks[a].index < picks[b].index })

	parts := make([]string, len(picks))
	uses := make([]ChunkUse, len(picks))
	for i, p := range picks {
		parts[i] = art.Chunks[p.index].Text
		uses[i] = ChunkUse{Index: p.index, Tokens: p.tokens, Score: p.score}
	}
	ctxText := strings.Join(parts, chunkSeparator)
	tokens, err := s.count(ctxText)
	if err != nil {
		return err
	}

	res.Context = ctxText
	res.TokenCount = tokens
	res.ChunksUsed = uses
	res.StrategyNotes = notes
	res.Budget = budget.Allocate(s.opts.Budget, total)
	return nil
}

// canonicalText fetches the document's stored canonical text.
func (s *Service) canonicalText(ctx context.Context, doc store.Document) (string, error) {
	data, err := s.texts.Get(ctx, doc.TextPath)
	if err != nil {
		return "", fmt.Errorf("loading canonical text for %s: %w", doc.ID, err)
	}
	return string(data), nil
}

// loadOrBuildArtifact returns the document's index artifact, consulting the
// cache first and coalescing concurrent builds per document id. A cached
// artifact whose embedding dimension no longer matches its embedder is
// treated as a miss and rebuilt.
func (s *Service) loadOrBuildArtifact(ctx context.Context, doc store.Document, wantVectors bool) (*artifact.Artifact, error) {
	key := doc.ID.String()
	if blob, ok := s.cache.Get(ctx, key); ok {
		art, err := artifact.Decode(blob)
		if err == nil && s.artifactUsable(art) {
			return art, nil
		}
		if err != nil {
			log.Warn().Err(err).Str("doc_id", key).Msg("cached_artifact_rejected_rebuilding")
		} else {
			log.Warn().Str("doc_id", key).Str("embedder", art.Embedder).Int("dim", art.Dim).
				Msg("cached_artifact_dimension_mismatch_rebuilding")
		}
	}

	v, err, _ := s.builds.Do(key, func() (interface{}, error) {
		chunks, err := s.store.GetChunks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		art, err := ingest.BuildArtifact(ctx, s.gateway, chunks, wantVectors)
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			// cancelled builds must not publish partial artifacts
			return nil, ctx.Err()
		}
		if blob, encErr := art.Encode(); encErr == nil {
			s.cache.Put(ctx, key, blob)
		} else {
			log.Warn().Err(encErr).Str("doc_id", key).Msg("artifact_encode_error")
		}
		return art, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*artifact.Artifact), nil
}

// artifactUsable verifies a cached artifact's embedding dimension still
// matches the embedder identity it records.
func (s *Service) artifactUsable(art *artifact.Artifact) bool {
	if !art.HasVectors() {
		return true
	}
	emb := s.gateway.ByName(art.Embedder)
	if emb == nil {
		// identity unknown right now; the assembler will degrade to BM25
		return true
	}
	return art.ValidateDimension(emb.Dimension()) == nil
}
