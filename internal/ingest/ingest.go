// Package ingest runs the upload pipeline: decode, count, classify, chunk,
// embed, persist. A document comes out ready (or failed with a reason) and
// never changes afterwards.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sdch/internal/artifact"
	"sdch/internal/cache"
	"sdch/internal/chunker"
	"sdch/internal/embedder"
	"sdch/internal/loader"
	"sdch/internal/objectstore"
	"sdch/internal/rank"
	"sdch/internal/store"
	"sdch/internal/tier"
	"sdch/internal/tokenizer"
	"sdch/internal/vector"
)

// ErrOversize reports an upload above the configured ceiling.
var ErrOversize = errors.New("file exceeds size limit")

// Options configure the pipeline.
type Options struct {
	Thresholds   tier.Thresholds
	Chunking     chunker.Options
	MaxFileBytes int64
}

// Service executes uploads and deletions.
type Service struct {
	store   store.Store
	texts   objectstore.Store
	cache   cache.Cache
	gateway *embedder.Gateway
	chunker *chunker.Chunker
	count   chunker.CountFunc
	opts    Options
}

// New wires the pipeline against the shared cl100k_base tokenizer.
func New(st store.Store, texts objectstore.Store, c cache.Cache, gw *embedder.Gateway, ch *chunker.Chunker, opts Options) *Service {
	return NewWithTokenizer(st, texts, c, gw, ch, opts, tokenizer.Count)
}

// NewWithTokenizer injects the token counter; used by tests.
func NewWithTokenizer(st store.Store, texts objectstore.Store, c cache.Cache, gw *embedder.Gateway, ch *chunker.Chunker, opts Options, count chunker.CountFunc) *Service {
	return &Service{store: st, texts: texts, cache: c, gateway: gw, chunker: ch, count: count, opts: opts}
}

// TextKey is the object-store key holding a document's canonical text.
func TextKey(id uuid.UUID) string {
	return "text/" + id.String()
}

// Upload ingests one file and returns the finished document record.
func (s *Service) Upload(ctx context.Context, filename, mimeHint string, data []byte) (store.Document, error) {
	if s.opts.MaxFileBytes > 0 && int64(len(data)) > s.opts.MaxFileBytes {
		return store.Document{}, fmt.Errorf("%d bytes: %w", len(data), ErrOversize)
	}

	doc := store.Document{
		ID:        uuid.New(),
		Filename:  filename,
		Size:      int64(len(data)),
		MIME:      mimeHint,
		Status:    store.StatusUploading,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return store.Document{}, fmt.Errorf("creating document record: %w", err)
	}

	finished, err := s.run(ctx, doc, data)
	if err != nil {
		if ctx.Err() == nil {
			if mErr := s.store.MarkFailed(context.WithoutCancel(ctx), doc.ID, err.Error()); mErr != nil {
				log.Error().Err(mErr).Str("doc_id", doc.ID.String()).Msg("mark_failed_error")
			}
		}
		return store.Document{}, err
	}
	return finished, nil
}

// run drives the pipeline phases; Upload marks the document failed on any
// returned error unless the context was cancelled, in which case the record
// stays in the uploading state.
func (s *Service) run(ctx context.Context, doc store.Document, data []byte) (store.Document, error) {
	res, err := loader.Load(ctx, data, doc.Filename, doc.MIME)
	if err != nil {
		return store.Document{}, err
	}
	doc.MIME = res.MIME
	doc.PageCount = res.PageCount
	doc.RowCount = res.RowCount

	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	doc.TokenCount, err = s.count(res.Text)
	if err != nil {
		return store.Document{}, fmt.Errorf("counting tokens: %w", err)
	}
	doc.Tier = int(tier.Classify(doc.TokenCount, s.opts.Thresholds))

	doc.TextPath = TextKey(doc.ID)
	if err := s.texts.Put(ctx, doc.TextPath, []byte(res.Text)); err != nil {
		return store.Document{}, fmt.Errorf("storing canonical text: %w", err)
	}

	var chunks []store.Chunk
	if doc.Tier >= int(tier.ChunkedRetrieval) {
		if err := ctx.Err(); err != nil {
			return store.Document{}, err
		}
		cs, err := s.chunker.Chunk(res.Text, s.opts.Chunking)
		if err != nil {
			return store.Document{}, fmt.Errorf("chunking: %w", err)
		}
		chunks = make([]store.Chunk, len(cs))
		for i, c := range cs {
			chunks[i] = store.Chunk{
				DocID:   doc.ID,
				Index:   c.Index,
				Tokens:  c.Tokens,
				Text:    c.Text,
				Section: c.Section,
			}
		}

		art, err := BuildArtifact(ctx, s.gateway, chunks, doc.Tier >= int(tier.VectorRetrieval))
		if err != nil {
			return store.Document{}, err
		}
		s.putArtifact(ctx, doc.ID, art)
	}

	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	doc.Status = store.StatusReady
	if err := s.store.FinalizeDocument(ctx, doc, chunks); err != nil {
		return store.Document{}, fmt.Errorf("finalizing document: %w", err)
	}
	log.Info().
		Str("doc_id", doc.ID.String()).
		Str("filename", doc.Filename).
		Int("tokens", doc.TokenCount).
		Int("tier", doc.Tier).
		Int("chunks", len(chunks)).
		Msg("document_ingested")
	return doc, nil
}

// putArtifact writes the artifact to the cache best-effort.
func (s *Service) putArtifact(ctx context.Context, id uuid.UUID, art *artifact.Artifact) {
	blob, err := art.Encode()
	if err != nil {
		log.Warn().Err(err).Str("doc_id", id.String()).Msg("artifact_encode_error")
		return
	}
	s.cache.Put(ctx, id.String(), blob)
}

// Delete removes a document everywhere: metadata (cascading to chunks),
// cached artifact, and stored canonical text.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(ctx, id.String())
	if err := s.texts.Delete(ctx, TextKey(id)); err != nil {
		log.Warn().Err(err).Str("doc_id", id.String()).Msg("text_artifact_delete_error")
	}
	return nil
}

// BuildArtifact assembles a document's index artifact from its chunks.
// BM25 statistics are always computed; embeddings only when wantVectors and
// an embedder can serve. Embedding failure degrades to a lexical-only
// artifact rather than failing the build.
func BuildArtifact(ctx context.Context, gw *embedder.Gateway, chunks []store.Chunk, wantVectors bool) (*artifact.Artifact, error) {
	texts := make([]string, len(chunks))
	arts := make([]artifact.Chunk, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		arts[i] = artifact.Chunk{Index: c.Index, Tokens: c.Tokens, Text: c.Text, Section: c.Section}
	}
	art := &artifact.Artifact{
		Chunks: arts,
		BM25:   rank.BuildStats(texts),
	}
	if !wantVectors || len(chunks) == 0 {
		return art, nil
	}

	vecs, name, err := gw.Embed(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Int("chunks", len(chunks)).Msg("embedding_unavailable_lexical_only")
		return art, nil
	}
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	flat := make([]float32, 0, len(vecs)*dim)
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim)
		}
		vector.Normalize(v)
		flat = append(flat, v...)
	}
	art.Embedder = name
	art.Dim = dim
	art.Vectors = flat
	return art, nil
}
