// Package artifact serializes a document's reusable index state: chunk
// texts, BM25 statistics, and the embedding matrix when one exists. The
// format is versioned so stale cache entries are detected, and the embedder
// identity plus dimension are recorded so mismatched artifacts are treated
// as cache misses rather than crashes.
package artifact

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"sdch/internal/rank"
)

var (
	// ErrCorrupt reports a blob that is not an sdch artifact or is damaged.
	ErrCorrupt = errors.New("corrupt index artifact")
	// ErrVersionMismatch reports an artifact written by another format
	// version. Callers treat it as a cache miss.
	ErrVersionMismatch = errors.New("index artifact version mismatch")
	// ErrDimensionMismatch reports an artifact whose embedding dimension
	// does not match the embedder that would query it.
	ErrDimensionMismatch = errors.New("index artifact dimension mismatch")
)

var magic = [4]byte{'S', 'D', 'C', 'H'}

const version = 1

// maxSaneCount bounds decoded counts so a corrupt length prefix cannot
// trigger a huge allocation.
const maxSaneCount = 1 << 26

// Chunk is the per-chunk state carried by the artifact.
type Chunk struct {
	Index   int
	Tokens  int
	Text    string
	Section string
}

// Artifact is a document's serialized index bundle.
type Artifact struct {
	// Embedder is the identity that produced Vectors; empty when no
	// embeddings were generated.
	Embedder string
	// Dim is the embedding dimension; zero when no embeddings exist.
	Dim int
	// Chunks are in ordinal order.
	Chunks []Chunk
	// BM25 statistics over Chunks.
	BM25 rank.Stats
	// Vectors is the row-major len(Chunks) x Dim normalized matrix; nil when
	// embeddings are absent.
	Vectors []float32
}

// HasVectors reports whether the artifact carries an embedding matrix.
func (a *Artifact) HasVectors() bool {
	return a.Dim > 0 && len(a.Vectors) == len(a.Chunks)*a.Dim && len(a.Chunks) > 0
}

// Encode serializes the artifact. Layout (little-endian):
// magic[4] version[1] embedder(str) dim[u32] nchunks[u32]
// chunks{tokens,u32 section(str) text(str)} bm25 hasVectors[u8] floats.
func (a *Artifact) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(version)
	writeString(&buf, a.Embedder)
	writeU32(&buf, uint32(a.Dim))
	writeU32(&buf, uint32(len(a.Chunks)))
	for _, c := range a.Chunks {
		writeU32(&buf, uint32(c.Tokens))
		writeString(&buf, c.Section)
		writeString(&buf, c.Text)
	}
	if err := encodeStats(&buf, a.BM25); err != nil {
		return nil, err
	}
	if a.HasVectors() {
		buf.WriteByte(1)
		for _, f := range a.Vectors {
			writeU32(&buf, math.Float32bits(f))
		}
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}

// Decode parses a serialized artifact.
func Decode(blob []byte) (*Artifact, error) {
	r := &reader{buf: blob}
	var m [4]byte
	r.read(m[:])
	if m != magic {
		return nil, fmt.Errorf("bad magic %q: %w", m[:], ErrCorrupt)
	}
	if v := r.byte(); v != version {
		return nil, fmt.Errorf("artifact version %d, want %d: %w", v, version, ErrVersionMismatch)
	}
	a := &Artifact{}
	a.Embedder = r.string()
	a.Dim = int(r.u32())
	n := int(r.u32())
	if n > maxSaneCount {
		return nil, fmt.Errorf("chunk count %d: %w", n, ErrCorrupt)
	}
	a.Chunks = make([]Chunk, n)
	for i := range a.Chunks {
		a.Chunks[i] = Chunk{
			Index:   i,
			Tokens:  int(r.u32()),
			Section: r.string(),
			Text:    r.string(),
		}
	}
	var err error
	if a.BM25, err = decodeStats(r, n); err != nil {
		return nil, err
	}
	if r.byte() == 1 {
		count := n * a.Dim
		if count > maxSaneCount {
			return nil, fmt.Errorf("embedding matrix of %d floats: %w", count, ErrCorrupt)
		}
		a.Vectors = make([]float32, count)
		for i := range a.Vectors {
			a.Vectors[i] = math.Float32frombits(r.u32())
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("truncated artifact: %w", ErrCorrupt)
	}
	return a, nil
}

// ValidateDimension checks that the artifact's recorded dimension matches
// dim, returning ErrDimensionMismatch otherwise.
func (a *Artifact) ValidateDimension(dim int) error {
	if !a.HasVectors() {
		return nil
	}
	if a.Dim != dim {
		return fmt.Errorf("artifact dim %d vs embedder dim %d: %w", a.Dim, dim, ErrDimensionMismatch)
	}
	return nil
}

func encodeStats(buf *bytes.Buffer, st rank.Stats) error {
	writeU32(buf, uint32(st.N))
	writeU64(buf, math.Float64bits(st.AvgLen))
	for _, l := range st.Lengths {
		writeU32(buf, uint32(l))
	}
	writeU32(buf, uint32(len(st.DocFreq)))
	for t, df := range st.DocFreq {
		writeString(buf, t)
		writeU32(buf, uint32(df))
	}
	for _, tf := range st.TermFreq {
		writeU32(buf, uint32(len(tf)))
		for t, n := range tf {
			writeString(buf, t)
			writeU32(buf, uint32(n))
		}
	}
	return nil
}

func decodeStats(r *reader, nchunks int) (rank.Stats, error) {
	st := rank.Stats{}
	st.N = int(r.u32())
	if st.N != nchunks {
		return st, fmt.Errorf("bm25 stats cover %d chunks, artifact has %d: %w", st.N, nchunks, ErrCorrupt)
	}
	st.AvgLen = math.Float64frombits(r.u64())
	st.Lengths = make([]int, st.N)
	for i := range st.Lengths {
		st.Lengths[i] = int(r.u32())
	}
	nterms := int(r.u32())
	if nterms > maxSaneCount {
		return st, fmt.Errorf("df table of %d terms: %w", nterms, ErrCorrupt)
	}
	st.DocFreq = make(map[string]int, nterms)
	for i := 0; i < nterms; i++ {
		t := r.string()
		st.DocFreq[t] = int(r.u32())
	}
	st.TermFreq = make([]map[string]int, st.N)
	for i := range st.TermFreq {
		n := int(r.u32())
		if n > maxSaneCount {
			return st, fmt.Errorf("tf table of %d terms: %w", n, ErrCorrupt)
		}
		tf := make(map[string]int, n)
		for j := 0; j < n; j++ {
			t := r.string()
			tf[t] = int(r.u32())
		}
		st.TermFreq[i] = tf
	}
	return st, r.err
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

// reader is a bounds-checked little-endian cursor; the first failure sticks.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) read(dst []byte) {
	if r.err != nil {
		return
	}
	if r.off+len(dst) > len(r.buf) {
		r.err = ErrCorrupt
		return
	}
	copy(dst, r.buf[r.off:])
	r.off += len(dst)
}

func (r *reader) byte() byte {
	var b [1]byte
	r.read(b[:])
	return b[0]
}

func (r *reader) u32() uint32 {
	var b [4]byte
	r.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (r *reader) u64() uint64 {
	var b [8]byte
	r.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (r *reader) string() string {
	n := int(r.u32())
	if r.err != nil || n > maxSaneCount {
		if r.err == nil {
			r.err = ErrCorrupt
		}
		return ""
	}
	b := make([]byte, n)
	r.read(b)
	if r.err != nil {
		return ""
	}
	return string(b)
}
