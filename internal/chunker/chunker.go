// Package chunker splits canonical text into sentence-aligned, token-bounded
// chunks with overlap. Sentence boundaries come from a Punkt-style tokenizer
// trained on English prose; tabular lines, page markers, and sheet banners
// are implicit boundaries of their own.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"

	"sdch/internal/tokenizer"
)

// Options control chunk sizing in tokens.
type Options struct {
	// TargetTokens is the size a chunk grows toward before it is emitted.
	TargetTokens int
	// OverlapTokens is the minimum token count carried from the tail of one
	// chunk into the head of the next.
	OverlapTokens int
	// MaxTokens is the hard ceiling no chunk may exceed.
	MaxTokens int
}

// DefaultOptions mirror the documented defaults.
var DefaultOptions = Options{TargetTokens: 512, OverlapTokens: 64, MaxTokens: 768}

// Chunk is one sentence-aligned fragment of a document.
type Chunk struct {
	Index   int
	Text    string
	Tokens  int
	Section string
}

// CountFunc measures text in tokens.
type CountFunc func(string) (int, error)

// SliceFunc returns the longest prefix of text within a token limit.
type SliceFunc func(string, int) (string, error)

// Chunker segments text into chunks. The zero value is not usable; call New.
type Chunker struct {
	count CountFunc
	slice SliceFunc
	seg   *sentences.DefaultSentenceTokenizer
}

// New returns a Chunker backed by the shared cl100k_base tokenizer.
func New() (*Chunker, error) {
	return NewWithTokenizer(tokenizer.Count, tokenizer.Slice)
}

// NewWithTokenizer returns a Chunker using the supplied token functions.
// Used by tests to avoid loading the BPE vocabulary.
func NewWithTokenizer(count CountFunc, slice SliceFunc) (*Chunker, error) {
	seg, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("loading sentence tokenizer: %w", err)
	}
	return &Chunker{count: count, slice: slice, seg: seg}, nil
}

var (
	pageMarkerRe = regexp.MustCompile(`^\[Page (\d+)\]$`)
	sheetRe      = regexp.MustCompile(`^# Sheet: (.+)$`)
)

// sentence is an internal segmentation unit with its token cost and the
// section it opens (if any).
type sentence struct {
	text    string
	tokens  int
	section string
}

// Chunk splits text according to opt. Chunk indices are dense from 0; every
// sentence lands in at least one chunk and overlap regions in exactly two.
func (c *Chunker) Chunk(text string, opt Options) ([]Chunk, error) {
	if opt.TargetTokens <= 0 {
		opt = DefaultOptions
	}
	sents, err := c.segment(text, opt.MaxTokens)
	if err != nil {
		return nil, err
	}
	if len(sents) == 0 {
		return nil, nil
	}

	var (
		chunks  []Chunk
		cur     []sentence
		curTok  int
		section string
	)
	emit := func() {
		if len(cur) == 0 {
			return
		}
		texts := make([]string, len(cur))
		sec := cur[0].section
		for i, s := range cur {
			texts[i] = s.text
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Text:    strings.TrimSpace(strings.Join(texts, " ")),
			Tokens:  curTok,
			Section: sec,
		})
		// Seed the next chunk with a sentence-aligned tail of at least
		// OverlapTokens.
		var tail []sentence
		tailTok := 0
		for i := len(cur) - 1; i >= 0 && tailTok < opt.OverlapTokens; i-- {
			tail = append([]sentence{cur[i]}, tail...)
			tailTok += cur[i].tokens
		}
		if tailTok >= curTok {
			// Overlap would replay the whole chunk; start fresh instead.
			tail, tailTok = nil, 0
		}
		cur, curTok = tail, tailTok
	}

	for _, s := range sents {
		if s.section != "" {
			section = s.section
		} else {
			// every sentence carries the section it sits in, so a chunk's
			// section is the one its first sentence belongs to
			s.section = section
		}
		if curTok > 0 && curTok+s.tokens > opt.MaxTokens {
			emit()
		}
		cur = append(cur, s)
		curTok += s.tokens
		if curTok >= opt.TargetTokens {
			emit()
		}
	}
	if curTok > 0 {
		// Only flush a pure-overlap remainder if it never got new content;
		// emit() leaves cur non-empty by design.
		last := len(chunks)
		if last == 0 || !isOverlapOnly(chunks[last-1].Text, cur) {
			emit()
		}
	}
	return chunks, nil
}

// isOverlapOnly reports whether the pending sentences are nothing but the
// overlap tail already contained in the previous chunk.
func isOverlapOnly(prev string, cur []sentence) bool {
	for _, s := range cur {
		if !strings.Contains(prev, strings.TrimSpace(s.text)) {
			return false
		}
	}
	return true
}

// segment converts text into sentences. Lines that carry structure (tabs,
// page markers, sheet banners) become sentences of their own; consecutive
// prose lines are joined and run through the Punkt segmenter. Sentences
// larger than maxTokens are split on token boundaries.
func (c *Chunker) segment(text string, maxTokens int) ([]sentence, error) {
	var out []sentence
	var prose []string

	flushProse := func() error {
		if len(prose) == 0 {
			return nil
		}
		block := strings.Join(prose, " ")
		prose = prose[:0]
		for _, s := range c.seg.Tokenize(block) {
			if err := c.appendSentence(&out, strings.TrimSpace(s.Text), "", maxTokens); err != nil {
				return err
			}
		}
		return nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			if err := flushProse(); err != nil {
				return nil, err
			}
		case pageMarkerRe.MatchString(trimmed):
			if err := flushProse(); err != nil {
				return nil, err
			}
			sec := "page:" + pageMarkerRe.FindStringSubmatch(trimmed)[1]
			if err := c.appendSentence(&out, trimmed, sec, maxTokens); err != nil {
				return nil, err
			}
		case sheetRe.MatchString(trimmed):
			if err := flushProse(); err != nil {
				return nil, err
			}
			sec := "sheet:" + sheetRe.FindStringSubmatch(trimmed)[1]
			if err := c.appendSentence(&out, trimmed, sec, maxTokens); err != nil {
				return nil, err
			}
		case strings.Contains(line, "\t"):
			if err := flushProse(); err != nil {
				return nil, err
			}
			if err := c.appendSentence(&out, trimmed, "", maxTokens); err != nil {
				return nil, err
			}
		default:
			prose = append(prose, trimmed)
		}
	}
	if err := flushProse(); err != nil {
		return nil, err
	}
	return out, nil
}

// appendSentence measures s and appends it, splitting on token boundaries
// when a single sentence exceeds maxTokens.
func (c *Chunker) appendSentence(out *[]sentence, s, section string, maxTokens int) error {
	if s == "" {
		return nil
	}
	n, err := c.count(s)
	if err != nil {
		return err
	}
	for maxTokens > 0 && n > maxTokens {
		head, err := c.slice(s, maxTokens)
		if err != nil {
			return err
		}
		if head == "" || len(head) >= len(s) {
			break
		}
		hn, err := c.count(head)
		if err != nil {
			return err
		}
		*out = append(*out, sentence{text: head, tokens: hn, section: section})
		section = ""
		s = s[len(head):]
		if n, err = c.count(s); err != nil {
			return err
		}
	}
	*out = append(*out, sentence{text: s, tokens: n, section: section})
	return nil
}
