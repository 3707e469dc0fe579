// Package tokenizer provides exact BPE token counting and token-bounded
// slicing against the cl100k_base vocabulary. The encoding is loaded once;
// Count and Slice are goroutine-safe because tiktoken-go's Encode does not
// mutate shared state.
package tokenizer

import (
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// EncodingName identifies the fixed vocabulary every token count in the
// system is measured against. Persisted document token counts are only
// comparable under this encoding.
const EncodingName = "cl100k_base"

var (
	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
)

func encoding() (*tiktoken.Tiktoken, error) {
	once.Do(func() {
		enc, initErr = tiktoken.GetEncoding(EncodingName)
		if initErr != nil {
			initErr = fmt.Errorf("initialising tiktoken encoding %q: %w", EncodingName, initErr)
		}
	})
	return enc, initErr
}

// Count returns the exact number of BPE tokens in text. Returns 0 for empty
// text.
func Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	e, err := encoding()
	if err != nil {
		return 0, err
	}
	return len(e.Encode(text, nil, nil)), nil
}

// Slice returns the longest prefix of text whose token count does not exceed
// maxTokens. The cut happens on a token boundary, never inside one.
func Slice(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 || text == "" {
		return "", nil
	}
	e, err := encoding()
	if err != nil {
		return "", err
	}
	ids := e.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text, nil
	}
	return e.Decode(ids[:maxTokens]), nil
}
