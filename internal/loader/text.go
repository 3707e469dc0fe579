package loader

import (
	"bytes"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// loadText decodes plain text and Markdown: BOM stripped, invalid bytes
// replaced with U+FFFD, line endings normalized to \n.
func loadText(data []byte) (Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	s := strings.ToValidUTF8(string(data), "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return Result{Text: s}, nil
}
