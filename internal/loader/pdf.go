package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts text page by page, inserting a page marker before each
// page. Empty or unextractable pages still emit their marker so page
// numbering downstream stays aligned with the source.
func loadPDF(data []byte) (res Result, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v: %w", r, ErrDecodeError)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("opening pdf: %v: %w", err, ErrDecodeError)
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		fmt.Fprintf(&sb, "\n\n[Page %d]\n", i)
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// keep the marker, skip the page body
			continue
		}
		sb.WriteString(strings.TrimSpace(strings.ToValidUTF8(text, "�")))
	}
	return Result{Text: strings.TrimLeft(sb.String(), "\n") + "\n", PageCount: pages}, nil
}
