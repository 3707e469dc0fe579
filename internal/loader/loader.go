// Package loader decodes uploaded files into canonical UTF-8 text with
// light structural markers. The canonical text is the sole input to token
// counting, chunking, and embedding downstream.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat reports a file whose MIME and extension are both
	// unknown to the loader.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrDecodeError reports bytes that are malformed for their claimed
	// format.
	ErrDecodeError = errors.New("decode error")
)

// Format is the canonical family a file resolves to.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Result is the loader's output for one file.
type Result struct {
	// Text is the canonical UTF-8 representation, lines ending in \n.
	Text string
	// MIME is the resolved canonical MIME type.
	MIME string
	// PageCount is set for PDFs, zero otherwise.
	PageCount int
	// RowCount is set for tabular formats, zero otherwise.
	RowCount int
}

var mimeByFormat = map[Format]string{
	FormatText: "text/plain",
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatCSV:  "text/csv",
	FormatTSV:  "text/tab-separated-values",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Load decodes data into canonical text. The MIME hint wins when recognized;
// otherwise the filename extension decides. The loader assumes the caller
// has already enforced the size ceiling.
func Load(ctx context.Context, data []byte, filename, mimeHint string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	format, err := resolveFormat(filename, mimeHint)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch format {
	case FormatText:
		res, err = loadText(data)
	case FormatPDF:
		res, err = loadPDF(data)
	case FormatDOCX:
		res, err = loadDOCX(data)
	case FormatCSV:
		res, err = loadTabular(data, ',')
	case FormatTSV:
		res, err = loadTabular(data, '\t')
	case FormatXLSX:
		res, err = loadXLSX(data)
	}
	if err != nil {
		return Result{}, err
	}
	res.MIME = mimeByFormat[format]
	return res, nil
}

func resolveFormat(filename, mimeHint string) (Format, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeHint))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "text/plain", "text/markdown":
		return FormatText, nil
	case "application/pdf":
		return FormatPDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, nil
	case "text/csv", "application/csv":
		return FormatCSV, nil
	case "text/tab-separated-values":
		return FormatTSV, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/vnd.ms-excel":
		return FormatXLSX, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("mime %q, file %q: %w", mimeHint, filename, ErrUnsupportedFormat)
}
