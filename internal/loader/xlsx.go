package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// loadXLSX serializes every sheet under a banner line, rows rendered the
// same way as CSV data so downstream chunking treats them uniformly.
func loadXLSX(data []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("opening xlsx: %v: %w", err, ErrDecodeError)
	}
	defer f.Close()

	var sb strings.Builder
	total := 0
	for si, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return Result{}, fmt.Errorf("reading sheet %q: %v: %w", name, err, ErrDecodeError)
		}
		if si > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "# Sheet: %s\n", name)
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		sb.WriteString(strings.Join(header, "\t"))
		sb.WriteString("\n")
		for _, rec := range rows[1:] {
			sb.WriteString(renderRow(header, rec))
			sb.WriteString("\n")
		}
		total += len(rows) - 1
	}
	return Result{Text: sb.String(), RowCount: total}, nil
}
