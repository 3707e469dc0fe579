package loader

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// wideCellThreshold decides between tab-joined rows and column: value
// rendering; rows with any cell longer than this read better labelled.
const wideCellThreshold = 24

// loadTabular parses CSV or TSV with the delimiter implied by the resolved
// format, falling back to sniffing the first kilobyte when the content
// disagrees with the hint.
func loadTabular(data []byte, delim rune) (Result, error) {
	text := strings.ToValidUTF8(string(data), "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if d, ok := sniffDelimiter(text); ok && d != delim {
		delim = d
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parsing delimited text: %v: %w", err, ErrDecodeError)
	}
	if len(records) == 0 {
		return Result{Text: ""}, nil
	}

	header := records[0]
	var sb strings.Builder
	sb.WriteString(strings.Join(header, "\t"))
	sb.WriteString("\n")
	for _, rec := range records[1:] {
		sb.WriteString(renderRow(header, rec))
		sb.WriteString("\n")
	}
	return Result{Text: sb.String(), RowCount: len(records) - 1}, nil
}

// renderRow emits a data row either tab-joined (narrow cells) or as
// column: value pairs (any wide cell), so long free-text columns stay
// readable and self-describing.
func renderRow(header, rec []string) string {
	wide := false
	for _, cell := range rec {
		if len(cell) > wideCellThreshold {
			wide = true
			break
		}
	}
	if !wide {
		return strings.Join(rec, "\t")
	}
	pairs := make([]string, 0, len(rec))
	for i, cell := range rec {
		name := fmt.Sprintf("col%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			name = strings.TrimSpace(header[i])
		}
		pairs = append(pairs, name+": "+strings.TrimSpace(cell))
	}
	return strings.Join(pairs, "\t")
}

// sniffDelimiter counts tabs and commas on the first line of the first
// kilobyte and picks the more frequent one, tab on a tie. Returns false when
// that line contains neither.
func sniffDelimiter(text string) (rune, bool) {
	sample := text
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	line, _, _ := strings.Cut(sample, "\n")
	tabs := strings.Count(line, "\t")
	commas := strings.Count(line, ",")
	switch {
	case tabs == 0 && commas == 0:
		return 0, false
	case tabs >= commas:
		return '\t', true
	default:
		return ',', true
	}
}
