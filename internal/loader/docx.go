package loader

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// loadDOCX concatenates body paragraphs in document order. Tables are
// emitted as tab-separated rows followed by a blank line.
func loadDOCX(data []byte) (Result, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("opening docx: %v: %w", err, ErrDecodeError)
	}
	defer doc.Close()

	text, err := wordMLToText(doc.Editable().GetContent())
	if err != nil {
		return Result{}, fmt.Errorf("parsing docx body: %v: %w", err, ErrDecodeError)
	}
	return Result{Text: text}, nil
}

// wordMLToText walks the WordprocessingML body, flattening paragraphs and
// tables. Paragraphs inside a table cell are joined with spaces; cells join
// with tabs; each table is followed by a blank line.
func wordMLToText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		out        strings.Builder
		para       strings.Builder
		cell       strings.Builder
		row        []string
		tableDepth int
		inText     bool
	)

	flushPara := func() {
		s := strings.TrimSpace(para.String())
		para.Reset()
		if s == "" {
			return
		}
		out.WriteString(strings.ToValidUTF8(s, "�"))
		out.WriteString("\n")
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				flushPara()
				tableDepth++
			case "tr":
				row = row[:0]
			case "tc":
				cell.Reset()
			case "t":
				inText = true
			case "tab":
				target(&para, &cell, tableDepth).WriteString("\t")
			case "br", "cr":
				target(&para, &cell, tableDepth).WriteString("\n")
			}
		case xml.CharData:
			if inText {
				target(&para, &cell, tableDepth).Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if tableDepth > 0 {
					// cell paragraphs collapse into one line
					cell.WriteString(" ")
				} else {
					flushPara()
				}
			case "tc":
				row = append(row, strings.Join(strings.Fields(cell.String()), " "))
			case "tr":
				if tableDepth > 0 {
					out.WriteString(strings.Join(row, "\t"))
					out.WriteString("\n")
				}
			case "tbl":
				tableDepth--
				out.WriteString("\n")
			}
		}
	}
	flushPara()
	return out.String(), nil
}

func target(para, cell *strings.Builder, tableDepth int) *strings.Builder {
	if tableDepth > 0 {
		return cell
	}
	return para
}
