package loader

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLoadPlainText(t *testing.T) {
	ctx := context.Background()
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello\r\nworld\rlast")...)

	res, err := Load(ctx, data, "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\nlast", res.Text)
	assert.Equal(t, "text/plain", res.MIME)
	assert.Zero(t, res.PageCount)
	assert.Zero(t, res.RowCount)
}

func TestLoadTextReplacesInvalidBytes(t *testing.T) {
	res, err := Load(context.Background(), []byte{'o', 'k', 0xFF, 0xFE, '!'}, "x.txt", "text/plain")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "ok")
	assert.Contains(t, res.Text, "�")
	assert.Contains(t, res.Text, "!")
}

func TestLoadMarkdownByExtension(t *testing.T) {
	res, err := Load(context.Background(), []byte("# Title\n\nbody"), "readme.md", "")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody", res.Text)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(context.Background(), []byte("binary"), "image.png", "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(context.Background(), []byte("data"), "noextension", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadCSV(t *testing.T) {
	csv := "name,age,city\nalice,30,berlin\nbob,25,paris\n"
	res, err := Load(context.Background(), []byte(csv), "people.csv", "text/csv")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)

	lines := strings.Split(strings.TrimRight(res.Text, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name\tage\tcity", lines[0])
	assert.Equal(t, "alice\t30\tberlin", lines[1])
}

func TestLoadCSVWideCellsUseColumnPairs(t *testing.T) {
	csv := "id,description\n1,\"A rather long free-text description that exceeds the narrow threshold\"\n"
	res, err := Load(context.Background(), []byte(csv), "items.csv", "text/csv")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "description: A rather long free-text description")
	assert.Contains(t, res.Text, "id: 1")
}

func TestLoadTSV(t *testing.T) {
	tsv := "a\tb\n1\t2\n"
	res, err := Load(context.Background(), []byte(tsv), "data.tsv", "text/tab-separated-values")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.Contains(t, res.Text, "1\t2")
}

func TestLoadCSVSniffsDelimiter(t *testing.T) {
	// claims csv, actually tab-separated
	tsv := "a\tb\tc\n1\t2\t3\n"
	res, err := Load(context.Background(), []byte(tsv), "data.csv", "text/csv")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.Equal(t, "a\tb\tc", strings.Split(res.Text, "\n")[0])
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "name"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "score"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "alice"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 10))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Load(context.Background(), buf.Bytes(), "scores.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "# Sheet: "+sheet)
	assert.Contains(t, res.Text, "name\tscore")
	assert.Contains(t, res.Text, "alice\t10")
	assert.Equal(t, 1, res.RowCount)
}

func TestLoadPDFRejectsGarbage(t *testing.T) {
	_, err := Load(context.Background(), []byte("definitely not a pdf"), "doc.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrDecodeError)
}

func TestLoadDOCXRejectsGarbage(t *testing.T) {
	_, err := Load(context.Background(), []byte("not a zip archive"), "doc.docx", "")
	assert.ErrorIs(t, err, ErrDecodeError)
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, []byte("x"), "x.txt", "text/plain")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWordMLToText(t *testing.T) {
	content := `<w:document xmlns:w="ns"><w:body>` +
		`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> paragraph.</w:t></w:r></w:p>` +
		`<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>h1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>h2</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>` +
		`<w:p><w:r><w:t>After the table.</w:t></w:r></w:p>` +
		`</w:body></w:document>`

	got, err := wordMLToText(content)
	require.NoError(t, err)
	assert.Contains(t, got, "First paragraph.\n")
	assert.Contains(t, got, "Second paragraph.\n")
	assert.Contains(t, got, "h1\th2\n")
	assert.Contains(t, got, "a\tb\n")
	assert.Contains(t, got, "After the table.")
	// table is followed by a blank line
	assert.Contains(t, got, "a\tb\n\n")
}
