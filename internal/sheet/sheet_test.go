package sheet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lepinkainen/ebookgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFromCells(t *testing.T) {
	testCases := []struct {
		name     string
		cells    []string
		expected Row
	}{
		{
			name:     "full row",
			cells:    []string{"1", " https://x/doc.pdf ", "img/a.png"},
			expected: Row{Index: 4, Ordinal: "1", Link: "https://x/doc.pdf", Cover: "img/a.png"},
		},
		{
			name:     "padded",
			cells:    []string{"1", "https://x/doc.pdf"},
			expected: Row{Index: 4, Ordinal: "1", Link: "https://x/doc.pdf"},
		},
		{
			name:     "extra columns ignored",
			cells:    []string{"1", "a", "b", "notes"},
			expected: Row{Index: 4, Ordinal: "1", Link: "a", Cover: "b"},
		},
		{
			name:     "nil",
			cells:    nil,
			expected: Row{Index: 4},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromCells(4, tc.cells))
		})
	}
}

func TestRowBlank(t *testing.T) {
	assert.True(t, Row{}.Blank())
	assert.True(t, Row{Ordinal: "nan", Link: "NaN", Cover: "None"}.Blank())
	assert.False(t, Row{Cover: "img/a.png"}.Blank())
	assert.False(t, Row{Ordinal: "3"}.Blank())
}

func TestSniff(t *testing.T) {
	xlsx := testutil.XLSXBytes(t, [][]string{{"1", "a", "b"}})

	testCases := []struct {
		name     string
		data     []byte
		file     string
		expected Format
		err      bool
	}{
		{name: "xlsx by content", data: xlsx, file: "download", expected: FormatXLSX},
		{name: "xlsx with wrong extension", data: xlsx, file: "listagem.csv", expected: FormatXLSX},
		{name: "csv", data: []byte("1,a,b\n2,c,d\n"), file: "listagem.csv", expected: FormatCSV},
		{name: "csv without name", data: []byte("1;a;b\n"), expected: FormatCSV},
		{name: "text named xlsx", data: []byte("1,a,b\n"), file: "listagem.xlsx", err: true},
		{name: "pdf", data: []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), file: "x.pdf", err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			format, err := Sniff(tc.data, tc.file)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, format)
		})
	}
}

func TestSniff_HTML(t *testing.T) {
	page := []byte("<!DOCTYPE html><html><head><title>listagem.xlsx</title></head><body></body></html>")
	_, err := Sniff(page, "https://github.com/o/r/blob/main/listagem.xlsx")
	assert.True(t, errors.Is(err, ErrHTMLDocument))
}

func TestSniff_Empty(t *testing.T) {
	_, err := Sniff([]byte("  \n"), "listagem.csv")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParse_XLSX(t *testing.T) {
	data := testutil.XLSXBytes(t, [][]string{
		{"1", "https://x/doc.pdf", "https://x/img/cover1.png"},
		{"2", "https://x/doc2.pdf", `C:\img\cover2.png`},
		{"", "", ""},
		{"4", "", "img/cover4.png"},
		{"5", "https://x/doc5.pdf"},
	})

	rows, err := Parse(data, "listagem.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, Row{Index: 1, Ordinal: "1", Link: "https://x/doc.pdf", Cover: "https://x/img/cover1.png"}, rows[0])
	assert.Equal(t, `C:\img\cover2.png`, rows[1].Cover)
	assert.Equal(t, 4, rows[2].Index, "blank row keeps consuming its index")
	assert.Equal(t, "", rows[2].Link)
	assert.Equal(t, Row{Index: 5, Ordinal: "5", Link: "https://x/doc5.pdf"}, rows[3])
}

func TestParseXLSX_NumericCellsAsText(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", 7))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "https://x/doc.pdf"))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "img/a.png"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].Ordinal)
}

func TestParseXLSX_HyperlinkTarget(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Baixar PDF"))
	require.NoError(t, f.SetCellHyperLink("Sheet1", "B1", "https://x/doc.pdf", "External"))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "img/a.png"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://x/doc.pdf", rows[0].Link)
}

func TestParseXLSX_Corrupt(t *testing.T) {
	_, err := ParseXLSX(bytes.NewReader([]byte("PK\x03\x04 not really a zip")))
	assert.Error(t, err)
}

func TestParse_CSV(t *testing.T) {
	data := []byte("1,https://x/doc.pdf,https://x/img/cover1.png\n" +
		"2,nan,img/cover2.png\n" +
		"\n" +
		"nan,nan,nan\n" +
		"5;broken\n")

	rows, err := Parse(data, "listagem.csv")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "nan", rows[1].Link, "placeholders are kept verbatim for the validator")
	assert.Equal(t, 5, rows[2].Index, "index follows the line number")
	assert.Equal(t, "5;broken", rows[2].Ordinal)
}

func TestParse_CSVSemicolonAfterBlankLine(t *testing.T) {
	rows, err := Parse([]byte("\n1;https://x/doc.pdf;https://x/img/c.png\n"), "listagem.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 2, rows[0].Index)
	assert.Equal(t, "1", rows[0].Ordinal)
	assert.Equal(t, "https://x/doc.pdf", rows[0].Link)
	assert.Equal(t, "https://x/img/c.png", rows[0].Cover)
}

func TestParse_CSVSemicolonWithCommasInLink(t *testing.T) {
	data := []byte("1;https://x/a,b,c.pdf;https://x/img/a.png\n" +
		"2;https://x/d.pdf;https://x/img/d.png\n")

	rows, err := Parse(data, "listagem.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "https://x/a,b,c.pdf", rows[0].Link)
	assert.Equal(t, "https://x/img/a.png", rows[0].Cover)
	assert.Equal(t, "https://x/d.pdf", rows[1].Link)
}
