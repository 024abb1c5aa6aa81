// Package sheet extracts listing rows from an XLSX or CSV spreadsheet.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lepinkainen/ebookgrid/internal/cover"
)

// Columns is the number of meaningful columns: ordinal, link, cover.
const Columns = 3

// Row is one spreadsheet line. Index is its 1-based position in the sheet.
type Row struct {
	Index   int    `json:"index" yaml:"index"`
	Ordinal string `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
	Link    string `json:"link" yaml:"link"`
	Cover   string `json:"cover" yaml:"cover"`
}

// Blank reports whether the row carries no data at all.
func (r Row) Blank() bool {
	return cover.IsPlaceholder(r.Ordinal) && cover.IsPlaceholder(r.Link) && cover.IsPlaceholder(r.Cover)
}

// FromCells builds a Row from raw cells, padding missing columns with "".
func FromCells(index int, cells []string) Row {
	var padded [Columns]string
	for i := 0; i < Columns && i < len(cells); i++ {
		padded[i] = strings.TrimSpace(cells[i])
	}
	return Row{Index: index, Ordinal: padded[0], Link: padded[1], Cover: padded[2]}
}

// Format is a supported spreadsheet encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrHTMLDocument is returned when the payload is a web page instead of a
// spreadsheet, typically a hosting site's viewer page.
var ErrHTMLDocument = errors.New("payload is an HTML page, not a spreadsheet")

// ErrEmpty is returned for zero-length payloads.
var ErrEmpty = errors.New("spreadsheet is empty")

// Sniff decides how to parse data. Content wins over the name; the name's
// extension only breaks ties when content sniffing is inconclusive.
func Sniff(data []byte, name string) (Format, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmpty
	}

	mt := mimetype.Detect(data)
	switch {
	case isA(mt, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return FormatXLSX, nil
	case isA(mt, "text/html"):
		return "", ErrHTMLDocument
	case isA(mt, "application/vnd.ms-excel"), isA(mt, "application/x-ole-storage"):
		return "", fmt.Errorf("legacy .xls workbooks are not supported, save %s as .xlsx or .csv", displayName(name))
	case isA(mt, "application/zip"):
		// Some generators produce xlsx files mimetype only recognises as zip.
		return FormatXLSX, nil
	case isA(mt, "text/plain"):
		if ext := extOf(name); ext == ".xlsx" || ext == ".xlsm" {
			return "", fmt.Errorf("%s has an Excel extension but contains text", displayName(name))
		}
		return FormatCSV, nil
	}

	switch extOf(name) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported spreadsheet format %s in %s", mt.String(), displayName(name))
}

// Parse sniffs data and extracts its rows. Blank rows are dropped but keep
// consuming their index so reported row numbers match the sheet.
func Parse(data []byte, name string) ([]Row, error) {
	format, err := Sniff(data, name)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return ParseXLSX(bytes.NewReader(data))
	default:
		return ParseCSV(bytes.NewReader(data))
	}
}

func isA(mt *mimetype.MIME, mime string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

// extOf handles both file paths and URLs (query strings are dropped).
func extOf(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(path.Ext(name))
}

func displayName(name string) string {
	if name == "" {
		return "spreadsheet"
	}
	return name
}
