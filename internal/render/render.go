// Package render produces the cover grid and error pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

// Columns is the number of covers per grid row.
const Columns = 4

//go:embed templates/*.html
var templateFS embed.FS

var (
	gridTemplate  = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/grid.html"))
	errorTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/error.html"))
)

// Tile is one clickable cover.
type Tile struct {
	Link string
	// Src is trusted: it is either an http(s) URL or a data: URI built
	// from a local image.
	Src template.URL
	Alt string
}

// NewTile builds a Tile. src must be an http(s) URL or a data:image URI.
func NewTile(link, src, alt string) Tile {
	return Tile{Link: link, Src: safeImageSrc(src), Alt: alt}
}

func safeImageSrc(src string) template.URL {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:image/") {
		return template.URL(src)
	}
	return template.URL("#")
}

// Page is the data for the grid page.
type Page struct {
	Title  string
	Tiles  []Tile
	Source string
}

type gridData struct {
	Title  string
	Rows   [][]Tile
	Source string
}

// ErrorPage is the data for a page that shows problems instead of the grid.
type ErrorPage struct {
	Title    string
	Headline string
	Message  string
	Issues   []string
	Source   string
	// Upload shows the spreadsheet upload form posting to UploadAction.
	Upload       bool
	UploadAction string
}

// Chunk splits tiles into rows of n.
func Chunk(tiles []Tile, n int) [][]Tile {
	if n <= 0 {
		n = Columns
	}
	var rows [][]Tile
	for start := 0; start < len(tiles); start += n {
		end := min(start+n, len(tiles))
		rows = append(rows, tiles[start:end])
	}
	return rows
}

// Grid writes the cover grid page.
func Grid(w io.Writer, p Page) error {
	data := gridData{Title: p.Title, Rows: Chunk(p.Tiles, Columns), Source: p.Source}
	return execute(w, gridTemplate, data)
}

// Error writes an error page.
func Error(w io.Writer, p ErrorPage) error {
	if p.Upload && p.UploadAction == "" {
		p.UploadAction = "/upload"
	}
	return execute(w, errorTemplate, p)
}

// GridBytes renders the grid page into memory.
func GridBytes(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := Grid(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func execute(w io.Writer, tmpl *template.Template, data any) error {
	// A failed execution writes nothing to w.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
