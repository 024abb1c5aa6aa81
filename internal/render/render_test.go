package render

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, data []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	return doc
}

func TestGrid_SingleTile(t *testing.T) {
	out, err := GridBytes(Page{
		Title:  "E-books",
		Tiles:  []Tile{NewTile("https://x/doc.pdf", "https://x/img/cover1.png", "1")},
		Source: "https://x/listagem.xlsx",
	})
	require.NoError(t, err)
	doc := parseHTML(t, out)

	links := doc.Find("main a")
	require.Equal(t, 1, links.Length())

	href, _ := links.Attr("href")
	target, _ := links.Attr("target")
	rel, _ := links.Attr("rel")
	assert.Equal(t, "https://x/doc.pdf", href)
	assert.Equal(t, "_blank", target)
	assert.Equal(t, "noopener", rel)

	img := links.Find("img")
	src, _ := img.Attr("src")
	width, _ := img.Attr("width")
	assert.Equal(t, "https://x/img/cover1.png", src)
	assert.Equal(t, "180", width)

	assert.Equal(t, "Spreadsheet source: https://x/listagem.xlsx", strings.TrimSpace(doc.Find("footer").Text()))
	assert.Equal(t, "E-books", doc.Find("title").Text())
}

func TestGrid_FourPerRow(t *testing.T) {
	var tiles []Tile
	for i := 1; i <= 9; i++ {
		tiles = append(tiles, NewTile(fmt.Sprintf("https://x/%d.pdf", i), fmt.Sprintf("https://x/%d.png", i), ""))
	}

	out, err := GridBytes(Page{Title: "t", Tiles: tiles, Source: "s"})
	require.NoError(t, err)
	doc := parseHTML(t, out)

	rows := doc.Find(".grid-row")
	require.Equal(t, 3, rows.Length())
	assert.Equal(t, 4, rows.Eq(0).Find("a").Length())
	assert.Equal(t, 4, rows.Eq(1).Find("a").Length())
	assert.Equal(t, 1, rows.Eq(2).Find("a").Length())

	first, _ := rows.Eq(0).Find("a").First().Attr("href")
	last, _ := rows.Eq(2).Find("a").Last().Attr("href")
	assert.Equal(t, "https://x/1.pdf", first)
	assert.Equal(t, "https://x/9.pdf", last)
}

func TestGrid_DataURIKept(t *testing.T) {
	src := "data:image/png;base64,iVBORw0KGgo="
	out, err := GridBytes(Page{Tiles: []Tile{NewTile("https://x/a.pdf", src, "")}})
	require.NoError(t, err)

	got, _ := parseHTML(t, out).Find("img").Attr("src")
	assert.Equal(t, src, got)
}

func TestGrid_UnsafeValuesNeutralized(t *testing.T) {
	out, err := GridBytes(Page{Tiles: []Tile{NewTile("javascript:alert(1)", "javascript:alert(2)", `"><script>`)}})
	require.NoError(t, err)

	assert.NotContains(t, string(out), "javascript:")
	assert.NotContains(t, string(out), "<script>")
}

func TestGrid_Empty(t *testing.T) {
	out, err := GridBytes(Page{Title: "t", Source: "s"})
	require.NoError(t, err)
	doc := parseHTML(t, out)
	assert.Equal(t, 0, doc.Find(".grid-row").Length())
	assert.Contains(t, doc.Find("footer").Text(), "Spreadsheet source: s")
}

func TestError_Issues(t *testing.T) {
	var buf bytes.Buffer
	err := Error(&buf, ErrorPage{
		Title:    "E-books",
		Headline: "The spreadsheet has invalid rows",
		Issues:   []string{"row 2: empty link", "row 5: missing cover 'img/x'"},
		Source:   "listagem.xlsx",
	})
	require.NoError(t, err)
	doc := parseHTML(t, buf.Bytes())

	var items []string
	doc.Find(".issues li").Each(func(_ int, s *goquery.Selection) {
		items = append(items, s.Text())
	})
	assert.Equal(t, []string{"row 2: empty link", "row 5: missing cover 'img/x'"}, items)
	assert.Equal(t, "Spreadsheet source: listagem.xlsx", doc.Find(".caption").Text())
	assert.Equal(t, 0, doc.Find("main a").Length())
	assert.Equal(t, 0, doc.Find("form").Length())
}

func TestError_UploadForm(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Error(&buf, ErrorPage{Headline: "Could not load", Message: "boom", Upload: true}))
	doc := parseHTML(t, buf.Bytes())

	form := doc.Find("form.upload")
	require.Equal(t, 1, form.Length())
	action, _ := form.Attr("action")
	enctype, _ := form.Attr("enctype")
	assert.Equal(t, "/upload", action)
	assert.Equal(t, "multipart/form-data", enctype)
	assert.Equal(t, 1, form.Find(`input[type=file][name=sheet]`).Length())
	assert.Equal(t, "boom", doc.Find(".message").Text())
}

func TestChunk(t *testing.T) {
	tiles := make([]Tile, 5)
	assert.Len(t, Chunk(tiles, 4), 2)
	assert.Len(t, Chunk(tiles, 0), 2)
	assert.Nil(t, Chunk(nil, 4))
}
