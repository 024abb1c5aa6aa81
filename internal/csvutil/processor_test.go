package csvutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Line   int
	Fields []string
}

func collect(line int, fields []string) (record, bool, error) {
	return record{Line: line, Fields: fields}, true, nil
}

func TestProcessCSV(t *testing.T) {
	input := "1,https://x/a.pdf,https://x/a.png\n2,https://x/b.pdf\n"

	items, err := ProcessCSV(strings.NewReader(input), collect, ProcessorOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, record{Line: 1, Fields: []string{"1", "https://x/a.pdf", "https://x/a.png"}}, items[0])
	assert.Equal(t, record{Line: 2, Fields: []string{"2", "https://x/b.pdf"}}, items[1], "short records are allowed")
}

func TestProcessCSV_SemicolonAndBOM(t *testing.T) {
	input := "\ufeff1;https://x/a.pdf;img/a.png\n2;https://x/b.pdf;img/b.png\n"

	items, err := ProcessCSV(strings.NewReader(input), collect, ProcessorOptions{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Fields[0], "BOM must be stripped")
	assert.Equal(t, "img/b.png", items[1].Fields[2])
}

func TestProcessCSV_SkipHeader(t *testing.T) {
	input := "n,link,cover\n1,a,b\n"

	items, err := ProcessCSV(strings.NewReader(input), collect, ProcessorOptions{SkipHeader: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Line)
}

func TestProcessCSV_ParserDropsAndErrors(t *testing.T) {
	input := "keep\ndrop\nfail\n"

	parser := func(line int, fields []string) (string, bool, error) {
		switch fields[0] {
		case "drop":
			return "", false, nil
		case "fail":
			return "", false, errors.New("bad record")
		}
		return fields[0], true, nil
	}

	_, err := ProcessCSV(strings.NewReader(input), parser, ProcessorOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	items, err := ProcessCSV(strings.NewReader(input), parser, ProcessorOptions{SkipInvalid: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, items)
}

func TestProcessCSV_LeadingBlankLineSemicolon(t *testing.T) {
	input := "\n1;https://x/doc.pdf;https://x/img/c.png\n"

	items, err := ProcessCSV(strings.NewReader(input), collect, ProcessorOptions{MinFields: 3})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, record{Line: 2, Fields: []string{"1", "https://x/doc.pdf", "https://x/img/c.png"}}, items[0])
}

func TestProcessCSV_SemicolonWithCommasInLink(t *testing.T) {
	input := "1;https://x/a,b,c.pdf;https://x/img/a.png\n2;https://x/d.pdf;https://x/img/d.png\n"

	items, err := ProcessCSV(strings.NewReader(input), collect, ProcessorOptions{MinFields: 3})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://x/a,b,c.pdf", items[0].Fields[1])
	assert.Equal(t, "https://x/img/d.png", items[1].Fields[2])
}

func TestDetectDelimiter(t *testing.T) {
	testCases := []struct {
		name     string
		sample   string
		expected rune
	}{
		{name: "comma", sample: "a,b,c\n", expected: ','},
		{name: "semicolon", sample: "a;b;c\n", expected: ';'},
		{name: "tab", sample: "a\tb\tc", expected: '\t'},
		{name: "leading blank lines", sample: "\n\n1;a;b\n2;c;d\n", expected: ';'},
		{name: "comma inside semicolon field", sample: "1;https://x/a,b,c.pdf;img/a.png\n", expected: ';'},
		{name: "commas in every link", sample: "1;x/a,b.pdf;img/a.png\n2;x/c,d.pdf;img/c.png\n", expected: ';'},
		{name: "semicolon inside comma field", sample: "1,https://x/a;b.pdf,img/a.png\n2,https://x/c.pdf,img/c.png\n", expected: ','},
		{name: "consistent width wins over first line", sample: "1;a,b,c,d;e\n2;f;g\n3;h;i\n", expected: ';'},
		{name: "quoted delimiter", sample: "1,\"a;b;c;d\",img\n", expected: ','},
		{name: "too narrow falls back to comma", sample: "a\nb\n", expected: ','},
		{name: "empty", sample: "", expected: ','},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectDelimiter([]byte(tc.sample), 3))
		})
	}
}
