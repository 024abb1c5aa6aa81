package csvutil

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const sampleBytes = 16 << 10

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// Comma is the field delimiter. If 0, it is detected from the leading
	// records (',' ';' or tab).
	Comma rune

	// MinFields is the field count a detected delimiter should produce.
	// Defaults to 2.
	MinFields int

	// SkipHeader drops the first record.
	SkipHeader bool

	// SkipInvalid controls whether to skip invalid records or return an error.
	SkipInvalid bool
}

// ProcessCSV reads CSV data and parses each record into type T.
// The parser receives the 1-based line number of the record and may return
// keep=false to drop a record without error. Records may have varying
// field counts.
func ProcessCSV[T any](r io.Reader, parser func(line int, record []string) (T, bool, error), opts ProcessorOptions) ([]T, error) {
	br := bufio.NewReaderSize(r, sampleBytes)

	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	comma := opts.Comma
	if comma == 0 {
		sample, err := br.Peek(sampleBytes)
		if err == nil {
			// More input follows; drop the partial last line.
			if i := bytes.LastIndexByte(sample, '\n'); i >= 0 {
				sample = sample[:i+1]
			}
		}
		minFields := opts.MinFields
		if minFields <= 0 {
			minFields = 2
		}
		comma = DetectDelimiter(sample, minFields)
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if opts.SkipHeader {
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
	}

	var items []T

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Error reading record", "error", err)
				continue
			}
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		line, _ := reader.FieldPos(0)
		item, keep, err := parser(line, record)
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}
		if keep {
			items = append(items, item)
		}
	}

	return items, nil
}

// DetectDelimiter picks the delimiter among ',', ';' and tab that splits the
// leading records of sample into a consistent number of fields, at least
// minFields. Blank lines are ignored. Ties go to the delimiter that leaves
// fewer other candidate characters inside fields, then to the narrower
// split. Spreadsheet exports in comma-decimal locales use ';'.
func DetectDelimiter(sample []byte, minFields int) rune {
	best := ','
	var bestScore delimiterScore
	for i, candidate := range delimiterCandidates {
		score := scoreDelimiter(sample, candidate, minFields)
		if i == 0 || score.beats(bestScore) {
			best, bestScore = candidate, score
		}
	}
	return best
}

const sampleRecords = 20

var delimiterCandidates = []rune{',', ';', '\t'}

type delimiterScore struct {
	consistent int // records whose width equals the modal width, if wide enough
	noise      int // fields containing another candidate delimiter
	width      int // modal field count
}

func (s delimiterScore) beats(o delimiterScore) bool {
	if s.consistent != o.consistent {
		return s.consistent > o.consistent
	}
	if s.noise != o.noise {
		return s.noise < o.noise
	}
	if s.consistent > 0 {
		return s.width < o.width
	}
	return s.width > o.width
}

func scoreDelimiter(sample []byte, comma rune, minFields int) delimiterScore {
	reader := csv.NewReader(bytes.NewReader(sample))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	widths := make(map[int]int)
	var score delimiterScore
	for n := 0; n < sampleRecords; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		widths[len(record)]++
		for _, field := range record {
			for _, other := range delimiterCandidates {
				if other != comma && strings.ContainsRune(field, other) {
					score.noise++
					break
				}
			}
		}
	}

	modalCount := 0
	for width, count := range widths {
		if count > modalCount || (count == modalCount && width > score.width) {
			score.width, modalCount = width, count
		}
	}
	if score.width >= minFields {
		score.consistent = modalCount
	}
	return score
}
