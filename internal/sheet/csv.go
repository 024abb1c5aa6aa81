package sheet

import (
	"fmt"
	"io"

	"github.com/lepinkainen/ebookgrid/internal/csvutil"
)

// ParseCSV reads delimited text (',' ';' or tab). There is no header row.
func ParseCSV(r io.Reader) ([]Row, error) {
	rows, err := csvutil.ProcessCSV(r, func(line int, record []string) (Row, bool, error) {
		row := FromCells(line, record)
		return row, !row.Blank(), nil
	}, csvutil.ProcessorOptions{MinFields: 3})
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return rows, nil
}
