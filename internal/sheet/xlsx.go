package sheet

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/lepinkainen/ebookgrid/internal/cover"
)

// linkColumn is the 1-based column of the target link.
const linkColumn = 2

// ParseXLSX reads the first worksheet of a workbook. There is no header row.
// When the link cell carries a hyperlink whose display text is not itself a
// URL, the hyperlink target is used.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no worksheets")
	}
	sheetName := sheets[0]

	raw, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", sheetName, err)
	}

	var rows []Row
	for i, cells := range raw {
		row := FromCells(i+1, cells)
		if row.Blank() {
			continue
		}

		if !isURL(row.Link) {
			cellName, _ := excelize.CoordinatesToCellName(linkColumn, i+1)
			if ok, target, err := f.GetCellHyperLink(sheetName, cellName); err == nil && ok && isURL(target) {
				slog.Debug("Using hyperlink target for link cell", "cell", cellName, "text", row.Link, "target", target)
				row.Link = target
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func isURL(s string) bool {
	return cover.Classify(s, "").Kind == cover.URL
}
