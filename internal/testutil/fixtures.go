package testutil

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/xuri/excelize/v2"
)

// XLSXBytes builds an in-memory workbook whose first sheet holds rows,
// starting at A1 (no header row).
func XLSXBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("invalid cell coordinates: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("failed to set cell %s: %v", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteXLSX writes a workbook built by XLSXBytes into the test environment.
func (e *TestEnv) WriteXLSX(path string, rows [][]string) {
	e.t.Helper()
	e.WriteFile(path, XLSXBytes(e.t, rows))
}

// PNGBytes encodes a solid-colored PNG of the given size.
func PNGBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 200, G: 80, B: 40, A: 255})

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// WritePNG writes a solid-colored PNG into the test environment.
func (e *TestEnv) WritePNG(path string, width, height int) {
	e.t.Helper()
	e.WriteFile(path, PNGBytes(e.t, width, height))
}

// DecodeImage decodes an encoded image, failing the test on error.
func DecodeImage(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode image: %v", err)
	}
	return img
}
