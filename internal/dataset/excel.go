package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "ml_dashboard/internal/errors"
)

// ExcelToCSV converts the first sheet of a workbook to CSV bytes. Rows
// shorter than the header are padded with empty cells.
func ExcelToCSV(r io.Reader) ([]byte, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Parse("Failed to open Excel file", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.Parse("Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.Parse(fmt.Sprintf("Failed to read sheet %q", sheets[0]), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.Parse(fmt.Sprintf("Sheet %q is empty", sheets[0]), nil)
	}

	width := len(rows[0])
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		for len(row) < width {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.Parse("Failed to convert Excel file", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Parse("Failed to convert Excel file", err)
	}
	return buf.Bytes(), nil
}
