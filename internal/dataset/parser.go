package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ml_dashboard/pkg"

	apperrors "ml_dashboard/internal/errors"
)

const utf8BOM = "\ufeff"

// Table is a decoded dataset. Rows holds at most the preview limit;
// TotalRows counts every data row of the source.
type Table struct {
	Columns   []string
	Rows      []pkg.Row
	TotalRows int
}

// Upload is a dataset ready to send: the CSV bytes the backend receives
// and the decoded preview.
type Upload struct {
	Name  string
	CSV   []byte
	Table *Table
}

// Load decodes a CSV or XLSX file. XLSX input is converted to CSV and
// renamed so the backend always receives CSV.
func Load(name string, data []byte, previewRows int) (*Upload, error) {
	csvData := data
	csvName := name
	if IsExcel(name) {
		converted, err := ExcelToCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		csvData = converted
		csvName = strings.TrimSuffix(name, filepath.Ext(name)) + ".csv"
	}

	table, err := ParseCSV(bytes.NewReader(csvData), previewRows)
	if err != nil {
		return nil, err
	}
	return &Upload{Name: csvName, CSV: csvData, Table: table}, nil
}

// IsExcel reports whether name looks like an Excel workbook
func IsExcel(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ParseCSV reads a header row and the data rows that follow. Short records
// leave their trailing cells absent; extra fields are dropped. previewRows
// <= 0 keeps every row.
func ParseCSV(r io.Reader, previewRows int) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Parse("Failed to parse CSV: file is empty", err)
		}
		return nil, apperrors.Parse(fmt.Sprintf("Failed to parse CSV: %v", err), err)
	}
	columns := normalizeHeader(header)

	table := &Table{Columns: columns, Rows: []pkg.Row{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Parse(fmt.Sprintf("Failed to parse CSV: %v", err), err)
		}
		if isBlank(record) {
			continue
		}

		table.TotalRows++
		if previewRows > 0 && len(table.Rows) >= previewRows {
			continue
		}

		n := min(len(record), len(columns))
		table.Rows = append(table.Rows, pkg.NewRow(columns[:n], record[:n]))
	}
	return table, nil
}

// normalizeHeader strips a UTF-8 BOM and renames duplicates to name_1, name_2...
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := h
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[h]++
			name = fmt.Sprintf("%s_%d", h, seen[h])
		}
		seen[name] = 0
		columns[i] = name
	}
	return columns
}

// isBlank matches a line holding a single empty field
func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
