package dataset

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExcelToCSV(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"age", "city", "churn"},
		{34, "Oslo", "yes"},
		{51, "Lima"},
	})

	out, err := ExcelToCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "age,city,churn\n34,Oslo,yes\n51,Lima,\n", string(out))
}

func TestLoadExcelRenamesToCSV(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"id", "score"},
		{"a", 1.5},
	})

	up, err := Load("scores.XLSX", data, 0)
	require.NoError(t, err)

	assert.Equal(t, "scores.csv", up.Name)
	require.Len(t, up.Table.Rows, 1)
	v, _ := up.Table.Rows[0].Get("score")
	assert.Equal(t, "1.5", v)
}

func TestExcelToCSVRejectsGarbage(t *testing.T) {
	_, err := ExcelToCSV(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}
