package xlsxparser_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spazos-ar/etl-ssn/internal/xlsxparser"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, axis, v))
		}
	}

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestRows(t *testing.T) {
	path := writeWorkbook(t, "Compra", [][]any{
		{" cronograma ", "TIPOESPECIE", "CANTESPECIES", "FECHAMOVIMIENTO"},
		{"2025-07", "TP", 1500.25, 45658},
		{nil, nil, nil, nil},
		{"2025-08", "ON", "1.500,25", nil},
	})

	wb, err := xlsxparser.Open(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Compra"}, wb.Sheets())

	rows, err := wb.Rows("Compra")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "2025-07", first.Cells["CRONOGRAMA"])
	assert.Equal(t, "TP", first.Cells["TIPOESPECIE"])
	assert.Equal(t, 1500.25, first.Cells["CANTESPECIES"])
	assert.Equal(t, 45658.0, first.Cells["FECHAMOVIMIENTO"])

	second := rows[1]
	assert.Equal(t, 4, second.Line)
	assert.Equal(t, "1.500,25", second.Cells["CANTESPECIES"])

	value, present := second.Cells["FECHAMOVIMIENTO"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestRows_HeaderOnly(t *testing.T) {
	path := writeWorkbook(t, "Venta", [][]any{{"CRONOGRAMA", "PRECIOVENTA"}})

	wb, err := xlsxparser.Open(path)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.Rows("Venta")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRows_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, "Compra", [][]any{{"CRONOGRAMA"}})

	wb, err := xlsxparser.Open(path)
	require.NoError(t, err)
	defer wb.Close()

	_, err = wb.Rows("Canje")
	assert.ErrorIs(t, err, xlsxparser.ErrSheetNotFound)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := xlsxparser.Open(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}
