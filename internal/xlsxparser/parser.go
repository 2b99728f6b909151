// =============================================================================
// SSN ETL - Workbook Reader
// =============================================================================
//
// This module reads the data sheets of a regulator submission workbook into
// header-keyed rows for the record mapper.
//
// SHEET STRUCTURE (Expected Layout):
//   The first row of every sheet holds the column headers, which must match
//   the regulator field names (CRONOGRAMA, TIPOESPECIE, ...). Each following
//   non-empty row is one record.
//
//   | Column A   | Column B    | Column C      | Column D     | ...
//   |------------|-------------|---------------|--------------|-----
//   | CRONOGRAMA | TIPOESPECIE | CODIGOESPECIE | CANTESPECIES | ...
//   | 2025-07    | TP          | AL30          | 1500         | ...
//
// CELL VALUES:
//   - Numeric cells (including dates, which are stored as serial numbers)
//     are returned as float64, unformatted.
//   - Text cells are returned as string.
//   - Blank cells are nil. Every header is present as a key in every row,
//     so a missing key always means a missing column.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spazos-ar/etl-ssn/internal/types"
)

// ErrSheetNotFound is returned when a workbook lacks a requested sheet.
var ErrSheetNotFound = errors.New("sheet not found")

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is an open spreadsheet file.
type Workbook struct {
	path string
	file *excelize.File
}

// Row is one data row of a sheet.
type Row struct {
	// Line is the 1-based spreadsheet row number, for error reports.
	Line int

	// Cells maps each header to its cell value.
	Cells types.RawRow
}

// Open opens the workbook at path. Callers must Close it.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// Sheets lists the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// Rows reads every non-empty data row of sheet.
func (w *Workbook) Rows(sheet string) ([]Row, error) {
	if idx, err := w.file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, w.path)
	}

	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []Row{}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	result := make([]Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]

		// Skip empty rows.
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		cells := make(types.RawRow, len(headers))
		for col, name := range headers {
			if name == "" {
				continue
			}
			var raw string
			if col < len(row) {
				raw = row[col]
			}
			cells[name], err = w.cellValue(sheet, col, i, raw)
			if err != nil {
				return nil, err
			}
		}
		result = append(result, Row{Line: i + 1, Cells: cells})
	}
	return result, nil
}

// cellValue types a raw cell string using the cell's stored type.
func (w *Workbook) cellValue(sheet string, col, row int, raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return nil, err
	}
	cellType, err := w.file.GetCellType(sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("failed to read cell %s!%s: %w", sheet, axis, err)
	}

	switch cellType {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
	}
	return raw, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
