package converter_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spazos-ar/etl-ssn/internal/converter"
	"github.com/spazos-ar/etl-ssn/internal/logging"
	"github.com/spazos-ar/etl-ssn/internal/mapper"
	"github.com/spazos-ar/etl-ssn/internal/validation"
)

// sheet is a header row plus data rows keyed by header.
type sheet struct {
	name string
	rows []map[string]any
}

func writeWorkbook(t *testing.T, sheets []sheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for _, s := range sheets {
		_, err := f.NewSheet(s.name)
		require.NoError(t, err)
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	kinds := map[string]mapper.Kind{
		"Stock-Inversiones": mapper.Holding,
		"Stock-Plazo-Fijo":  mapper.FixedDeposit,
		"Stock-CHPD":        mapper.Check,
		"Compra":            mapper.Purchase,
		"Venta":             mapper.Sale,
		"Canje":             mapper.Exchange,
		"Plazo-Fijo":        mapper.WeeklyDeposit,
	}

	for _, s := range sheets {
		headers := append([]string{"CRONOGRAMA"}, mapper.Columns(kinds[s.name])...)
		for c, h := range headers {
			axis, _ := excelize.CoordinatesToCellName(c+1, 1)
			require.NoError(t, f.SetCellValue(s.name, axis, h))
		}
		for r, row := range s.rows {
			for c, h := range headers {
				v, ok := row[h]
				if !ok {
					continue
				}
				axis, _ := excelize.CoordinatesToCellName(c+1, r+2)
				require.NoError(t, f.SetCellValue(s.name, axis, v))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func newConverter(t *testing.T, outDir string) *converter.Converter {
	t.Helper()
	return converter.New(
		converter.Options{OutputDir: outDir, Company: "0540"},
		mapper.New(mapper.DefaultOptions()),
		logging.Discard(),
	)
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestConvertWeekly(t *testing.T) {
	path := writeWorkbook(t, []sheet{
		{name: "Compra", rows: []map[string]any{
			{"CRONOGRAMA": "2025-07", "TIPOESPECIE": "TP", "CODIGOESPECIE": "AL30", "CANTESPECIES": 100, "FECHAMOVIMIENTO": 45658},
			{"CRONOGRAMA": "2025-08", "TIPOESPECIE": "AC", "CODIGOESPECIE": "GGAL", "CANTESPECIES": 5},
		}},
		{name: "Venta", rows: []map[string]any{
			{"CRONOGRAMA": "2025-07", "TIPOESPECIE": "ON", "TIPOVALUACION": "T", "FECHAPASEVT": "20250110", "PRECIOPASEVT": 99.5},
		}},
		{name: "Canje"},
		{name: "Plazo-Fijo"},
	})

	outDir := filepath.Join(t.TempDir(), "data")
	conv := newConverter(t, outDir)

	results, err := conv.ConvertWeekly(path)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, conv.Stats.RowsProcessed)

	assert.Equal(t, filepath.Join(outDir, "Semana07.json"), results[0].OutputFile)
	assert.Equal(t, 2, results[0].Records)
	assert.Equal(t, filepath.Join(outDir, "Semana08.json"), results[1].OutputFile)

	doc := readJSON(t, results[0].OutputFile)
	assert.Equal(t, "0540", doc["CODIGOCOMPANIA"])
	assert.Equal(t, "SEMANAL", doc["TIPOENTREGA"])
	assert.Equal(t, "2025-07", doc["CRONOGRAMA"])

	ops := doc["OPERACIONES"].([]any)
	require.Len(t, ops, 2)
	purchase := ops[0].(map[string]any)
	assert.Equal(t, "C", purchase["TIPOOPERACION"])
	assert.Equal(t, "100", purchase["CANTESPECIES"])
	assert.Equal(t, "01012025", purchase["FECHAMOVIMIENTO"])
	assert.NotContains(t, purchase, "CRONOGRAMA")

	sale := ops[1].(map[string]any)
	assert.Equal(t, "V", sale["TIPOOPERACION"])
	assert.Equal(t, "10012025", sale["FECHAPASEVT"])
	assert.Equal(t, "99.50", sale["PRECIOPASEVT"])
}

func TestConvertWeekly_KeepsHeaderKeyOrder(t *testing.T) {
	path := writeWorkbook(t, []sheet{
		{name: "Compra", rows: []map[string]any{{"CRONOGRAMA": "2025-07", "TIPOESPECIE": "TP"}}},
		{name: "Venta"}, {name: "Canje"}, {name: "Plazo-Fijo"},
	})

	outDir := t.TempDir()
	results, err := newConverter(t, outDir).ConvertWeekly(path)
	require.NoError(t, err)

	data, err := os.ReadFile(results[0].OutputFile)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(data))
	var keys []string
	_, _ = dec.Token()
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	assert.Equal(t, []string{"CODIGOCOMPANIA", "TIPOENTREGA", "CRONOGRAMA", "OPERACIONES"}, keys)
}

func TestConvertWeekly_MappingErrorWritesNothing(t *testing.T) {
	opts := mapper.DefaultOptions()
	opts.DecimalSeparator = ","
	path := writeWorkbook(t, []sheet{
		{name: "Compra", rows: []map[string]any{{"CRONOGRAMA": "2025-07", "TIPOESPECIE": "TP", "CANTESPECIES": 1}}},
		{name: "Venta", rows: []map[string]any{{"CRONOGRAMA": "2025-07", "PRECIOVENTA": "12.5"}}},
		{name: "Canje"}, {name: "Plazo-Fijo"},
	})

	outDir := filepath.Join(t.TempDir(), "data")
	conv := converter.New(converter.Options{OutputDir: outDir}, mapper.New(opts), logging.Discard())

	_, err := conv.ConvertWeekly(path)
	var fieldErr *mapper.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "Venta", fieldErr.Sheet)
	assert.Equal(t, 2, fieldErr.Row)

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertWeekly_InvalidCycle(t *testing.T) {
	path := writeWorkbook(t, []sheet{
		{name: "Compra", rows: []map[string]any{{"CRONOGRAMA": "2025-60"}}},
		{name: "Venta"}, {name: "Canje"}, {name: "Plazo-Fijo"},
	})

	_, err := newConverter(t, t.TempDir()).ConvertWeekly(path)
	var ve *validation.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestConvertWeekly_SameWeekOfTwoYears(t *testing.T) {
	path := writeWorkbook(t, []sheet{
		{name: "Compra", rows: []map[string]any{
			{"CRONOGRAMA": "2024-52", "TIPOESPECIE": "AC", "CANTESPECIES": 1},
			{"CRONOGRAMA": "2025-52", "TIPOESPECIE": "AC", "CANTESPECIES": 2},
		}},
		{name: "Venta"}, {name: "Canje"}, {name: "Plazo-Fijo"},
	})

	outDir := filepath.Join(t.TempDir(), "data")
	_, err := newConverter(t, outDir).ConvertWeekly(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-52")
	assert.Contains(t, err.Error(), "Semana52.json")

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertWeekly_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, []sheet{{name: "Compra"}})

	_, err := newConverter(t, t.TempDir()).ConvertWeekly(path)
	assert.ErrorContains(t, err, "Venta")
}

func TestConvertMonthly(t *testing.T) {
	path := writeWorkbook(t, []sheet{
		{name: "Stock-Inversiones", rows: []map[string]any{
			{"CRONOGRAMA": "2025-06", "TIPOESPECIE": "TP", "CODIGOAFECTACION": "1", "VALORCONTABLE": "1000.50"},
		}},
		{name: "Stock-Plazo-Fijo", rows: []map[string]any{
			{"CRONOGRAMA": "2025-06", "TIPOPF": "T", "TASA": 35.12345, "TITULODEUDA": 1},
		}},
		{name: "Stock-CHPD"},
	})

	outDir := t.TempDir()
	result, err := newConverter(t, outDir).ConvertMonthly(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "Mes-2025-06.json"), result.OutputFile)
	assert.Equal(t, "2025-06", result.Cycle)
	assert.Equal(t, 2, result.Records)

	doc := readJSON(t, result.OutputFile)
	assert.Equal(t, "MENSUAL", doc["TIPOENTREGA"])
	stocks := doc["STOCKS"].([]any)
	require.Len(t, stocks, 2)

	holding := stocks[0].(map[string]any)
	assert.Equal(t, "I", holding["TIPO"])
	assert.Equal(t, 1.0, holding["CODIGOAFECTACION"])
	assert.Equal(t, 1001.0, holding["VALORCONTABLE"])
	assert.Equal(t, "", holding["FECHAPASEVT"])

	deposit := stocks[1].(map[string]any)
	assert.Equal(t, "P", deposit["TIPO"])
	assert.Equal(t, 35.123, deposit["TASA"])
}

func TestConvertMonthly_MissingCycle(t *testing.T) {
	path := writeWorkbook(t, []sheet{
		{name: "Stock-Inversiones"}, {name: "Stock-Plazo-Fijo"}, {name: "Stock-CHPD"},
	})

	_, err := newConverter(t, t.TempDir()).ConvertMonthly(path)
	var missing *mapper.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "CRONOGRAMA", missing.Field)
}
