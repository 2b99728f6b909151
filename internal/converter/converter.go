// =============================================================================
// SSN ETL - Converter Module
// =============================================================================
//
// This module contains the extraction pipeline. It turns one regulator
// workbook into the delivery documents the uploader sends.
//
// CONVERSION PIPELINE:
//   1. Open the workbook
//   2. Read each data sheet of the delivery kind
//   3. Map every row into a regulator record
//   4. Assemble the delivery documents (weekly: one per cycle)
//   5. Write the documents to the output directory
//
// FAILURE POLICY:
//   The regulator rejects partially valid documents, so any mapping error
//   aborts the run before a single file is written.
//
// =============================================================================

package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spazos-ar/etl-ssn/internal/delivery"
	"github.com/spazos-ar/etl-ssn/internal/mapper"
	"github.com/spazos-ar/etl-ssn/internal/types"
	"github.com/spazos-ar/etl-ssn/internal/validation"
	"github.com/spazos-ar/etl-ssn/internal/xlsxparser"
	"github.com/spazos-ar/etl-ssn/pkg/utils"
)

// =============================================================================
// SHEET LAYOUT
// =============================================================================

// sheetKind binds a workbook sheet to the record kind of its rows.
type sheetKind struct {
	name string
	kind mapper.Kind
}

var (
	monthlySheets = []sheetKind{
		{"Stock-Inversiones", mapper.Holding},
		{"Stock-Plazo-Fijo", mapper.FixedDeposit},
		{"Stock-CHPD", mapper.Check},
	}

	weeklySheets = []sheetKind{
		{"Compra", mapper.Purchase},
		{"Venta", mapper.Sale},
		{"Canje", mapper.Exchange},
		{"Plazo-Fijo", mapper.WeeklyDeposit},
	}
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents one generated delivery document.
type Result struct {
	// OutputFile is the path of the written document.
	OutputFile string

	// Cycle is the reporting cycle of the document.
	Cycle string

	// Records is the number of records in the document.
	Records int
}

// Stats summarizes one extraction run.
type Stats struct {
	// RowsProcessed is the number of non-empty sheet rows read.
	RowsProcessed int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options configures a Converter.
type Options struct {
	// OutputDir receives the generated documents.
	OutputDir string

	// Company is written as CODIGOCOMPANIA. The uploader replaces it with
	// the authenticated company code.
	Company string
}

// Converter extracts delivery documents from workbooks.
type Converter struct {
	opts   Options
	mapper *mapper.Mapper
	logger *slog.Logger

	// Stats describes the last run.
	Stats Stats
}

// New creates a Converter.
func New(opts Options, m *mapper.Mapper, logger *slog.Logger) *Converter {
	if opts.OutputDir == "" {
		opts.OutputDir = "data"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{opts: opts, mapper: m, logger: logger}
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// ConvertMonthly writes the monthly holdings document of the workbook at
// path. The cycle is read from the first holdings row.
func (c *Converter) ConvertMonthly(path string) (Result, error) {
	start := time.Now()
	c.Stats = Stats{}
	c.logger.Info("extracting monthly delivery", "workbook", path)

	wb, err := xlsxparser.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer wb.Close()

	var cycle string
	var records []mapper.Record
	for _, sheet := range monthlySheets {
		rows, err := wb.Rows(sheet.name)
		if err != nil {
			return Result{}, err
		}
		if sheet.kind == mapper.Holding && len(rows) > 0 {
			cycle = mapper.Text(rows[0].Cells["CRONOGRAMA"])
		}

		mapped, err := c.mapRows(rows, sheet)
		if err != nil {
			return Result{}, err
		}
		records = append(records, mapped...)
	}

	if cycle == "" {
		return Result{}, &mapper.MissingFieldError{Row: 2, Sheet: monthlySheets[0].name, Field: "CRONOGRAMA"}
	}

	p := delivery.Payload{
		Company: c.opts.Company,
		Kind:    types.Monthly,
		Cycle:   cycle,
		Records: records,
	}
	result, err := c.write(p)
	if err != nil {
		return Result{}, err
	}

	c.Stats.ProcessingTime = time.Since(start)
	c.logger.Info("generated monthly delivery",
		"file", result.OutputFile, "cycle", cycle, "records", result.Records,
		"duration", c.Stats.ProcessingTime)
	return result, nil
}

// ConvertWeekly writes one weekly operations document per cycle found in
// the workbook at path.
func (c *Converter) ConvertWeekly(path string) ([]Result, error) {
	start := time.Now()
	c.Stats = Stats{}
	c.logger.Info("extracting weekly deliveries", "workbook", path)

	wb, err := xlsxparser.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	var operations []mapper.Record
	for _, sheet := range weeklySheets {
		rows, err := wb.Rows(sheet.name)
		if err != nil {
			return nil, err
		}
		mapped, err := c.mapRows(rows, sheet)
		if err != nil {
			return nil, err
		}
		operations = append(operations, mapped...)
	}

	groups := delivery.GroupByCycle(operations)
	for _, g := range groups {
		if err := validation.ValidateWeek(g.Cycle); err != nil {
			return nil, err
		}
	}
	if len(groups) == 0 {
		c.logger.Warn("workbook has no operations", "workbook", path)
	}

	// Every document is encoded before the first one is written.
	// Semana<WW>.json carries no year, so two cycles may share a file.
	encoded := make([][]byte, len(groups))
	paths := make([]string, len(groups))
	owners := make(map[string]string, len(groups))
	for i, g := range groups {
		p := g.Payload(c.opts.Company)
		paths[i] = delivery.OutputPath(c.opts.OutputDir, p)
		if prev, dup := owners[paths[i]]; dup {
			return nil, fmt.Errorf("cycles %s and %s both map to %s; split the workbook by year",
				prev, g.Cycle, filepath.Base(paths[i]))
		}
		owners[paths[i]] = g.Cycle

		data, err := encode(p)
		if err != nil {
			return nil, err
		}
		encoded[i] = data
	}

	results := make([]Result, 0, len(groups))
	for i, g := range groups {
		out := paths[i]
		if err := utils.WriteFileAtomic(out, encoded[i]); err != nil {
			return results, err
		}
		results = append(results, Result{OutputFile: out, Cycle: g.Cycle, Records: len(g.Records)})
		c.logger.Info("generated weekly delivery", "file", out, "cycle", g.Cycle, "operations", len(g.Records))
	}

	c.Stats.ProcessingTime = time.Since(start)
	return results, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) mapRows(rows []xlsxparser.Row, sheet sheetKind) ([]mapper.Record, error) {
	records := make([]mapper.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := c.mapper.Map(row.Cells, sheet.kind, row.Line, sheet.name)
		if err != nil {
			c.logger.Error("row rejected", "sheet", sheet.name, "row", row.Line, "cells", row.Cells, "error", err)
			return nil, err
		}
		records = append(records, rec)
	}
	c.Stats.RowsProcessed += len(rows)
	c.logger.Debug("mapped sheet", "sheet", sheet.name, "rows", len(rows))
	return records, nil
}

func (c *Converter) write(p delivery.Payload) (Result, error) {
	data, err := encode(p)
	if err != nil {
		return Result{}, err
	}
	out := delivery.OutputPath(c.opts.OutputDir, p)
	if err := utils.WriteFileAtomic(out, data); err != nil {
		return Result{}, err
	}
	return Result{OutputFile: out, Cycle: p.Cycle, Records: len(p.Records)}, nil
}

// encode renders a document indented, without HTML escaping.
func encode(p delivery.Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode %s delivery %s: %w", p.Kind, p.Cycle, err)
	}
	return buf.Bytes(), nil
}
