// =============================================================================
// SSN ETL - Extract Command
// =============================================================================
//
// COMMAND USAGE:
//   etl-ssn extract monthly --xls-path FILE
//   etl-ssn extract weekly  --xls-path FILE
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Read every data sheet of the workbook
//   3. Map each row into a regulator record
//   4. Write the delivery documents to output_dir
//
// Any row that cannot be mapped aborts the run before a file is written.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/spazos-ar/etl-ssn/internal/config"
	"github.com/spazos-ar/etl-ssn/internal/converter"
	"github.com/spazos-ar/etl-ssn/internal/mapper"
	"github.com/spazos-ar/etl-ssn/internal/types"
)

// xlsPath is the workbook to extract.
var xlsPath string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Convert an investment workbook into delivery JSON files",
}

var extractMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Generate the monthly holdings delivery (Mes-<YYYY-MM>.json)",
	Long: `Reads the Stock-Inversiones, Stock-Plazo-Fijo and Stock-CHPD sheets and
writes one monthly delivery. The cycle is taken from the CRONOGRAMA column
of the first holdings row.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return extract(cmd, types.Monthly)
	},
}

var extractWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Generate the weekly operations deliveries (Semana<WW>.json)",
	Long: `Reads the Compra, Venta, Canje and Plazo-Fijo sheets and writes one
weekly delivery per CRONOGRAMA found in them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return extract(cmd, types.Weekly)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.AddCommand(extractMonthlyCmd, extractWeeklyCmd)

	extractCmd.PersistentFlags().StringVar(&xlsPath, "xls-path", "", "Path to the input workbook")
	_ = extractCmd.MarkPersistentFlagRequired("xls-path")
}

func extract(cmd *cobra.Command, kind types.DeliveryKind) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runExtract(cfg, logger, kind, xlsPath, cmd.OutOrStdout())
}

// runExtract converts the workbook at path and reports the written files.
func runExtract(cfg *config.Config, logger *slog.Logger, kind types.DeliveryKind, path string, out io.Writer) error {
	company := cfg.ExtractCompany()
	if company == "" {
		logger.Warn("no company code configured; CODIGOCOMPANIA is left empty until upload")
	}

	conv := converter.New(
		converter.Options{OutputDir: cfg.OutputDir, Company: company},
		mapper.New(cfg.MapperOptions()),
		logger,
	)

	var results []converter.Result
	switch kind {
	case types.Monthly:
		result, err := conv.ConvertMonthly(path)
		if err != nil {
			return err
		}
		results = append(results, result)
	default:
		weekly, err := conv.ConvertWeekly(path)
		if err != nil {
			return err
		}
		results = weekly
	}

	for _, r := range results {
		fmt.Fprintf(out, "  ✓ %s (%s, %d records)\n", r.OutputFile, r.Cycle, r.Records)
	}
	fmt.Fprintf(out, "Rows processed: %d\n", conv.Stats.RowsProcessed)
	fmt.Fprintf(out, "Time elapsed:   %s\n", conv.Stats.ProcessingTime)
	return nil
}
