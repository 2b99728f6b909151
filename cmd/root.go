// =============================================================================
// SSN ETL - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (etl-ssn)
//   ├── extractCmd (etl-ssn extract monthly|weekly)
//   ├── uploadCmd  (etl-ssn upload monthly|weekly)
//   └── versionCmd (etl-ssn version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose) and turns
//   any command error into the framed error block and exit status 1.
//
// =============================================================================

package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spazos-ar/etl-ssn/internal/config"
	"github.com/spazos-ar/etl-ssn/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "etl-ssn",
	Short: "Extract and upload SSN investment deliveries",
	Long: `etl-ssn turns the investment workbooks of an insurer into the JSON
deliveries required by the SSN and uploads them to the regulator API.

Example Usage:
  etl-ssn extract weekly --xls-path Semanal.xlsx   # one Semana<WW>.json per week
  etl-ssn extract monthly --xls-path Mensual.xlsx  # one Mes-<YYYY-MM>.json
  etl-ssn upload weekly data/Semana07.json --confirm-week
  etl-ssn upload monthly --query-month 2025-06`,

	SilenceUsage:  true,
	SilenceErrors: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		writeErrorBox(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig reads the configuration file and installs the run logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel()
	if verbose {
		level = "debug"
	}
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{Level: level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	logger.Debug("configuration loaded", "path", cfg.Path(), "environment", cfg.Environment, "base_url", cfg.BaseURL)
	return cfg, logger, nil
}
