// =============================================================================
// SSN ETL - Main Entry Point
// =============================================================================
//
// USAGE:
//   etl-ssn extract monthly|weekly --xls-path FILE
//   etl-ssn upload monthly|weekly [data_file] [mode flags]
//   etl-ssn version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : conversion and upload logic
//   - pkg/utils  : file helpers shared by both commands
//
// =============================================================================

package main

import (
	"github.com/spazos-ar/etl-ssn/cmd"
)

func main() {
	cmd.Execute()
}
