// =============================================================================
// SSN ETL - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xlsxparser (produces RawRow values)
//   - mapper     (consumes RawRow values)
//   - delivery   (payload wire tags)
//   - utils      (processed-file folders)
//
// =============================================================================

package types

// =============================================================================
// SPREADSHEET ROWS
// =============================================================================

// RawRow maps a column header to the raw cell value read from a sheet.
// Values are float64 for numeric cells and string for text cells. Every
// header of the sheet is present as a key; blank cells hold nil.
type RawRow map[string]any

// =============================================================================
// DELIVERY KINDS
// =============================================================================

// DeliveryKind identifies the two regulator submission shapes.
type DeliveryKind string

const (
	// Monthly deliveries report point-in-time holdings (STOCKS).
	Monthly DeliveryKind = "monthly"

	// Weekly deliveries report period operations (OPERACIONES).
	Weekly DeliveryKind = "weekly"
)

// Tag returns the TIPOENTREGA wire value.
func (k DeliveryKind) Tag() string {
	if k == Monthly {
		return "MENSUAL"
	}
	return "SEMANAL"
}

// Title returns the capitalized delivery type used by the correction call.
func (k DeliveryKind) Title() string {
	if k == Monthly {
		return "Mensual"
	}
	return "Semanal"
}

// RecordsKey returns the top-level key holding the record list.
func (k DeliveryKind) RecordsKey() string {
	if k == Monthly {
		return "STOCKS"
	}
	return "OPERACIONES"
}

// Dir returns the folder name used under processed/.
func (k DeliveryKind) Dir() string {
	return string(k)
}
