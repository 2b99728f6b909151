package mapper

import "fmt"

// MissingFieldError reports a required column absent from a sheet row.
type MissingFieldError struct {
	Row   int
	Sheet string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("row %d of sheet %q: missing required column %s", e.Row, e.Sheet, e.Field)
}

// FieldError reports a cell that could not be coerced.
type FieldError struct {
	Row   int
	Sheet string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d of sheet %q, column %s: %v", e.Row, e.Sheet, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
