package coerce

import "fmt"

// DateFormatError reports a value that could not be turned into a date.
type DateFormatError struct {
	Value  any
	Format DateFormat
	Reason string
}

func (e *DateFormatError) Error() string {
	msg := fmt.Sprintf("cannot convert date %v (%T) to format %s", e.Value, e.Value, e.Format)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NumberRangeError reports a number with more integer digits than allowed.
type NumberRangeError struct {
	Value     string
	MaxDigits int
}

func (e *NumberRangeError) Error() string {
	return fmt.Sprintf("value %s exceeds the limit of %d integer digits", e.Value, e.MaxDigits)
}

// NumberSeparatorMismatchError reports input written with the decimal
// separator the configuration does not expect.
type NumberSeparatorMismatchError struct {
	Value     string
	Found     string
	Separator string
}

func (e *NumberSeparatorMismatchError) Error() string {
	return fmt.Sprintf(
		"number %q uses %q as decimal separator but %q is configured; set decimal_separator: %q to match the spreadsheet",
		e.Value, e.Found, e.Separator, e.Found,
	)
}

// NumberFormatError reports a value that is not a number at all.
type NumberFormatError struct {
	Value any
	Cause error
}

func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("invalid number %v", e.Value)
}

func (e *NumberFormatError) Unwrap() error {
	return e.Cause
}
