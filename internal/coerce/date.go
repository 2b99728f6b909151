// Package coerce normalizes raw spreadsheet cell values into the exact
// textual dates and numbers the regulator validates.
package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the component order of an 8-digit date.
type DateFormat string

const (
	DDMMYYYY DateFormat = "DDMMYYYY"
	YYYYMMDD DateFormat = "YYYYMMDD"
	MMDDYYYY DateFormat = "MMDDYYYY"
)

const (
	minYear = 1900
	maxYear = 2100
)

// serialEpoch is day 1 of the spreadsheet serial calendar.
var serialEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseDateFormat validates a configured format name. An empty name
// selects DDMMYYYY.
func ParseDateFormat(s string) (DateFormat, error) {
	f := DateFormat(strings.ToUpper(strings.TrimSpace(s)))
	if f == "" {
		return DDMMYYYY, nil
	}
	if !f.Valid() {
		return "", fmt.Errorf("unsupported date format %q", s)
	}
	return f, nil
}

// Valid reports whether f is one of the supported orders.
func (f DateFormat) Valid() bool {
	switch f {
	case DDMMYYYY, YYYYMMDD, MMDDYYYY:
		return true
	}
	return false
}

func (f DateFormat) layout() string {
	switch f {
	case YYYYMMDD:
		return "20060102"
	case MMDDYYYY:
		return "01022006"
	default:
		return "02012006"
	}
}

// NormalizeDate converts a cell value into an 8-digit date in format.
// Blank input yields "" and no error.
func NormalizeDate(value any, format DateFormat) (string, error) {
	if format == "" {
		format = DDMMYYYY
	}
	if !format.Valid() {
		return "", &DateFormatError{Value: value, Format: format, Reason: "unsupported format"}
	}

	switch v := value.(type) {
	case nil:
		return "", nil
	case time.Time:
		if v.IsZero() {
			return "", nil
		}
		return v.Format(format.layout()), nil
	case string:
		return normalizeDateString(v, format)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return normalizeDateString(v.String(), format)
		}
		return normalizeSerialOrDigits(value, f, format)
	case float64:
		return normalizeSerialOrDigits(value, v, format)
	case float32:
		return normalizeSerialOrDigits(value, float64(v), format)
	case int:
		return normalizeSerialOrDigits(value, float64(v), format)
	case int64:
		return normalizeSerialOrDigits(value, float64(v), format)
	case int32:
		return normalizeSerialOrDigits(value, float64(v), format)
	}

	return "", &DateFormatError{Value: value, Format: format, Reason: "unsupported type"}
}

// ParseDate reads an 8-digit date written in a known format.
func ParseDate(s string, format DateFormat) (time.Time, error) {
	if len(s) != 8 || !allDigits(s) {
		return time.Time{}, &DateFormatError{Value: s, Format: format, Reason: "expected 8 digits"}
	}

	var day, month, year int
	switch format {
	case DDMMYYYY:
		day, month, year = atoi(s[0:2]), atoi(s[2:4]), atoi(s[4:8])
	case YYYYMMDD:
		year, month, day = atoi(s[0:4]), atoi(s[4:6]), atoi(s[6:8])
	case MMDDYYYY:
		month, day, year = atoi(s[0:2]), atoi(s[2:4]), atoi(s[4:8])
	default:
		return time.Time{}, &DateFormatError{Value: s, Format: format, Reason: "unsupported format"}
	}

	t, err := civilDate(year, month, day)
	if err != nil {
		return time.Time{}, &DateFormatError{Value: s, Format: format, Reason: err.Error()}
	}
	return t, nil
}

// SerialToTime converts a spreadsheet serial day number. Serial 60 is the
// phantom 1900-02-29 of the spreadsheet calendar and has no real date.
func SerialToTime(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 1 {
		return time.Time{}, fmt.Errorf("serial %v out of range", serial)
	}

	days := int(math.Trunc(serial))
	if days == 60 {
		return time.Time{}, fmt.Errorf("serial 60 is the nonexistent 1900-02-29")
	}

	t := serialEpoch.AddDate(0, 0, serialOffset(days))
	if t.Year() > maxYear {
		return time.Time{}, fmt.Errorf("serial %v is after %d", serial, maxYear)
	}
	return t, nil
}

// serialOffset is the day offset from serialEpoch. Serials from 60 on
// carry one extra day for the 1900 leap-year bug.
func serialOffset(days int) int {
	if days < 60 {
		return days - 1
	}
	return days - 2
}

func normalizeSerialOrDigits(original any, n float64, format DateFormat) (string, error) {
	if math.IsNaN(n) {
		return "", nil
	}

	whole := math.Trunc(n)
	if whole >= 1e7 && whole < 1e8 {
		return fromEightDigits(original, strconv.FormatInt(int64(whole), 10), format)
	}
	// A numeric DDMMYYYY cell loses its leading zero. Serials never reach
	// seven digits before 2100.
	if whole >= 1e6 && whole < 1e7 {
		padded := "0" + strconv.FormatInt(int64(whole), 10)
		if t, err := ParseDate(padded, DDMMYYYY); err == nil {
			return t.Format(format.layout()), nil
		}
	}

	t, err := SerialToTime(n)
	if err != nil {
		return "", &DateFormatError{Value: original, Format: format, Reason: err.Error()}
	}
	return t.Format(format.layout()), nil
}

func normalizeDateString(s string, format DateFormat) (string, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "nat":
		return "", nil
	}

	if len(s) == 8 && allDigits(s) {
		return fromEightDigits(s, s, format)
	}

	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		t, err := time.Parse("2006-01-02", s[:10])
		if err != nil {
			return "", &DateFormatError{Value: s, Format: format, Reason: err.Error()}
		}
		if t.Year() < minYear || t.Year() > maxYear {
			return "", &DateFormatError{Value: s, Format: format, Reason: "year out of range"}
		}
		return t.Format(format.layout()), nil
	}

	return "", &DateFormatError{Value: s, Format: format, Reason: "unrecognized date"}
}

// fromEightDigits auto-detects the source order: a leading year in range
// means YYYYMMDD, anything else DDMMYYYY.
func fromEightDigits(original any, s string, format DateFormat) (string, error) {
	source := DDMMYYYY
	if y := atoi(s[:4]); y >= minYear && y <= maxYear {
		source = YYYYMMDD
	}

	t, err := ParseDate(s, source)
	if err != nil && source == YYYYMMDD {
		t, err = ParseDate(s, DDMMYYYY)
	}
	if err != nil {
		var dfe *DateFormatError
		reason := err.Error()
		if errors.As(err, &dfe) {
			reason = dfe.Reason
		}
		return "", &DateFormatError{Value: original, Format: format, Reason: reason}
	}
	return t.Format(format.layout()), nil
}

func civilDate(year, month, day int) (time.Time, error) {
	if year < minYear || year > maxYear {
		return time.Time{}, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	if day < 1 || day > daysIn(month, year) {
		return time.Time{}, fmt.Errorf("day %d out of range for %04d-%02d", day, year, month)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

func daysIn(month, year int) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
