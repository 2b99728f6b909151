package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy selects how NumberFormat treats unusable input.
type Policy int

const (
	// Silent turns blank or unparseable input into a blank Number.
	Silent Policy = iota

	// Strict rejects unparseable input, separator mismatches and values
	// wider than MaxIntegerDigits.
	Strict
)

// DefaultMaxIntegerDigits is the widest integer part the regulator accepts.
const DefaultMaxIntegerDigits = 14

// NumberFormat normalizes numeric cells written with a configured decimal
// separator.
type NumberFormat struct {
	Separator        string
	Policy           Policy
	MaxIntegerDigits int
}

// Number is a normalized numeric value. The zero value is blank.
type Number struct {
	d      decimal.Decimal
	places int32
	valid  bool
}

// IntNumber returns an integer Number.
func IntNumber(v int64) Number {
	return Number{d: decimal.NewFromInt(v), valid: true}
}

// IsBlank reports whether n carries no value.
func (n Number) IsBlank() bool { return !n.valid }

// IsInteger reports whether n renders without a fractional part.
func (n Number) IsInteger() bool { return n.valid && n.places == 0 }

// Decimal returns the numeric value; blank numbers return zero.
func (n Number) Decimal() decimal.Decimal { return n.d }

// String renders n with exactly its decimal places, or "" when blank.
func (n Number) String() string {
	if !n.valid {
		return ""
	}
	return n.d.StringFixed(n.places)
}

// MarshalJSON writes a JSON number, or "" when blank.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte(`""`), nil
	}
	return []byte(n.String()), nil
}

// Normalize converts value into a Number. A zero places value, or a value
// without a fractional part, yields an integer; anything else is rounded
// half away from zero to places decimals.
func (f NumberFormat) Normalize(value any, places int) (Number, error) {
	if places < 0 {
		places = 0
	}

	d, blank, err := f.parse(value)
	if blank {
		return Number{}, nil
	}
	if err != nil {
		if f.Policy == Silent {
			return Number{}, nil
		}
		return Number{}, err
	}

	n := Number{d: d.Round(0), valid: true}
	if places > 0 && !d.Equal(d.Truncate(0)) {
		n = Number{d: d.Round(int32(places)), places: int32(places), valid: true}
	}

	// The limit applies to the value actually written.
	if f.Policy == Strict {
		if err := f.checkRange(n.d); err != nil {
			return Number{}, err
		}
	}
	return n, nil
}

func (f NumberFormat) separator() string {
	if f.Separator == "," {
		return ","
	}
	return "."
}

func (f NumberFormat) checkRange(d decimal.Decimal) error {
	limit := f.MaxIntegerDigits
	if limit <= 0 {
		limit = DefaultMaxIntegerDigits
	}
	if digits := len(d.Abs().Truncate(0).String()); digits > limit {
		return &NumberRangeError{Value: d.String(), MaxDigits: limit}
	}
	return nil
}

// parse returns the decimal value of v, or blank=true for empty cells.
func (f NumberFormat) parse(v any) (d decimal.Decimal, blank bool, err error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, true, nil
	case Number:
		if !x.valid {
			return decimal.Zero, true, nil
		}
		return x.d, false, nil
	case decimal.Decimal:
		return x, false, nil
	case float64:
		if math.IsNaN(x) {
			return decimal.Zero, true, nil
		}
		if math.IsInf(x, 0) {
			return decimal.Zero, false, &NumberFormatError{Value: v}
		}
		return decimal.NewFromFloat(x), false, nil
	case float32:
		if math.IsNaN(float64(x)) {
			return decimal.Zero, true, nil
		}
		return decimal.NewFromFloat32(x), false, nil
	case int:
		return decimal.NewFromInt(int64(x)), false, nil
	case int32:
		return decimal.NewFromInt32(x), false, nil
	case int64:
		return decimal.NewFromInt(x), false, nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false, &NumberFormatError{Value: v, Cause: err}
		}
		return d, false, nil
	case string:
		return f.parseString(x)
	}
	return decimal.Zero, false, &NumberFormatError{Value: v, Cause: fmt.Errorf("unsupported type %T", v)}
}

func (f NumberFormat) parseString(raw string) (decimal.Decimal, bool, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan":
		return decimal.Zero, true, nil
	}

	sep := f.separator()
	other := ","
	if sep == "," {
		other = "."
	}

	hasSep := strings.Contains(s, sep)
	hasOther := strings.Contains(s, other)
	switch {
	case hasSep && hasOther:
		s = strings.ReplaceAll(s, other, "")
	case hasOther:
		if f.Policy == Strict {
			return decimal.Zero, false, &NumberSeparatorMismatchError{Value: raw, Found: other, Separator: sep}
		}
		s = strings.ReplaceAll(s, other, sep)
	}
	s = strings.ReplaceAll(s, sep, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, &NumberFormatError{Value: raw, Cause: err}
	}
	return d, false, nil
}
