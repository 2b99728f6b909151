// Package mapper turns spreadsheet rows into regulator records with a fixed,
// ordered field set per entity kind.
package mapper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spazos-ar/etl-ssn/internal/coerce"
	"github.com/spazos-ar/etl-ssn/internal/types"
)

// quantityLimit bounds holdings quantities of clamped instrument types.
var quantityLimit = decimal.New(1, 9)

// Options configures a Mapper.
type Options struct {
	DateFormat       coerce.DateFormat
	DecimalSeparator string

	// PaseInstrumentTypes and PaseValuationType select the rows whose
	// pase date and price are reported. Other rows get blank pase fields.
	PaseInstrumentTypes []string
	PaseValuationType   string

	// BoundedQuantityTypes lists instrument types whose holdings
	// quantities must fall within [0, 1e9]; others are reset to zero.
	BoundedQuantityTypes []string
}

// DefaultOptions returns the regulator defaults.
func DefaultOptions() Options {
	return Options{
		DateFormat:          coerce.DDMMYYYY,
		DecimalSeparator:    ".",
		PaseInstrumentTypes: []string{"TP", "ON"},
		PaseValuationType:   "T",
	}
}

// Mapper maps rows of every kind. Monthly kinds coerce numbers silently
// and emit JSON numbers; weekly kinds coerce strictly and emit strings.
type Mapper struct {
	opts    Options
	monthly coerce.NumberFormat
	weekly  coerce.NumberFormat
	pase    map[string]bool
	bounded map[string]bool
}

// New creates a Mapper.
func New(opts Options) *Mapper {
	if opts.DateFormat == "" {
		opts.DateFormat = coerce.DDMMYYYY
	}
	return &Mapper{
		opts: opts,
		monthly: coerce.NumberFormat{
			Separator: opts.DecimalSeparator,
			Policy:    coerce.Silent,
		},
		weekly: coerce.NumberFormat{
			Separator:        opts.DecimalSeparator,
			Policy:           coerce.Strict,
			MaxIntegerDigits: coerce.DefaultMaxIntegerDigits,
		},
		pase:    toSet(opts.PaseInstrumentTypes),
		bounded: toSet(opts.BoundedQuantityTypes),
	}
}

// Map converts one row. rowIndex and sheet only feed error reports.
func (m *Mapper) Map(row types.RawRow, kind Kind, rowIndex int, sheet string) (Record, error) {
	specs, ok := schemas[kind]
	if !ok {
		return Record{}, fmt.Errorf("unknown record kind %d", kind)
	}

	var rec Record
	for _, f := range specs {
		v, err := m.mapField(row, f, kind)
		if err != nil {
			var missing *MissingFieldError
			if errors.As(err, &missing) {
				missing.Row, missing.Sheet = rowIndex, sheet
				return Record{}, missing
			}
			return Record{}, &FieldError{Row: rowIndex, Sheet: sheet, Field: f.name, Err: err}
		}
		rec.Set(f.name, v)
	}

	if kind.Weekly() {
		cycle := Text(row[cycleField])
		if cycle == "" {
			return Record{}, &MissingFieldError{Row: rowIndex, Sheet: sheet, Field: cycleField}
		}
		rec.Cycle = cycle
	}

	if kind == Holding {
		m.clampQuantities(&rec, row)
	}
	return rec, nil
}

func (m *Mapper) mapField(row types.RawRow, f fieldSpec, kind Kind) (any, error) {
	if f.rule == ruleLiteral {
		return f.literal, nil
	}

	raw, present := row[f.name]
	if !present && !f.optional {
		return nil, &MissingFieldError{Field: f.name}
	}
	if f.pase != nil && !m.paseApplies(row, f.pase) {
		return "", nil
	}

	switch f.rule {
	case ruleText:
		return Text(raw), nil
	case ruleDate:
		return coerce.NormalizeDate(raw, m.opts.DateFormat)
	case ruleInteger:
		return m.numbers(kind).Normalize(raw, 0)
	case ruleQuantity, ruleNumber:
		places := f.places
		if f.rule == ruleQuantity && !strings.EqualFold(Text(row[f.fundColumn]), fundType) {
			places = 0
		}
		n, err := m.numbers(kind).Normalize(raw, places)
		if err != nil {
			return nil, err
		}
		if kind.Weekly() {
			return n.String(), nil
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown rule %d", f.rule)
}

func (m *Mapper) numbers(kind Kind) coerce.NumberFormat {
	if kind.Weekly() {
		return m.weekly
	}
	return m.monthly
}

func (m *Mapper) paseApplies(row types.RawRow, ref *paseRef) bool {
	return m.pase[strings.ToUpper(Text(row[ref.typeColumn]))] &&
		strings.EqualFold(Text(row[ref.valuationColumn]), m.opts.PaseValuationType)
}

func (m *Mapper) clampQuantities(rec *Record, row types.RawRow) {
	if !m.bounded[strings.ToUpper(Text(row["TIPOESPECIE"]))] {
		return
	}
	for _, name := range []string{"CANTIDADDEVENGADOESPECIES", "CANTIDADPERCIBIDOESPECIES"} {
		v, _ := rec.Get(name)
		n, ok := v.(coerce.Number)
		if !ok || n.IsBlank() {
			continue
		}
		if d := n.Decimal(); d.IsNegative() || d.GreaterThan(quantityLimit) {
			rec.Set(name, coerce.IntNumber(0))
		}
	}
}

// Text renders a cell as the string the regulator expects for text fields.
// Whole numeric cells lose their ".0" suffix.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02")
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	return set
}
