// =============================================================================
// SSN ETL - Validation Engine
// =============================================================================
//
// This module validates what the uploader accepts before anything is sent to
// the regulator:
//   - Reporting cycles typed on the command line (YYYY-WW / YYYY-MM)
//   - Delivery documents read from disk (required top-level keys)
//
// VALIDATION STRATEGY:
//   Both checks run through a single go-playground/validator instance with
//   two custom tags, ssn_week and ssn_month. Document checks decode the file
//   into a per-kind struct whose fields are pointers, so "required" means
//   "key present" rather than "value non-zero". An empty OPERACIONES list is
//   therefore valid.
//
// ERROR HANDLING:
//   - Every failed rule becomes a *ValidationError
//   - Document checks collect all failures into a *DocumentError
//
// =============================================================================

package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spazos-ar/etl-ssn/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single failed rule.
type ValidationError struct {
	// Field is the JSON key or flag that failed validation.
	Field string

	// Value is the offending value, empty for missing keys.
	Value string

	// Rule is the validator tag that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (value: '%s')", e.Field, e.Message, e.Value)
}

// DocumentError collects every failure of one delivery document.
type DocumentError struct {
	Kind   types.DeliveryKind
	Errors []*ValidationError
}

func (e *DocumentError) Error() string {
	lines := make([]string, 0, len(e.Errors)+1)
	lines = append(lines, fmt.Sprintf("invalid %s delivery document:", e.Kind))
	for _, ve := range e.Errors {
		lines = append(lines, "  - "+ve.Error())
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// VALIDATOR
// =============================================================================

var cyclePattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

const (
	minCycleYear = 2000
	maxCycleYear = 2100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("ssn_week", cycleRule(53))
	_ = v.RegisterValidation("ssn_month", cycleRule(12))
	return v
}

// cycleRule accepts YYYY-NN with a year in [2000,2100] and NN in [1,limit].
func cycleRule(limit int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				return false
			}
			f = f.Elem()
		}
		if f.Kind() != reflect.String {
			return false
		}
		year, period, ok := splitCycle(f.String())
		return ok && year >= minCycleYear && year <= maxCycleYear && period >= 1 && period <= limit
	}
}

func splitCycle(s string) (year, period int, ok bool) {
	if !cyclePattern.MatchString(s) {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(s[:4])
	period, _ = strconv.Atoi(s[5:])
	return year, period, true
}

// =============================================================================
// CYCLE VALIDATION
// =============================================================================

// ValidateWeek checks a weekly cycle such as 2025-07.
func ValidateWeek(s string) error {
	return validateCycle(s, "ssn_week", "week")
}

// ValidateMonth checks a monthly cycle such as 2025-06.
func ValidateMonth(s string) error {
	return validateCycle(s, "ssn_month", "month")
}

// ValidateCycle dispatches to ValidateWeek or ValidateMonth.
func ValidateCycle(s string, kind types.DeliveryKind) error {
	if kind == types.Monthly {
		return ValidateMonth(s)
	}
	return ValidateWeek(s)
}

func validateCycle(s, tag, unit string) error {
	if err := validate.Var(s, tag); err != nil {
		return &ValidationError{
			Field:   "CRONOGRAMA",
			Value:   s,
			Rule:    tag,
			Message: cycleMessage(s, unit),
		}
	}
	return nil
}

func cycleMessage(s, unit string) string {
	year, period, ok := splitCycle(s)
	switch {
	case !ok:
		return fmt.Sprintf("invalid %s format, expected YYYY-%s", unit, placeholder(unit))
	case year < minCycleYear || year > maxCycleYear:
		return fmt.Sprintf("year %d out of range [%d, %d]", year, minCycleYear, maxCycleYear)
	case unit == "week":
		return fmt.Sprintf("week %d out of range [1, 53]", period)
	default:
		return fmt.Sprintf("month %d out of range [1, 12]", period)
	}
}

func placeholder(unit string) string {
	if unit == "week" {
		return "WW"
	}
	return "MM"
}

// =============================================================================
// DOCUMENT VALIDATION
// =============================================================================

type weeklyDocument struct {
	Cycle      *string            `json:"CRONOGRAMA" validate:"required"`
	Operations *[]json.RawMessage `json:"OPERACIONES" validate:"required"`
}

type monthlyDocument struct {
	Cycle   *string            `json:"CRONOGRAMA" validate:"required"`
	Kind    *string            `json:"TIPOENTREGA" validate:"required"`
	Stocks  *[]json.RawMessage `json:"STOCKS" validate:"required"`
	Company *string            `json:"CODIGOCOMPANIA" validate:"required"`
}

// ValidateDocument checks that data is a JSON object carrying every
// top-level key the regulator requires for kind.
func ValidateDocument(data []byte, kind types.DeliveryKind) error {
	var doc any = &weeklyDocument{}
	if kind == types.Monthly {
		doc = &monthlyDocument{}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(doc); err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}

	err := validate.Struct(doc)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	docErr := &DocumentError{Kind: kind}
	for _, fe := range fieldErrs {
		docErr.Errors = append(docErr.Errors, &ValidationError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: "required key is missing",
		})
	}
	return docErr
}
