/*
errors.go - Centralized error types for the contribution engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Structured errors unwrap to a sentinel so callers can branch with
  errors.Is and still read the details with errors.As.

ERROR CATEGORIES:
  1. Validation      - missing/malformed fields, ordering, anchor dates
  2. Bound violation - amount outside a statutory min/max
  3. Regime crossing - restricted period spans the 2020 cutover
  4. Lookup miss     - no rate row, range or grouped row/grade for a date
  5. Configuration   - required table absent or malformed
  6. Confirmation    - a mandatory wage kind needs statutory-minimum fallback

USAGE:
  if errors.Is(err, core.ErrConfirmationRequired) {
      // ask the user, then recalculate with fallback confirmed
  }

SEE ALSO:
  - subscription/validator.go: produces validation, bound and crossing errors
  - contribution/engine.go: produces lookup and confirmation errors
  - tables/resolver.go: produces configuration errors
*/
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")

	ErrBoundViolation = errors.New("amount outside statutory bounds")

	// ErrRegimeCrossing is returned when a restricted-category period spans
	// the regime cutover and must be split.
	ErrRegimeCrossing = errors.New("period spans the regime cutover")

	ErrLookupMiss = errors.New("lookup miss")

	ErrConfiguration = errors.New("configuration error")

	// ErrConfirmationRequired means a mandatory wage kind has no declared
	// sub-periods and calculating at the statutory minimum needs consent.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrNoValidPeriods is reported when every period of a calculation failed.
	ErrNoValidPeriods = errors.New("no valid periods")

	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single invalid field or ordering violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// BoundKind says which side of a range was violated.
type BoundKind string

const (
	BoundMin BoundKind = "min"
	BoundMax BoundKind = "max"
)

// BoundViolationError carries the offending amount, the bound and the part of
// the sub-period that overlaps the legal range.
type BoundViolationError struct {
	WageKind string
	Amount   decimal.Decimal
	Kind     BoundKind
	Bound    decimal.Decimal
	Overlap  Period
}

func (e *BoundViolationError) Error() string {
	rel := "below minimum"
	if e.Kind == BoundMax {
		rel = "above maximum"
	}
	return fmt.Sprintf("%s wage %s is %s %s for %s", e.WageKind, e.Amount.StringFixed(MoneyPlaces),
		rel, e.Bound.StringFixed(MoneyPlaces), e.Overlap)
}

func (e *BoundViolationError) Unwrap() error { return ErrBoundViolation }

// RegimeCrossingError advises splitting the period at the cutover.
type RegimeCrossingError struct {
	PeriodID string
	Period   Period
}

func (e *RegimeCrossingError) Error() string {
	return fmt.Sprintf("period %s %s spans %s: split it into %s..%s and %s..%s",
		e.PeriodID, e.Period, RegimeCutover,
		e.Period.Start, RegimeCutover.AddDays(-1), RegimeCutover, e.Period.End)
}

func (e *RegimeCrossingError) Unwrap() error { return ErrRegimeCrossing }

// LookupMissError reports a table with no row (or column) for a date.
type LookupMissError struct {
	Table string
	Key   string
	At    Date
}

func (e *LookupMissError) Error() string {
	var b strings.Builder
	b.WriteString("no entry in ")
	b.WriteString(e.Table)
	if e.Key != "" {
		b.WriteString(" for ")
		b.WriteString(e.Key)
	}
	if !e.At.IsZero() {
		b.WriteString(" at ")
		b.WriteString(e.At.String())
	}
	return b.String()
}

func (e *LookupMissError) Unwrap() error { return ErrLookupMiss }

// ConfigurationError reports a missing or malformed table.
type ConfigurationError struct {
	Table  string
	Row    int // -1 when not row-specific
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("table %s row %d column %s: %s", e.Table, e.Row, e.Column, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ConfirmationRequiredError names the wage kinds that would be synthesized.
type ConfirmationRequiredError struct {
	PeriodID  string
	WageKinds []string
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("period %s has no %s wage: confirm calculation at the statutory minimum",
		e.PeriodID, strings.Join(e.WageKinds, "/"))
}

func (e *ConfirmationRequiredError) Unwrap() error { return ErrConfirmationRequired }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrBoundViolation) ||
		errors.Is(err, ErrRegimeCrossing)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
