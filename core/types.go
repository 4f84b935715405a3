/*
Package core provides the domain-agnostic primitives of the contribution engine.

PURPOSE:
  Every other package reasons about the same things: calendar dates at day
  granularity, inclusive periods of whole months, money/percentages and the
  legal vocabulary (wage kinds, insurance types, worker categories). Keeping
  them here means the table resolver, the validator, the wage resolver and
  the engine all agree on boundaries, month counting and rounding.

KEY CONCEPTS:
  - Date:   A calendar day (UTC, no clock component)
  - Period: An inclusive [Start, End] range of days, iterated by month
  - Money:  decimal.Decimal amounts rounded to two places
  - Rate:   decimal.Decimal percentages (11 means 11%)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, no float arithmetic on money
  2. Determinism: identical inputs always give identical rounding
  3. Immutability: Date and Period are values, every operation returns a copy

SEE ALSO:
  - time.go: Date type and the legal calendar constants
  - period.go: Period type and month iteration
  - vocabulary.go: Wage kinds, insurance types, reductions, worker categories
  - errors.go: Error taxonomy shared by all packages
*/
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places contributions are rounded to.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Money rounds an amount half away from zero to two decimal places.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ApplyRate returns amount * rate / 100, rounded to money precision.
func ApplyRate(amount, rate decimal.Decimal) decimal.Decimal {
	return Money(amount.Mul(rate).Div(hundred))
}

// ParseDecimal parses a cell value. Empty cells are reported with ok=false.
func ParseDecimal(s string) (d decimal.Decimal, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err = decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return d, true, nil
}

// MustDecimal parses s or returns zero. Intended for literals in tests and presets.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ClampZero floors a value at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
