package core

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day, the only time granularity the engine needs
// =============================================================================

type Date struct {
	Time time.Time
}

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Legal calendar.
var (
	// RegimeCutover is the first day governed by the post-2020 rules.
	RegimeCutover = NewDate(2020, time.January, 1)

	// VariableWageFloor is the first day variable-wage and end-of-service
	// bonus contributions can be due.
	VariableWageFloor = NewDate(1984, time.April, 1)

	// FarFuture terminates the last range of an open-ended table.
	FarFuture = NewDate(9999, time.December, 31)
)

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MonthStart returns the first day of the given month.
func MonthStart(year int, month time.Month) Date { return NewDate(year, month, 1) }

// ParseDate accepts YYYY-MM-DD or YYYY-MM (first day of that month).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(monthLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or YYYY-MM)", s)
}

// Comparison
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) StartOfMonth() Date { return MonthStart(d.Year(), d.Month()) }

func (d Date) EndOfMonth() Date {
	return Date{Time: time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// IsPostCutover reports whether the date falls under the post-2020 regime.
func (d Date) IsPostCutover() bool { return d.AfterOrEqual(RegimeCutover) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dayLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// MonthsInclusive counts calendar months touched by [from, to].
// Returns 0 when to is before from.
func MonthsInclusive(from, to Date) int {
	if to.Before(from) {
		return 0
	}
	return (to.Year()-from.Year())*12 + int(to.Month()-from.Month()) + 1
}
