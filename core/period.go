package core

// =============================================================================
// PERIOD - Inclusive day range, walked month by month
// =============================================================================

// Period is an inclusive [Start, End] range.
//
// Examples:
//   - A subscription period: 2018-01-01 .. 2019-12-31
//   - A wage sub-period:     2018-06-01 .. 2018-12-31
//   - A boundary-table range: 1984-04-01 .. 9999-12-31
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func NewPeriod(start, end Date) Period { return Period{Start: start, End: end} }

// MonthPeriod returns the period covering whole months from the month of
// start to the month of end.
func MonthPeriod(start, end Date) Period {
	return Period{Start: start.StartOfMonth(), End: end.EndOfMonth()}
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Valid reports Start <= End with both ends set.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && p.Start.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

// Intersect returns the shared part of two periods.
func (p Period) Intersect(o Period) (Period, bool) {
	if !p.Overlaps(o) {
		return Period{}, false
	}
	return Period{Start: MaxDate(p.Start, o.Start), End: MinDate(p.End, o.End)}, true
}

// Within returns true if p lies entirely inside o.
func (p Period) Within(o Period) bool {
	return p.Start.AfterOrEqual(o.Start) && p.End.BeforeOrEqual(o.End)
}

// Months returns the first day of every month touched by the period.
func (p Period) Months() []Date {
	if p.End.Before(p.Start) {
		return nil
	}
	months := make([]Date, 0, MonthsInclusive(p.Start, p.End))
	last := p.End.StartOfMonth()
	for m := p.Start.StartOfMonth(); m.BeforeOrEqual(last); m = m.AddMonths(1) {
		months = append(months, m)
	}
	return months
}

// MonthCount is the inclusive number of months touched by the period.
func (p Period) MonthCount() int { return MonthsInclusive(p.Start, p.End) }

// SpansCutover reports whether the period has days on both sides of the
// regime cutover.
func (p Period) SpansCutover() bool {
	return p.Start.Before(RegimeCutover) && p.End.AfterOrEqual(RegimeCutover)
}

// ClipStart moves Start forward to floor. ok is false when nothing remains.
func (p Period) ClipStart(floor Date) (Period, bool) {
	if p.End.Before(floor) {
		return Period{}, false
	}
	return Period{Start: MaxDate(p.Start, floor), End: p.End}, true
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
