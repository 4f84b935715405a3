package tables

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
)

// =============================================================================
// WAGE LIMIT RANGE - Statutory min/max for one stretch of the timeline
// =============================================================================

// WageLimitRange is a derived, read-only [Start, End] interval with optional
// bounds.
type WageLimitRange struct {
	core.Period
	Min decimal.NullDecimal
	Max decimal.NullDecimal
}

// Check returns the violated side and bound, if any.
func (r WageLimitRange) Check(amount decimal.Decimal) (core.BoundKind, decimal.Decimal, bool) {
	if r.Min.Valid && amount.LessThan(r.Min.Decimal) {
		return core.BoundMin, r.Min.Decimal, false
	}
	if r.Max.Valid && amount.GreaterThan(r.Max.Decimal) {
		return core.BoundMax, r.Max.Decimal, false
	}
	return "", decimal.Zero, true
}

// LimitList is sorted by start with non-overlapping ranges. A nil list means
// "no bounds" (missing table).
type LimitList []WageLimitRange

// At returns the range containing d using binary search.
func (l LimitList) At(d core.Date) (WageLimitRange, bool) {
	i := l.search(d)
	if i < 0 {
		return WageLimitRange{}, false
	}
	return l[i], true
}

// Overlapping returns every range sharing at least one day with p, in order.
func (l LimitList) Overlapping(p core.Period) []WageLimitRange {
	start := sort.Search(len(l), func(i int) bool { return l[i].End.AfterOrEqual(p.Start) })
	var out []WageLimitRange
	for i := start; i < len(l) && l[i].Start.BeforeOrEqual(p.End); i++ {
		out = append(out, l[i])
	}
	return out
}

// search finds the index of the range containing d, or -1.
func (l LimitList) search(d core.Date) int {
	// first range starting after d; the candidate is the one before it
	i := sort.Search(len(l), func(i int) bool { return l[i].Start.After(d) }) - 1
	if i < 0 || !l[i].Contains(d) {
		return -1
	}
	return i
}

// =============================================================================
// TIMELINE - Turns sorted start (and optional end) cells into periods
// =============================================================================

type timelineRow struct {
	start  core.Date
	end    core.Date // zero when the table carries no end or the cell is empty
	source int       // row index in the raw table
	cells  []string
}

// partition sorts rows by start and derives effective ends: explicit end if
// present, else the day before the next start, else FarFuture.
func partition(key string, rows []timelineRow) ([]core.Period, error) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].start.Before(rows[j].start) })

	periods := make([]core.Period, len(rows))
	for i, r := range rows {
		end := r.end
		if end.IsZero() {
			end = core.FarFuture
			if i+1 < len(rows) {
				end = rows[i+1].start.AddDays(-1)
			}
		}
		if end.Before(r.start) {
			return nil, &core.ConfigurationError{Table: key, Row: r.source, Column: "end", Reason: "end before start"}
		}
		if i > 0 && !r.start.After(periods[i-1].End) {
			return nil, &core.ConfigurationError{Table: key, Row: r.source, Column: "start",
				Reason: "overlaps previous range ending " + periods[i-1].End.String()}
		}
		periods[i] = core.Period{Start: r.start, End: end}
	}
	return periods, nil
}
