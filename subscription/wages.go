/*
wages.go - Active wage resolution for any month of a period

PURPOSE:
  Answers "which wage applies to this month?" for one wage kind. Declared
  sub-periods are turned into effective intervals once, then looked up per
  month by the engine.

INTERVAL RULES:
  - Sub-periods of a kind are ordered by start
  - An explicit end is honored (whole month)
  - An open end runs to the day before the next same-kind start
  - The last open sub-period runs to the kind window end
    (period end, or variable end for variable wages)
  - When intervals overlap, the earliest-starting interval wins

FALLBACK:
  SynthesizeFallback builds one sub-period per boundary range overlapping the
  kind window, at that range's minimum. It realizes "calculate at the
  statutory minimum" and is only used after the caller confirmed it.
*/
package subscription

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/tables"
)

// WageInterval is the effective range of one sub-period.
type WageInterval struct {
	core.Period
	Amount decimal.Decimal
	Source string // sub-period id
}

// Intervals derives the effective intervals of the sub-periods of one kind.
func Intervals(wages []WageSubPeriod, window core.Period) []WageInterval {
	sorted := append([]WageSubPeriod(nil), wages...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := make([]WageInterval, 0, len(sorted))
	for i, w := range sorted {
		start := w.Start.StartOfMonth()
		var end core.Date
		switch {
		case !w.OpenEnded():
			end = w.End.EndOfMonth()
		case i+1 < len(sorted):
			end = sorted[i+1].Start.StartOfMonth().AddDays(-1)
		default:
			end = window.End
		}
		out = append(out, WageInterval{Period: core.Period{Start: start, End: end}, Amount: w.Amount, Source: w.ID})
	}
	return out
}

// =============================================================================
// WAGE RESOLVER
// =============================================================================

// WageResolver answers wage lookups for one period. Build it once per
// calculation; it is read-only afterwards.
type WageResolver struct {
	period    SubscriptionPeriod
	intervals map[core.WageKind][]WageInterval
}

func NewWageResolver(p SubscriptionPeriod) *WageResolver {
	r := &WageResolver{period: p, intervals: make(map[core.WageKind][]WageInterval)}
	for _, w := range p.Wages {
		if _, done := r.intervals[w.Kind]; done {
			continue
		}
		r.intervals[w.Kind] = Intervals(p.WagesOf(w.Kind), p.KindWindow(w.Kind))
	}
	return r
}

// WithFallback replaces the intervals of kind with synthesized sub-periods.
func (r *WageResolver) WithFallback(kind core.WageKind, synthetic []WageSubPeriod) {
	r.intervals[kind] = Intervals(synthetic, r.period.KindWindow(kind))
}

// Has reports whether any sub-period of kind is known to the resolver.
func (r *WageResolver) Has(kind core.WageKind) bool { return len(r.intervals[kind]) > 0 }

// WageFor returns the wage of kind active in the month containing month.
func (r *WageResolver) WageFor(month core.Date, kind core.WageKind) (decimal.Decimal, bool) {
	ivs := r.intervals[kind]
	m := month.StartOfMonth()
	// only intervals starting on or before m can contain it
	n := sort.Search(len(ivs), func(i int) bool { return ivs[i].Start.After(m) })
	for i := 0; i < n; i++ {
		if ivs[i].Contains(m) {
			return ivs[i].Amount, true
		}
	}
	return decimal.Zero, false
}

// WageForMonth is a one-shot lookup without building a resolver.
func WageForMonth(p SubscriptionPeriod, month core.Date, kind core.WageKind) (decimal.Decimal, bool) {
	return NewWageResolver(p).WageFor(month, kind)
}

// =============================================================================
// FALLBACK SYNTHESIS
// =============================================================================

// SynthesizeFallback generates one sub-period per boundary range overlapping
// the kind window, each at the range minimum. Ranges without a minimum are
// skipped.
func SynthesizeFallback(p SubscriptionPeriod, kind core.WageKind, limits tables.LimitList) []WageSubPeriod {
	window := p.KindWindow(kind)
	var out []WageSubPeriod
	for _, r := range limits.Overlapping(window) {
		if !r.Min.Valid {
			continue
		}
		part, _ := r.Intersect(window)
		out = append(out, WageSubPeriod{
			ID:        fmt.Sprintf("fallback-%s-%d", kind, len(out)+1),
			Kind:      kind,
			Start:     part.Start,
			End:       part.End,
			Amount:    r.Min.Decimal,
			Synthetic: true,
		})
	}
	return out
}
