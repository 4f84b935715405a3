/*
validator.go - Domain validation of periods and wage sub-periods

PURPOSE:
  Guards the two entry points callers use before a calculation: editing the
  wages of a period, and submitting a period for calculation.

WAGE CHECK ORDER (first failure wins):
  1. start and a positive amount are present, kind applies to the period
  2. the first sub-period of a kind starts exactly on the kind anchor;
     later ones never start before it
  3. [start, end] (end defaults to the kind window end) lies inside the
     period and start <= end
  4. no other sub-period of the same kind shares the start month
  5. amount satisfies every overlapping boundary range of the kind
  6. variable wages never start before 1984-04-01

PERIOD CHECKS:
  category code, worker category, start/end presence and order, grade for
  graded categories, variable window inside the period, at least one
  insurance branch for detailed categories, and no cutover crossing for
  restricted categories.

SEE ALSO:
  - commands.go: AddWage/EditWage/RemoveWage built on these checks
  - core/errors.go: ValidationError, BoundViolationError, RegimeCrossingError
*/
package subscription

import (
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/tables"
)

// Validator checks periods and wages. Tables may be nil, in which case no
// boundary range applies.
type Validator struct {
	Tables *tables.Set
}

func NewValidator(set *tables.Set) *Validator {
	return &Validator{Tables: set}
}

func (v *Validator) limits(kind core.WageKind) tables.LimitList {
	if v == nil || v.Tables == nil {
		return nil
	}
	return v.Tables.Limits(kind)
}

// ValidateWage checks a candidate sub-period for addition to p.
func (v *Validator) ValidateWage(p SubscriptionPeriod, c WageSubPeriod) error {
	return v.validateWage(p, c, "")
}

// validateWage runs the ordered checks. excludeID names the sub-period being
// replaced by an edit, which is ignored as a sibling.
func (v *Validator) validateWage(p SubscriptionPeriod, c WageSubPeriod, excludeID string) error {
	// 1. presence
	if c.Start.IsZero() {
		return core.Invalid("start", "required")
	}
	if !c.Amount.IsPositive() {
		return core.Invalid("amount", "must be a positive amount")
	}
	if !applicable(p, c.Kind) {
		return core.Invalid("kind", "%q wages do not apply to %s periods in this regime", c.Kind, p.Worker)
	}

	var siblings []WageSubPeriod
	for _, w := range p.WagesOf(c.Kind) {
		if excludeID != "" && w.ID == excludeID {
			continue
		}
		siblings = append(siblings, w)
	}

	// 2. anchor: the first sub-period of a kind, new or edited, starts on it
	start := c.Start.StartOfMonth()
	anchor := p.Anchor(c.Kind)
	first := len(siblings) == 0 || (excludeID != "" && isFirst(p, WageSubPeriod{ID: excludeID, Kind: c.Kind}))
	if first && !start.Equal(anchor) {
		return core.Invalid("start", "first %s wage must start on %s", c.Kind, anchor)
	}
	if start.Before(anchor) {
		return core.Invalid("start", "%s wages cannot start before %s", c.Kind, anchor)
	}

	// 3. inside the period
	window := p.KindWindow(c.Kind)
	end := window.End
	if !c.OpenEnded() {
		end = c.End.EndOfMonth()
	}
	if end.Before(start) {
		return core.Invalid("end", "must not be before start")
	}
	if !(core.Period{Start: start, End: end}).Within(p.Window()) {
		return core.Invalid("start", "wage %s..%s lies outside period %s", start, end, p.Window())
	}

	// 4. distinct start months
	for _, w := range siblings {
		if w.Start.StartOfMonth().Equal(start) {
			return core.Invalid("start", "another %s wage already starts on %s", c.Kind, start)
		}
	}

	// 5. statutory bounds over the effective interval
	effective := core.Period{Start: start, End: end}
	if c.OpenEnded() {
		for _, w := range siblings {
			next := w.Start.StartOfMonth()
			if next.After(start) && next.AddDays(-1).Before(effective.End) {
				effective.End = next.AddDays(-1)
			}
		}
	}
	for _, r := range v.limits(c.Kind).Overlapping(effective) {
		side, bound, ok := r.Check(c.Amount)
		if ok {
			continue
		}
		overlap, _ := r.Intersect(effective)
		return &core.BoundViolationError{
			WageKind: string(c.Kind),
			Amount:   c.Amount,
			Kind:     side,
			Bound:    bound,
			Overlap:  overlap,
		}
	}

	// 6. variable wage floor
	if c.Kind == core.WageVariable && start.Before(core.VariableWageFloor) {
		return core.Invalid("start", "variable wages are not admissible before %s", core.VariableWageFloor)
	}
	return nil
}

// applicable reports whether kind is one of the period's wage kinds.
func applicable(p SubscriptionPeriod, kind core.WageKind) bool {
	for _, k := range p.Worker.WageKinds(p.Start.StartOfMonth()) {
		if k == kind {
			return true
		}
	}
	return false
}

// ValidatePeriod lists every reason p cannot be calculated. An empty result
// means the period is ready.
func (v *Validator) ValidatePeriod(p SubscriptionPeriod) []error {
	var errs []error
	if p.CategoryCode == "" {
		errs = append(errs, core.Invalid("category_code", "required"))
	}
	if !p.Worker.Valid() {
		errs = append(errs, core.Invalid("worker_category", "unknown worker category %q", p.Worker))
	}
	if p.Start.IsZero() {
		errs = append(errs, core.Invalid("start", "required"))
	}
	if p.End.IsZero() {
		errs = append(errs, core.Invalid("end", "required"))
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return errs
	}

	window := p.Window()
	if window.End.Before(window.Start) {
		errs = append(errs, core.Invalid("end", "must not be before start"))
		return errs
	}
	if p.Worker.Graded() && p.Grade < 1 {
		errs = append(errs, core.Invalid("grade", "required for %s workers", p.Worker))
	}
	if p.Worker.Detailed() && len(p.Insurance.Selected()) == 0 {
		errs = append(errs, core.Invalid("insurance", "select at least one insurance type"))
	}
	if !p.VariableStart.IsZero() && !window.Contains(p.VariableStart) {
		errs = append(errs, core.Invalid("variable_start", "must fall inside the period"))
	}
	if !p.VariableEnd.IsZero() && !window.Contains(p.VariableEnd) {
		errs = append(errs, core.Invalid("variable_end", "must fall inside the period"))
	}
	if p.Worker.SplitsAtCutover() && window.SpansCutover() {
		errs = append(errs, &core.RegimeCrossingError{PeriodID: p.ID, Period: window})
	}
	return errs
}
