package subscription

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/warp/contribution-engine/core"
)

// =============================================================================
// WAGE COMMANDS - Validate, then return a new period value
// =============================================================================
//
// The input period is never modified. Callers replace their copy with the
// returned one only when err is nil.

// AddWage validates c and returns p with c appended. A missing id is
// generated.
func (v *Validator) AddWage(p SubscriptionPeriod, c WageSubPeriod) (SubscriptionPeriod, error) {
	if err := v.validateWage(p, c, ""); err != nil {
		return p, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for _, w := range p.Wages {
		if w.ID == c.ID {
			return p, core.Invalid("id", "duplicate wage id %s", c.ID)
		}
	}
	next := p.Clone()
	next.Wages = append(next.Wages, c)
	return next, nil
}

// EditWage replaces the sub-period id with c after re-running the checks
// with the old value excluded.
func (v *Validator) EditWage(p SubscriptionPeriod, id string, c WageSubPeriod) (SubscriptionPeriod, error) {
	idx := indexOf(p, id)
	if idx < 0 {
		return p, fmt.Errorf("wage %s: %w", id, core.ErrNotFound)
	}
	// an edit may not change the kind of the first sub-period out from
	// under its siblings
	if old := p.Wages[idx]; old.Kind != c.Kind && isFirst(p, old) && len(p.WagesOf(old.Kind)) > 1 {
		return p, core.Invalid("kind", "cannot change the kind of the first %s wage", old.Kind)
	}
	if err := v.validateWage(p, c, id); err != nil {
		return p, err
	}
	c.ID = id
	next := p.Clone()
	next.Wages[idx] = c
	return next, nil
}

// RemoveWage drops a sub-period. The first sub-period of a kind cannot be
// removed while later ones remain, since they would lose their anchor.
func (v *Validator) RemoveWage(p SubscriptionPeriod, id string) (SubscriptionPeriod, error) {
	idx := indexOf(p, id)
	if idx < 0 {
		return p, fmt.Errorf("wage %s: %w", id, core.ErrNotFound)
	}
	old := p.Wages[idx]
	if isFirst(p, old) && len(p.WagesOf(old.Kind)) > 1 {
		return p, core.Invalid("id", "remove the later %s wages before the first one", old.Kind)
	}
	next := p.Clone()
	next.Wages = append(next.Wages[:idx], next.Wages[idx+1:]...)
	return next, nil
}

// Replay adds the declared wages of p to an empty copy in start order, so
// wages read from files or request bodies pass the same checks as AddWage.
// The first rejected wage is returned with its id.
func (v *Validator) Replay(p SubscriptionPeriod) (SubscriptionPeriod, error) {
	declared := append([]WageSubPeriod(nil), p.Wages...)
	sort.SliceStable(declared, func(i, j int) bool { return declared[i].Start.Before(declared[j].Start) })
	rebuilt := p.Clone()
	rebuilt.Wages = nil
	for _, w := range declared {
		next, err := v.AddWage(rebuilt, w)
		if err != nil {
			return p, fmt.Errorf("wage %s: %w", w.ID, err)
		}
		rebuilt = next
	}
	return rebuilt, nil
}

func indexOf(p SubscriptionPeriod, id string) int {
	for i, w := range p.Wages {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func isFirst(p SubscriptionPeriod, w WageSubPeriod) bool {
	same := p.WagesOf(w.Kind)
	return len(same) > 0 && same[0].ID == w.ID
}
