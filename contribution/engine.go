package contribution

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
	"github.com/warp/contribution-engine/tables"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine calculates contributions against one immutable table set. It keeps
// no state between calls and is safe for concurrent use.
type Engine struct {
	Tables *tables.Set
	Log    zerolog.Logger

	now func() time.Time
}

func NewEngine(set *tables.Set, log zerolog.Logger) *Engine {
	return &Engine{Tables: set, Log: log, now: time.Now}
}

// Calculate prices every period and aggregates the successful ones. Periods
// are never modified.
func (e *Engine) Calculate(periods []subscription.SubscriptionPeriod, opts Options) *Calculation {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	calc := &Calculation{
		ID:         uuid.NewString(),
		CreatedAt:  now().UTC(),
		Results:    make([]PeriodResult, 0, len(periods)),
		GrandTotal: decimal.Zero,
	}

	ok := 0
	for _, p := range periods {
		var res PeriodResult
		if err, rejected := opts.Rejected[p.ID]; rejected && err != nil {
			res = e.fail(newResult(p), err)
		} else {
			res = e.CalculatePeriod(p, opts.confirmed(p.ID))
		}
		if res.OK() {
			ok++
			calc.GrandTotal = calc.GrandTotal.Add(res.Total)
		} else if errors.Is(res.Err, core.ErrConfirmationRequired) {
			calc.PendingConfirmation = append(calc.PendingConfirmation, p.ID)
		}
		calc.Results = append(calc.Results, res)
	}
	calc.Summary = Aggregate(calc.Results)

	if ok == 0 {
		calc.Err = core.ErrNoValidPeriods
		calc.Error = calc.Err.Error()
	}
	e.Log.Info().
		Str("calculation", calc.ID).
		Int("periods", len(periods)).
		Int("failed", len(periods)-ok).
		Str("grand_total", calc.GrandTotal.StringFixed(core.MoneyPlaces)).
		Msg("calculation finished")
	return calc
}

// CalculatePeriod prices one period. confirmed allows statutory-minimum
// synthesis for a mandatory wage kind without declared wages.
func (e *Engine) CalculatePeriod(p subscription.SubscriptionPeriod, confirmed bool) PeriodResult {
	res := newResult(p)

	if errs := subscription.NewValidator(e.Tables).ValidatePeriod(p); len(errs) > 0 {
		return e.fail(res, errors.Join(errs...))
	}

	var err error
	if p.Worker.Detailed() {
		res.Rows, res.Fallback, err = e.detailed(p, confirmed)
	} else {
		res.Rows, err = e.grouped(p)
	}
	if err != nil {
		return e.fail(res, err)
	}

	for _, r := range res.Rows {
		res.Total = res.Total.Add(r.TotalAmount)
	}
	e.Log.Debug().
		Str("period", p.ID).
		Str("mode", string(res.Mode)).
		Int("rows", len(res.Rows)).
		Str("total", res.Total.StringFixed(core.MoneyPlaces)).
		Msg("period calculated")
	return res
}

func newResult(p subscription.SubscriptionPeriod) PeriodResult {
	return PeriodResult{
		PeriodID:     p.ID,
		CategoryCode: p.CategoryCode,
		Worker:       p.Worker,
		Mode:         core.DisplayModeFor(p.Worker),
		Rows:         []BreakdownRow{},
		Total:        decimal.Zero,
	}
}

func (e *Engine) fail(res PeriodResult, err error) PeriodResult {
	e.Log.Warn().Err(err).Str("period", res.PeriodID).Msg("period not calculated")
	res.Rows = []BreakdownRow{}
	res.Total = decimal.Zero
	res.Err = err
	res.Error = err.Error()
	return res
}

// =============================================================================
// DETAILED MODE
// =============================================================================

func (e *Engine) detailed(p subscription.SubscriptionPeriod, confirmed bool) ([]BreakdownRow, []core.WageKind, error) {
	regime := p.Window().Start
	post := regime.IsPostCutover()
	kinds := p.Worker.WageKinds(regime)
	mandatory, _ := p.Worker.MandatoryWageKind(regime)

	wages := subscription.NewWageResolver(p)
	var fallback []core.WageKind
	if !wages.Has(mandatory) {
		if !confirmed {
			return nil, nil, &core.ConfirmationRequiredError{PeriodID: p.ID, WageKinds: []string{string(mandatory)}}
		}
		synthetic := subscription.SynthesizeFallback(p, mandatory, e.Tables.Limits(mandatory))
		if len(synthetic) == 0 {
			return nil, nil, &core.LookupMissError{
				Table: tables.LimitsKey(mandatory),
				Key:   "minimum wage",
				At:    regime,
			}
		}
		wages.WithFallback(mandatory, synthetic)
		fallback = append(fallback, mandatory)
	}

	var rows []BreakdownRow
	for _, ins := range p.Insurance.Selected() {
		for _, kind := range kinds {
			if !wages.Has(kind) {
				continue
			}
			window, ok := clipWindow(p.KindWindow(kind), ins, kind)
			if !ok {
				continue
			}

			rates, err := e.Tables.Rate(p.CategoryCode, ins, kind)
			if err != nil {
				return nil, nil, err
			}
			if rates.IsZero() {
				continue
			}
			if p.Worker == core.WorkerStandard {
				rates = applyReductions(rates, e.Tables.Reductions(post), p.Reductions, ins)
			}
			if p.Worker == core.WorkerBusinessOwner {
				rates = tables.RatePair{Employee: decimal.Zero, Employer: rates.Total()}
			}

			walked := walk(wages, window, kind, rates)
			for i := range walked {
				walked[i].Label = fmt.Sprintf("%s/%s", ins, kind)
				walked[i].Insurance = ins
				walked[i].Synthetic = contains(fallback, kind)
			}
			rows = append(rows, walked...)
		}
	}
	return rows, fallback, nil
}

// clipWindow applies the 1984-04-01 floor to bonus contributions and to
// variable wages.
func clipWindow(window core.Period, ins core.InsuranceType, kind core.WageKind) (core.Period, bool) {
	if window.End.Before(window.Start) {
		return core.Period{}, false
	}
	if ins == core.InsuranceBonus || kind == core.WageVariable {
		return window.ClipStart(core.VariableWageFloor)
	}
	return window, true
}

// applyReductions subtracts the enabled reductions for ins from the employer
// rate, then the remainder from the employee rate. Neither goes below zero.
func applyReductions(rates tables.RatePair, rows []tables.Reduction, sel subscription.ReductionSelection, ins core.InsuranceType) tables.RatePair {
	pct := decimal.Zero
	for _, r := range rows {
		if r.Insurance == ins && sel.Enabled(r.Kind) {
			pct = pct.Add(r.Percent)
		}
	}
	if !pct.IsPositive() {
		return rates
	}
	employer := rates.Employer.Sub(pct)
	remainder := decimal.Zero
	if employer.IsNegative() {
		remainder = employer.Neg()
	}
	return tables.RatePair{
		Employee: core.ClampZero(rates.Employee.Sub(remainder)),
		Employer: core.ClampZero(employer),
	}
}

// walk merges contiguous months with the same positive wage into rows. A
// month without a wage closes the open row.
func walk(wages *subscription.WageResolver, window core.Period, kind core.WageKind, rates tables.RatePair) []BreakdownRow {
	var rows []BreakdownRow
	var open *BreakdownRow
	flush := func() {
		if open == nil {
			return
		}
		rows = append(rows, finishDetailed(*open))
		open = nil
	}

	for _, m := range window.Months() {
		wage, ok := wages.WageFor(m, kind)
		if !ok || !wage.IsPositive() {
			flush()
			continue
		}
		if open != nil && open.MonthlyWage.Equal(wage) &&
			open.EmployeeRate.Equal(rates.Employee) && open.EmployerRate.Equal(rates.Employer) {
			open.Months++
			open.Period.End = m.EndOfMonth()
			continue
		}
		flush()
		open = &BreakdownRow{
			WageKind:     kind,
			Period:       core.Period{Start: core.MaxDate(m, window.Start), End: m.EndOfMonth()},
			Months:       1,
			MonthlyWage:  wage,
			EmployeeRate: rates.Employee,
			EmployerRate: rates.Employer,
		}
	}
	flush()
	return rows
}

func finishDetailed(r BreakdownRow) BreakdownRow {
	r.TotalWage = core.Money(r.MonthlyWage.Mul(decimal.NewFromInt(int64(r.Months))))
	r.EmployeeAmount = core.ApplyRate(r.TotalWage, r.EmployeeRate)
	r.EmployerAmount = core.ApplyRate(r.TotalWage, r.EmployerRate)
	r.MonthlyContribution = core.ApplyRate(r.MonthlyWage, r.EmployeeRate.Add(r.EmployerRate))
	r.TotalAmount = r.EmployeeAmount.Add(r.EmployerAmount)
	return r
}

func contains(kinds []core.WageKind, k core.WageKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}
