package contribution_test

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
	"github.com/warp/contribution-engine/tables"
	"github.com/warp/contribution-engine/tables/tablestest"
)

func newEngine(t *testing.T) *contribution.Engine {
	return contribution.NewEngine(tablestest.Set(t), zerolog.Nop())
}

func period(id, code string, worker core.WorkerCategory, start, end core.Date) subscription.SubscriptionPeriod {
	return subscription.NewPeriod(id, code, worker, start, end)
}

func basic(id string, start core.Date, amount string) subscription.WageSubPeriod {
	return subscription.WageSubPeriod{ID: id, Kind: core.WageBasic, Start: start, Amount: core.MustDecimal(amount)}
}

func pensionOnly() subscription.InsuranceSelection {
	return subscription.InsuranceSelection{Pension: true}
}

func assertMoney(t *testing.T, want string, got interface{ StringFixed(int32) string }, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(core.MoneyPlaces), msgAndArgs...)
}

func rowsFor(rows []contribution.BreakdownRow, ins core.InsuranceType) []contribution.BreakdownRow {
	var out []contribution.BreakdownRow
	for _, r := range rows {
		if r.Insurance == ins {
			out = append(out, r)
		}
	}
	return out
}

func monthsOf(rows []contribution.BreakdownRow) int {
	n := 0
	for _, r := range rows {
		n += r.Months
	}
	return n
}

// =============================================================================
// DETAILED MODE
// =============================================================================

func TestCalculatePeriod_PrivateSectorTwoYears(t *testing.T) {
	// GIVEN: Category 3 for 2018-2019 at a constant basic wage of 1000
	e := newEngine(t)
	p := period("a", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2019, time.December))
	p.Insurance = pensionOnly()
	p.Wages = []subscription.WageSubPeriod{basic("w1", p.Start, "1000")}

	// WHEN: Calculating
	res := e.CalculatePeriod(p, false)

	// THEN: One 24-month pension row at 11/15
	require.True(t, res.OK(), res.Error)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "pension/basic", row.Label)
	assert.Equal(t, 24, row.Months)
	assertMoney(t, "24000.00", row.TotalWage)
	assertMoney(t, "2640.00", row.EmployeeAmount)
	assertMoney(t, "3600.00", row.EmployerAmount)
	assertMoney(t, "6240.00", row.TotalAmount)
	assertMoney(t, "260.00", row.MonthlyContribution)
	assertMoney(t, "6240.00", res.Total)
	assert.Equal(t, core.DisplayDetailed, res.Mode)
	assert.Equal(t, p.Window(), row.Period)
}

func TestCalculatePeriod_EveryInsuranceCoversTheWindow(t *testing.T) {
	// GIVEN: All branches selected; sickness rates are zero
	e := newEngine(t)
	p := period("a", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2019, time.December))
	p.Wages = []subscription.WageSubPeriod{
		basic("w1", p.Start, "1000"),
		basic("w2", core.MonthStart(2019, time.January), "1200"),
	}

	res := e.CalculatePeriod(p, false)

	// THEN: Sickness produces no row, every other branch spans 24 months
	require.True(t, res.OK(), res.Error)
	assert.Empty(t, rowsFor(res.Rows, core.InsuranceSickness))
	for _, ins := range []core.InsuranceType{core.InsurancePension, core.InsuranceBonus, core.InsuranceUnemployment, core.InsuranceInjury} {
		rows := rowsFor(res.Rows, ins)
		assert.Len(t, rows, 2, "%s splits at the wage change", ins)
		assert.Equal(t, 24, monthsOf(rows), "%s", ins)
	}
	// pension 3120+3744, bonus 480+576, unemployment 360+432, injury 120+144
	assertMoney(t, "8976.00", res.Total)
}

func TestCalculatePeriod_GapMonthsCloseTheRow(t *testing.T) {
	e := newEngine(t)
	p := period("g", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2018, time.December))
	p.Insurance = pensionOnly()
	first := basic("w1", p.Start, "1000")
	first.End = core.MonthStart(2018, time.March)
	p.Wages = []subscription.WageSubPeriod{first, basic("w2", core.MonthStart(2018, time.July), "1000")}

	res := e.CalculatePeriod(p, false)

	require.True(t, res.OK(), res.Error)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 3, res.Rows[0].Months)
	assert.Equal(t, core.NewDate(2018, time.March, 31), res.Rows[0].Period.End)
	assert.Equal(t, 6, res.Rows[1].Months)
	assert.Equal(t, core.MonthStart(2018, time.July), res.Rows[1].Period.Start)
}

func TestCalculatePeriod_ReductionsNeverGoNegative(t *testing.T) {
	// GIVEN: new_hire (5) and small_enterprise (12) on pension, disabled (3) on injury
	e := newEngine(t)
	p := period("r", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2018, time.December))
	p.Insurance = subscription.InsuranceSelection{Pension: true, Injury: true}
	p.Reductions = subscription.ReductionSelection{NewHire: true, SmallEnterprise: true, DisabledEmployee: true}
	p.Wages = []subscription.WageSubPeriod{basic("w1", p.Start, "1000")}

	res := e.CalculatePeriod(p, false)
	require.True(t, res.OK(), res.Error)

	// THEN: Pension 15 employer absorbs 15 of 17, employee 11 drops to 9
	pension := rowsFor(res.Rows, core.InsurancePension)
	require.Len(t, pension, 1)
	assert.True(t, pension[0].EmployerRate.IsZero())
	assert.True(t, pension[0].EmployeeRate.Equal(core.MustDecimal("9")))
	assertMoney(t, "1080.00", pension[0].EmployeeAmount)
	assertMoney(t, "0.00", pension[0].EmployerAmount)

	// AND: Injury 0/1 minus 3 floors at zero on both sides
	injury := rowsFor(res.Rows, core.InsuranceInjury)
	require.Len(t, injury, 1)
	assert.True(t, injury[0].EmployeeRate.IsZero())
	assert.True(t, injury[0].EmployerRate.IsZero())
	assertMoney(t, "0.00", injury[0].TotalAmount)
}

func TestCalculatePeriod_BusinessOwnerPaysCombinedRate(t *testing.T) {
	// GIVEN: A business owner claiming a reduction
	e := newEngine(t)
	p := period("o", "3", core.WorkerBusinessOwner, core.MonthStart(2018, time.January), core.MonthStart(2018, time.December))
	p.Insurance = pensionOnly()
	p.Reductions = subscription.ReductionSelection{NewHire: true}
	p.Wages = []subscription.WageSubPeriod{basic("w1", p.Start, "1000")}

	res := e.CalculatePeriod(p, false)

	// THEN: 11+15 on the employer side, reductions ignored
	require.True(t, res.OK(), res.Error)
	require.Len(t, res.Rows, 1)
	assert.True(t, res.Rows[0].EmployeeRate.IsZero())
	assert.True(t, res.Rows[0].EmployerRate.Equal(core.MustDecimal("26")))
	assertMoney(t, "3120.00", res.Rows[0].EmployerAmount)
	assertMoney(t, "0.00", res.Rows[0].EmployeeAmount)
}

func TestCalculatePeriod_BonusAndVariableStartAtFloor(t *testing.T) {
	// GIVEN: 1984 with basic and variable wages, pension and bonus selected
	e := newEngine(t)
	p := period("f", "3", core.WorkerStandard, core.MonthStart(1984, time.January), core.MonthStart(1984, time.December))
	p.Insurance = subscription.InsuranceSelection{Pension: true, Bonus: true}
	p.Wages = []subscription.WageSubPeriod{
		basic("b", p.Start, "1000"),
		{ID: "v", Kind: core.WageVariable, Start: core.VariableWageFloor, Amount: core.MustDecimal("300")},
	}

	res := e.CalculatePeriod(p, false)
	require.True(t, res.OK(), res.Error)

	// THEN: Pension on basic keeps all 12 months
	var pensionBasic, bonusBasic, pensionVariable *contribution.BreakdownRow
	for i := range res.Rows {
		r := &res.Rows[i]
		switch r.Label {
		case "pension/basic":
			pensionBasic = r
		case "bonus/basic":
			bonusBasic = r
		case "pension/variable":
			pensionVariable = r
		}
	}
	require.NotNil(t, pensionBasic)
	assert.Equal(t, 12, pensionBasic.Months)

	// AND: Bonus and variable rows begin on 1984-04-01
	require.NotNil(t, bonusBasic)
	assert.Equal(t, 9, bonusBasic.Months)
	assert.Equal(t, core.VariableWageFloor, bonusBasic.Period.Start)
	require.NotNil(t, pensionVariable)
	assert.Equal(t, 9, pensionVariable.Months)
	assert.Equal(t, core.VariableWageFloor, pensionVariable.Period.Start)
}

func TestCalculatePeriod_NoBonusBeforeFloor(t *testing.T) {
	e := newEngine(t)
	p := period("f", "3", core.WorkerStandard, core.MonthStart(1983, time.January), core.MonthStart(1984, time.March))
	p.Insurance = subscription.InsuranceSelection{Pension: true, Bonus: true}
	p.Wages = []subscription.WageSubPeriod{basic("b", p.Start, "1000")}

	res := e.CalculatePeriod(p, false)

	require.True(t, res.OK(), res.Error)
	assert.Empty(t, rowsFor(res.Rows, core.InsuranceBonus))
	assert.Equal(t, 15, monthsOf(rowsFor(res.Rows, core.InsurancePension)))
}

// =============================================================================
// FALLBACK
// =============================================================================

func TestCalculatePeriod_MissingWageNeedsConfirmation(t *testing.T) {
	e := newEngine(t)
	p := period("gov", "1", core.WorkerStandard, core.MonthStart(2021, time.January), core.MonthStart(2021, time.December))

	res := e.CalculatePeriod(p, false)

	var cr *core.ConfirmationRequiredError
	require.True(t, errors.As(res.Err, &cr))
	assert.Equal(t, "gov", cr.PeriodID)
	assert.Equal(t, []string{"unified"}, cr.WageKinds)
	assert.Empty(t, res.Rows)
	assert.True(t, res.Total.IsZero())
}

func TestCalculatePeriod_ConfirmedFallbackUsesMinimum(t *testing.T) {
	// GIVEN: Government 2021 with no declared wage; unified minimum is 1500
	e := newEngine(t)
	p := period("gov", "1", core.WorkerStandard, core.MonthStart(2021, time.January), core.MonthStart(2021, time.December))

	// WHEN: The caller confirmed the fallback
	res := e.CalculatePeriod(p, true)

	// THEN: Every row runs 12 months at 1500 and is marked synthetic
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, []core.WageKind{core.WageUnified}, res.Fallback)
	require.Len(t, res.Rows, 2)
	for _, r := range res.Rows {
		assert.True(t, r.Synthetic)
		assert.Equal(t, 12, r.Months)
		assertMoney(t, "1500.00", r.MonthlyWage)
	}
	assertMoney(t, "4860.00", res.Total)
	assert.Empty(t, p.Wages, "input period untouched")
}

func TestCalculatePeriod_FallbackWithoutMinimum(t *testing.T) {
	raw := tablestest.Raw()
	delete(raw, "limits_unified")
	set, err := tables.Resolve(raw)
	require.NoError(t, err)
	e := contribution.NewEngine(set, zerolog.Nop())
	p := period("gov", "1", core.WorkerStandard, core.MonthStart(2021, time.January), core.MonthStart(2021, time.December))

	res := e.CalculatePeriod(p, true)

	var miss *core.LookupMissError
	require.True(t, errors.As(res.Err, &miss))
	assert.Equal(t, "limits_unified", miss.Table)
}

// =============================================================================
// GROUPED MODE
// =============================================================================

func TestCalculatePeriod_TransportAcrossCutover(t *testing.T) {
	// GIVEN: Transport grade 2 from mid-2019 to mid-2020
	e := newEngine(t)
	p := period("t", "7", core.WorkerTransport, core.MonthStart(2019, time.July), core.MonthStart(2020, time.June))
	p.Grade = 2

	res := e.CalculatePeriod(p, false)

	// THEN: One row per regime, priced from each regime's table
	require.True(t, res.OK(), res.Error)
	assert.Equal(t, core.DisplayGrouped, res.Mode)
	require.Len(t, res.Rows, 2)

	pre, post := res.Rows[0], res.Rows[1]
	assert.Equal(t, "transport/grade 2", pre.Label)
	assert.Equal(t, 6, pre.Months)
	assert.Equal(t, core.NewDate(2019, time.December, 31), pre.Period.End)
	assertMoney(t, "6600.00", pre.TotalWage)
	assertMoney(t, "1500.00", pre.TotalAmount)
	assert.True(t, pre.EmployeeAmount.IsZero())
	assert.True(t, pre.EmployerRate.IsZero())

	assert.Equal(t, core.RegimeCutover, post.Period.Start)
	assertMoney(t, "1680.00", post.TotalAmount)
	assertMoney(t, "3180.00", res.Total)
}

func TestCalculatePeriod_IrregularUsesFlatTable(t *testing.T) {
	e := newEngine(t)
	p := period("i", "9", core.WorkerIrregular, core.MonthStart(2019, time.November), core.MonthStart(2020, time.February))

	res := e.CalculatePeriod(p, false)

	require.True(t, res.OK(), res.Error)
	assert.Equal(t, core.DisplayDetailedGrouped, res.Mode)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "irregular", res.Rows[0].Label)
	assertMoney(t, "240.00", res.Rows[0].TotalAmount)
	assertMoney(t, "300.00", res.Rows[1].TotalAmount)
}

func TestCalculatePeriod_GroupedLookupMisses(t *testing.T) {
	e := newEngine(t)

	construction := period("c", "8", core.WorkerConstruction, core.MonthStart(2015, time.January), core.MonthStart(2015, time.June))
	construction.Grade = 1
	res := e.CalculatePeriod(construction, false)
	var miss *core.LookupMissError
	require.True(t, errors.As(res.Err, &miss))
	assert.Equal(t, "grouped_construction_pre", miss.Table)

	transport := period("t", "7", core.WorkerTransport, core.MonthStart(2015, time.January), core.MonthStart(2015, time.June))
	transport.Grade = 3
	res = e.CalculatePeriod(transport, false)
	require.True(t, errors.As(res.Err, &miss))
	assert.Equal(t, "grade 3", miss.Key)

	early := period("t", "7", core.WorkerTransport, core.MonthStart(2009, time.January), core.MonthStart(2009, time.June))
	early.Grade = 1
	res = e.CalculatePeriod(early, false)
	require.True(t, errors.As(res.Err, &miss))
	assert.Equal(t, "row", miss.Key)
}

// =============================================================================
// CALCULATE
// =============================================================================

func TestCalculate_FailuresAreIsolated(t *testing.T) {
	// GIVEN: One good period, one crossing the cutover, one unknown category
	e := newEngine(t)
	good := period("good", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2019, time.December))
	good.Insurance = pensionOnly()
	good.Wages = []subscription.WageSubPeriod{basic("w1", good.Start, "1000")}
	crossing := period("crossing", "3", core.WorkerStandard, core.MonthStart(2019, time.June), core.MonthStart(2020, time.June))
	unknown := period("unknown", "42", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2018, time.June))
	unknown.Wages = []subscription.WageSubPeriod{basic("w1", unknown.Start, "1000")}

	calc := e.Calculate([]subscription.SubscriptionPeriod{good, crossing, unknown}, contribution.Options{})

	// THEN: The good period is priced, the others carry their errors
	require.NoError(t, calc.Err)
	require.Len(t, calc.Results, 3)
	assert.NotEmpty(t, calc.ID)
	assert.True(t, calc.Results[0].OK())
	assert.True(t, errors.Is(calc.Results[1].Err, core.ErrRegimeCrossing))
	assert.True(t, errors.Is(calc.Results[2].Err, core.ErrLookupMiss))
	assert.Equal(t, 2, calc.Failed())
	assertMoney(t, "6240.00", calc.GrandTotal)
	assertMoney(t, "6240.00", calc.Summary.GrandTotal)
	assert.Empty(t, calc.PendingConfirmation)
}

func TestCalculate_NoValidPeriods(t *testing.T) {
	e := newEngine(t)

	calc := e.Calculate(nil, contribution.Options{})
	assert.True(t, errors.Is(calc.Err, core.ErrNoValidPeriods))
	assert.NotNil(t, calc.Results)

	gov := period("gov", "1", core.WorkerStandard, core.MonthStart(2021, time.January), core.MonthStart(2021, time.December))
	calc = e.Calculate([]subscription.SubscriptionPeriod{gov}, contribution.Options{})
	assert.True(t, errors.Is(calc.Err, core.ErrNoValidPeriods))
	assert.Equal(t, []string{"gov"}, calc.PendingConfirmation)
	assert.NotEmpty(t, calc.Error)
}

func TestCalculate_RejectedPeriodFailsAlone(t *testing.T) {
	// GIVEN: Two valid periods, one flagged with an error found upstream
	e := newEngine(t)
	a := period("a", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2018, time.December))
	a.Insurance = pensionOnly()
	a.Wages = []subscription.WageSubPeriod{basic("w1", a.Start, "1000")}
	b := a.Clone()
	b.ID = "b"
	rejected := core.Invalid("amount", "wage too low")

	// WHEN: Calculating
	calc := e.Calculate([]subscription.SubscriptionPeriod{a, b}, contribution.Options{
		Rejected: map[string]error{"a": rejected},
	})

	// THEN: Only the flagged period fails, with that error
	require.NoError(t, calc.Err)
	require.Len(t, calc.Results, 2)
	assert.ErrorIs(t, calc.Results[0].Err, rejected)
	assert.Empty(t, calc.Results[0].Rows)
	assert.True(t, calc.Results[1].OK())
	assertMoney(t, "3120.00", calc.GrandTotal)
}

func TestCalculate_ConfirmPerPeriod(t *testing.T) {
	e := newEngine(t)
	a := period("a", "1", core.WorkerStandard, core.MonthStart(2021, time.January), core.MonthStart(2021, time.December))
	b := period("b", "1", core.WorkerStandard, core.MonthStart(2021, time.January), core.MonthStart(2021, time.June))

	calc := e.Calculate([]subscription.SubscriptionPeriod{a, b}, contribution.Options{ConfirmPeriods: []string{"a"}})

	require.NoError(t, calc.Err)
	assert.True(t, calc.Results[0].OK())
	assert.Equal(t, []string{"b"}, calc.PendingConfirmation)
}

func TestCalculate_IsDeterministic(t *testing.T) {
	e := newEngine(t)
	p := period("a", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2019, time.December))
	p.Wages = []subscription.WageSubPeriod{basic("w1", p.Start, "1000")}
	tr := period("t", "7", core.WorkerTransport, core.MonthStart(2019, time.July), core.MonthStart(2020, time.June))
	tr.Grade = 1
	periods := []subscription.SubscriptionPeriod{p, tr}

	first := e.Calculate(periods, contribution.Options{})
	second := e.Calculate(periods, contribution.Options{})

	a, err := json.Marshal(struct {
		R []contribution.PeriodResult
		S contribution.Summary
	}{first.Results, first.Summary})
	require.NoError(t, err)
	b, err := json.Marshal(struct {
		R []contribution.PeriodResult
		S contribution.Summary
	}{second.Results, second.Summary})
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.NotEqual(t, first.ID, second.ID)
}
