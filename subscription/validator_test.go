package subscription_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
	"github.com/warp/contribution-engine/tables/tablestest"
)

func standardPeriod(start, end core.Date) subscription.SubscriptionPeriod {
	return subscription.NewPeriod("p1", "3", core.WorkerStandard, start, end)
}

func wage(id string, kind core.WageKind, start core.Date, amount string) subscription.WageSubPeriod {
	return subscription.WageSubPeriod{ID: id, Kind: kind, Start: start, Amount: core.MustDecimal(amount)}
}

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	assert.Equal(t, field, ve.Field)
}

// =============================================================================
// WAGE CHECKS
// =============================================================================

func TestValidateWage_BelowMinimumIsRejectedWithOverlap(t *testing.T) {
	// GIVEN: A 2016 period; basic minimum is 800 from 2015 on
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2016, time.January), core.MonthStart(2016, time.June))

	// WHEN: Adding a basic wage of 500
	next, err := v.AddWage(p, wage("w1", core.WageBasic, core.MonthStart(2016, time.January), "500"))

	// THEN: The violation cites the amount, the bound and the overlap
	var bv *core.BoundViolationError
	require.True(t, errors.As(err, &bv))
	assert.Equal(t, "basic", bv.WageKind)
	assert.True(t, bv.Amount.Equal(core.MustDecimal("500")))
	assert.Equal(t, core.BoundMin, bv.Kind)
	assert.True(t, bv.Bound.Equal(core.MustDecimal("800")))
	assert.Equal(t, core.MonthStart(2016, time.January), bv.Overlap.Start)
	assert.Equal(t, core.NewDate(2016, time.June, 30), bv.Overlap.End)

	// AND: The period is unchanged
	assert.Empty(t, next.Wages)
	assert.Empty(t, p.Wages)
}

func TestValidateWage_BoundsCheckedAcrossEveryOverlappingRange(t *testing.T) {
	// GIVEN: A period straddling the 2015 change of basic minimum (100 -> 800)
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2014, time.July), core.MonthStart(2015, time.June))

	// WHEN: 500 is fine in 2014 but not in 2015
	err := v.ValidateWage(p, wage("w1", core.WageBasic, core.MonthStart(2014, time.July), "500"))

	// THEN: The overlap is the 2015 part only
	var bv *core.BoundViolationError
	require.True(t, errors.As(err, &bv))
	assert.Equal(t, core.MonthStart(2015, time.January), bv.Overlap.Start)
	assert.Equal(t, core.NewDate(2015, time.June, 30), bv.Overlap.End)
}

func TestValidateWage_OpenEndedStopsAtNextSibling(t *testing.T) {
	// GIVEN: A later basic wage already starting in 2015
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2014, time.January), core.MonthStart(2015, time.December))
	p.Wages = []subscription.WageSubPeriod{wage("later", core.WageBasic, core.MonthStart(2015, time.January), "900")}

	// WHEN: An open-ended first wage of 500 only runs through 2014
	err := v.ValidateWage(p, wage("first", core.WageBasic, core.MonthStart(2014, time.January), "500"))

	// THEN: It never touches the 800 minimum
	assert.NoError(t, err)
}

func TestValidateWage_AboveMaximum(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2016, time.January), core.MonthStart(2016, time.December))

	err := v.ValidateWage(p, wage("w1", core.WageBasic, core.MonthStart(2016, time.January), "10000.01"))

	var bv *core.BoundViolationError
	require.True(t, errors.As(err, &bv))
	assert.Equal(t, core.BoundMax, bv.Kind)
}

func TestValidateWage_Presence(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2016, time.January), core.MonthStart(2016, time.December))

	requireField(t, v.ValidateWage(p, wage("w", core.WageBasic, core.Date{}, "1000")), "start")
	requireField(t, v.ValidateWage(p, wage("w", core.WageBasic, core.MonthStart(2016, time.January), "0")), "amount")
	requireField(t, v.ValidateWage(p, wage("w", core.WageUnified, core.MonthStart(2016, time.January), "1000")), "kind")
}

func TestValidateWage_FirstWageMustStartOnAnchor(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2016, time.January), core.MonthStart(2016, time.December))

	err := v.ValidateWage(p, wage("w", core.WageBasic, core.MonthStart(2016, time.March), "1000"))
	requireField(t, err, "start")
	assert.Contains(t, err.Error(), "2016-01-01")

	// mid-month start is read as its month
	assert.NoError(t, v.ValidateWage(p, wage("w", core.WageBasic, core.NewDate(2016, time.January, 15), "1000")))
}

func TestValidateWage_LaterWagesNeedDistinctStartInsidePeriod(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2016, time.January), core.MonthStart(2016, time.December))
	p.Wages = []subscription.WageSubPeriod{wage("first", core.WageBasic, core.MonthStart(2016, time.January), "1000")}

	requireField(t, v.ValidateWage(p, wage("dup", core.WageBasic, core.NewDate(2016, time.January, 20), "1100")), "start")
	late := wage("late", core.WageBasic, core.MonthStart(2016, time.November), "1100")
	late.End = core.MonthStart(2017, time.March)
	requireField(t, v.ValidateWage(p, late), "start")

	ended := wage("ended", core.WageBasic, core.MonthStart(2016, time.June), "1100")
	ended.End = core.MonthStart(2016, time.May)
	requireField(t, v.ValidateWage(p, ended), "end")

	assert.NoError(t, v.ValidateWage(p, wage("ok", core.WageBasic, core.MonthStart(2016, time.June), "1100")))
}

func TestValidateWage_VariableAnchorDefaultsToFloor(t *testing.T) {
	// GIVEN: A period starting before variable wages existed
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(1983, time.January), core.MonthStart(1985, time.December))

	// THEN: The first variable wage anchors on 1984-04
	requireField(t, v.ValidateWage(p, wage("v", core.WageVariable, core.MonthStart(1983, time.January), "300")), "start")
	assert.NoError(t, v.ValidateWage(p, wage("v", core.WageVariable, core.MonthStart(1984, time.April), "300")))
}

func TestValidateWage_VariableFloor(t *testing.T) {
	// GIVEN: A declared variable start before the floor
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(1983, time.January), core.MonthStart(1985, time.December))
	p.VariableStart = core.MonthStart(1983, time.June)

	// WHEN: The wage starts on the declared anchor
	err := v.ValidateWage(p, wage("v", core.WageVariable, core.MonthStart(1983, time.June), "300"))

	// THEN: The floor rejects it
	requireField(t, err, "start")
	assert.Contains(t, err.Error(), "1984-04-01")
}

func TestValidateWage_NoTablesMeansNoBounds(t *testing.T) {
	v := subscription.NewValidator(nil)
	p := standardPeriod(core.MonthStart(2016, time.January), core.MonthStart(2016, time.December))

	assert.NoError(t, v.ValidateWage(p, wage("w", core.WageBasic, core.MonthStart(2016, time.January), "1")))
}

// =============================================================================
// PERIOD CHECKS
// =============================================================================

func TestValidatePeriod_Ready(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))
	p := standardPeriod(core.MonthStart(2018, time.January), core.MonthStart(2019, time.December))

	assert.Empty(t, v.ValidatePeriod(p))
}

func TestValidatePeriod_RegimeCrossing(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))

	errs := v.ValidatePeriod(standardPeriod(core.MonthStart(2019, time.June), core.MonthStart(2020, time.March)))
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], core.ErrRegimeCrossing))

	// grouped categories may cross
	transport := subscription.NewPeriod("t", "7", core.WorkerTransport, core.MonthStart(2019, time.June), core.MonthStart(2020, time.March))
	transport.Grade = 1
	assert.Empty(t, v.ValidatePeriod(transport))
}

func TestValidatePeriod_CollectsEveryProblem(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))

	p := subscription.NewPeriod("x", "", core.WorkerCategory("pilot"), core.Date{}, core.Date{})
	errs := v.ValidatePeriod(p)
	assert.Len(t, errs, 4)

	p = standardPeriod(core.MonthStart(2018, time.January), core.MonthStart(2018, time.December))
	p.Insurance = subscription.InsuranceSelection{}
	p.VariableStart = core.MonthStart(2017, time.January)
	errs = v.ValidatePeriod(p)
	require.Len(t, errs, 2)
	requireField(t, errs[0], "insurance")
	requireField(t, errs[1], "variable_start")
}

func TestValidatePeriod_GradeAndOrder(t *testing.T) {
	v := subscription.NewValidator(tablestest.Set(t))

	transport := subscription.NewPeriod("t", "7", core.WorkerTransport, core.MonthStart(2015, time.January), core.MonthStart(2015, time.June))
	errs := v.ValidatePeriod(transport)
	require.Len(t, errs, 1)
	requireField(t, errs[0], "grade")

	backwards := standardPeriod(core.MonthStart(2015, time.June), core.MonthStart(2015, time.January))
	errs = v.ValidatePeriod(backwards)
	require.Len(t, errs, 1)
	requireField(t, errs[0], "end")
}
