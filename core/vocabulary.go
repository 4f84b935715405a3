package core

import "fmt"

// =============================================================================
// WAGE KIND - Which statutory wage concept a sub-period represents
// =============================================================================

type WageKind string

const (
	WageBasic    WageKind = "basic"    // pre-cutover
	WageVariable WageKind = "variable" // pre-cutover, not before 1984-04-01
	WageUnified  WageKind = "unified"  // post-cutover, standard employment
	WageIncome   WageKind = "income"   // post-cutover, business owners / abroad
)

var wageKinds = []WageKind{WageBasic, WageVariable, WageUnified, WageIncome}

func (k WageKind) Valid() bool {
	for _, w := range wageKinds {
		if w == k {
			return true
		}
	}
	return false
}

// PostCutover reports whether the kind belongs to the post-2020 regime.
func (k WageKind) PostCutover() bool { return k == WageUnified || k == WageIncome }

func ParseWageKind(s string) (WageKind, error) {
	k := WageKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown wage kind %q", s)
	}
	return k, nil
}

// =============================================================================
// INSURANCE TYPE - The five insurance branches a contribution funds
// =============================================================================

type InsuranceType string

const (
	InsurancePension      InsuranceType = "pension"
	InsuranceBonus        InsuranceType = "bonus" // end-of-service bonus
	InsuranceSickness     InsuranceType = "sickness"
	InsuranceUnemployment InsuranceType = "unemployment"
	InsuranceInjury       InsuranceType = "injury"
)

// InsuranceTypes lists every branch in reporting order.
var InsuranceTypes = []InsuranceType{
	InsurancePension, InsuranceBonus, InsuranceSickness, InsuranceUnemployment, InsuranceInjury,
}

func ParseInsuranceType(s string) (InsuranceType, error) {
	for _, t := range InsuranceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown insurance type %q", s)
}

// =============================================================================
// REDUCTION KIND - Statutory discounts for standard employment
// =============================================================================

type ReductionKind string

const (
	ReductionNewHire           ReductionKind = "new_hire"
	ReductionDisabledEmployee  ReductionKind = "disabled_employee"
	ReductionSmallEnterprise   ReductionKind = "small_enterprise"
	ReductionDevelopmentRegion ReductionKind = "development_region"
)

var ReductionKinds = []ReductionKind{
	ReductionNewHire, ReductionDisabledEmployee, ReductionSmallEnterprise, ReductionDevelopmentRegion,
}

func ParseReductionKind(s string) (ReductionKind, error) {
	for _, r := range ReductionKinds {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown reduction %q", s)
}

// =============================================================================
// WORKER CATEGORY - Legal classification selecting tables and mode
// =============================================================================

type WorkerCategory string

const (
	WorkerStandard      WorkerCategory = "standard"
	WorkerBusinessOwner WorkerCategory = "business_owner" // includes employment abroad
	WorkerTransport     WorkerCategory = "transport"
	WorkerConstruction  WorkerCategory = "construction"
	WorkerIrregular     WorkerCategory = "irregular"
)

func (c WorkerCategory) Valid() bool {
	switch c {
	case WorkerStandard, WorkerBusinessOwner, WorkerTransport, WorkerConstruction, WorkerIrregular:
		return true
	}
	return false
}

// Detailed reports whether the category is calculated month by month from
// declared wages and rate tables (as opposed to grouped tables).
func (c WorkerCategory) Detailed() bool {
	return c == WorkerStandard || c == WorkerBusinessOwner
}

// Graded reports whether grouped lookups select a column by grade.
func (c WorkerCategory) Graded() bool {
	return c == WorkerTransport || c == WorkerConstruction
}

// SplitsAtCutover reports whether periods of this category may not span
// the regime cutover.
func (c WorkerCategory) SplitsAtCutover() bool { return c.Detailed() }

// WageKinds returns the wage kinds applicable under the regime of date at.
// Business owners fold their pre-cutover income into the basic kind.
func (c WorkerCategory) WageKinds(at Date) []WageKind {
	if !c.Detailed() {
		return nil
	}
	if at.IsPostCutover() {
		if c == WorkerBusinessOwner {
			return []WageKind{WageIncome}
		}
		return []WageKind{WageUnified}
	}
	if c == WorkerBusinessOwner {
		return []WageKind{WageBasic}
	}
	return []WageKind{WageBasic, WageVariable}
}

// MandatoryWageKind is the kind that must be declared (or synthesized at the
// statutory minimum) for a detailed period in the regime of at.
func (c WorkerCategory) MandatoryWageKind(at Date) (WageKind, bool) {
	kinds := c.WageKinds(at)
	if len(kinds) == 0 {
		return "", false
	}
	return kinds[0], true
}

// =============================================================================
// DISPLAY MODE
// =============================================================================

type DisplayMode string

const (
	DisplayDetailed        DisplayMode = "detailed"
	DisplayGrouped         DisplayMode = "grouped"
	DisplayDetailedGrouped DisplayMode = "detailed-grouped"
)

// DisplayModeFor picks how a category's results are rendered.
func DisplayModeFor(c WorkerCategory) DisplayMode {
	switch {
	case c.Detailed():
		return DisplayDetailed
	case c == WorkerIrregular:
		return DisplayDetailedGrouped
	default:
		return DisplayGrouped
	}
}
