/*
Package contribution computes social-insurance contributions for declared
subscription periods.

PURPOSE:
  For every calendar month of a period the engine resolves the wage, the
  statutory rate and the legal floors that apply, then merges contiguous
  identical months into reportable breakdown rows. Results are rolled up
  into a category x regime x wage-kind summary.

MODES:
  Detailed (standard employment, business owners / abroad):
    For each selected insurance type and each wage kind of the regime:
      1. clip the window at 1984-04-01 for bonus and variable wages
      2. look up employee/employer rates, skip when both are zero
      3. subtract claimed reductions from employer, then employee (standard)
      4. fold both rates onto the employer side (business owners)
      5. walk months, merging identical (wage, rates) into one row;
         a month without a positive wage closes the open row

  Grouped (transport, construction, irregular workers):
    Each month reads the regime's grouped table row containing it, by grade
    column or directly, and months with identical (wage, contribution) merge.

ERRORS:
  A failing period carries its error and a zero total; other periods are
  still calculated. ErrNoValidPeriods is set only when every period failed.
  A mandatory wage kind without declared wages yields a
  ConfirmationRequiredError until the caller confirms the statutory-minimum
  fallback.

SEE ALSO:
  - engine.go: detailed mode and the calculation loop
  - grouped.go: grouped mode
  - report.go: aggregation matrix
*/
package contribution

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
)

// =============================================================================
// BREAKDOWN ROW - One contiguous block of identical months
// =============================================================================

type BreakdownRow struct {
	Label     string             `json:"label"`
	Insurance core.InsuranceType `json:"insurance,omitempty"`
	WageKind  core.WageKind      `json:"wage_kind,omitempty"`
	Period    core.Period        `json:"period"`
	Months    int                `json:"months"`

	MonthlyWage decimal.Decimal `json:"monthly_wage"`
	TotalWage   decimal.Decimal `json:"total_wage"`

	EmployeeRate   decimal.Decimal `json:"employee_rate"`
	EmployerRate   decimal.Decimal `json:"employer_rate"`
	EmployeeAmount decimal.Decimal `json:"employee_amount"`
	EmployerAmount decimal.Decimal `json:"employer_amount"`

	// MonthlyContribution is the flat grouped-table contribution.
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`

	TotalAmount decimal.Decimal `json:"total_amount"`

	// Synthetic marks rows priced from a statutory-minimum fallback wage.
	Synthetic bool `json:"synthetic,omitempty"`
}

// =============================================================================
// PERIOD RESULT
// =============================================================================

type PeriodResult struct {
	PeriodID     string              `json:"period_id"`
	CategoryCode string              `json:"category_code"`
	Worker       core.WorkerCategory `json:"worker_category"`
	Mode         core.DisplayMode    `json:"mode"`
	Rows         []BreakdownRow      `json:"rows"`
	Total        decimal.Decimal     `json:"total"`

	// Fallback lists wage kinds priced at the statutory minimum.
	Fallback []core.WageKind `json:"fallback,omitempty"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r PeriodResult) OK() bool { return r.Err == nil && r.Error == "" }

// =============================================================================
// OPTIONS AND CALCULATION ENVELOPE
// =============================================================================

// Options control one calculation.
type Options struct {
	// ConfirmFallback allows statutory-minimum synthesis for every period.
	ConfirmFallback bool `json:"confirm_fallback"`

	// ConfirmPeriods allows it for the listed period ids only.
	ConfirmPeriods []string `json:"confirm_periods,omitempty"`

	// Rejected holds errors found before the calculation, keyed by period
	// id. Those periods fail with their error and are not priced.
	Rejected map[string]error `json:"-"`
}

func (o Options) confirmed(periodID string) bool {
	if o.ConfirmFallback {
		return true
	}
	for _, id := range o.ConfirmPeriods {
		if id == periodID {
			return true
		}
	}
	return false
}

// Calculation is the complete answer to one request.
type Calculation struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Results    []PeriodResult  `json:"results"`
	Summary    Summary         `json:"summary"`
	GrandTotal decimal.Decimal `json:"grand_total"`

	// PendingConfirmation lists periods waiting for fallback consent.
	PendingConfirmation []string `json:"pending_confirmation,omitempty"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Clone returns a copy that shares no slices with c.
func (c *Calculation) Clone() *Calculation {
	cp := *c
	cp.Results = make([]PeriodResult, len(c.Results))
	for i, r := range c.Results {
		r.Rows = append([]BreakdownRow(nil), r.Rows...)
		r.Fallback = append([]core.WageKind(nil), r.Fallback...)
		cp.Results[i] = r
	}
	cp.Summary.Categories = append([]CategorySummary(nil), c.Summary.Categories...)
	cp.PendingConfirmation = append([]string(nil), c.PendingConfirmation...)
	return &cp
}

// Failed counts periods that carry an error.
func (c *Calculation) Failed() int {
	n := 0
	for _, r := range c.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}
