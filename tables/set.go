package tables

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
)

// =============================================================================
// RATES AND REDUCTIONS
// =============================================================================

// RatePair holds employee and employer percentages.
type RatePair struct {
	Employee decimal.Decimal `json:"employee"`
	Employer decimal.Decimal `json:"employer"`
}

func (r RatePair) IsZero() bool { return r.Employee.IsZero() && r.Employer.IsZero() }

func (r RatePair) Equal(o RatePair) bool {
	return r.Employee.Equal(o.Employee) && r.Employer.Equal(o.Employer)
}

// Total is the combined percentage.
func (r RatePair) Total() decimal.Decimal { return r.Employee.Add(r.Employer) }

type rateKey struct {
	category  string
	insurance core.InsuranceType
}

// preRates folds both wage kinds of one pre-cutover row.
type preRates struct {
	basic    RatePair
	variable RatePair
}

// Reduction is one row of a reduction table.
type Reduction struct {
	Kind      core.ReductionKind
	Insurance core.InsuranceType
	Percent   decimal.Decimal
}

// =============================================================================
// GROUPED TABLES - Flat monthly wage/contribution for non-standard workers
// =============================================================================

// GradeCell is the wage and monthly contribution for one grade.
type GradeCell struct {
	Wage         decimal.Decimal
	Contribution decimal.Decimal
}

// GroupedRow is one dated row of a grouped table. Grades are 1-based in the
// public API; a nil entry means the cell pair was empty.
type GroupedRow struct {
	core.Period
	grades []*GradeCell
}

// Grade returns the cell for grade g (1-based).
func (r GroupedRow) Grade(g int) (GradeCell, bool) {
	if g < 1 || g > len(r.grades) || r.grades[g-1] == nil {
		return GradeCell{}, false
	}
	return *r.grades[g-1], true
}

// Flat returns the single wage/contribution of an ungraded row.
func (r GroupedRow) Flat() (GradeCell, bool) { return r.Grade(1) }

type GroupedTable struct {
	Key  string
	Rows []GroupedRow
}

// At returns the row whose range contains d.
func (t *GroupedTable) At(d core.Date) (GroupedRow, bool) {
	if t == nil {
		return GroupedRow{}, false
	}
	i := sort.Search(len(t.Rows), func(i int) bool { return t.Rows[i].Start.After(d) }) - 1
	if i < 0 || !t.Rows[i].Contains(d) {
		return GroupedRow{}, false
	}
	return t.Rows[i], true
}

// =============================================================================
// SET - Immutable snapshot of every normalized table
// =============================================================================

// Set is built once by Resolve and is safe for concurrent readers.
type Set struct {
	ratesPre       map[rateKey]preRates
	ratesPost      map[rateKey]RatePair
	reductionsPre  []Reduction
	reductionsPost []Reduction
	limits         map[core.WageKind]LimitList
	grouped        map[string]*GroupedTable
	counts         map[string]int
}

// Rate looks up the percentages for a category, insurance type and wage
// kind. Post-cutover kinds read the post table; pre-cutover kinds pick the
// basic or variable column pair.
func (s *Set) Rate(category string, insurance core.InsuranceType, kind core.WageKind) (RatePair, error) {
	k := rateKey{category: category, insurance: insurance}
	if kind.PostCutover() {
		r, ok := s.ratesPost[k]
		if !ok {
			return RatePair{}, &core.LookupMissError{Table: KeyRatesPost, Key: category + "/" + string(insurance)}
		}
		return r, nil
	}
	r, ok := s.ratesPre[k]
	if !ok {
		return RatePair{}, &core.LookupMissError{Table: KeyRatesPre, Key: category + "/" + string(insurance)}
	}
	if kind == core.WageVariable {
		return r.variable, nil
	}
	return r.basic, nil
}

// Reductions returns the reduction rows of one regime.
func (s *Set) Reductions(post bool) []Reduction {
	if post {
		return s.reductionsPost
	}
	return s.reductionsPre
}

// Limits returns the boundary ranges of a wage kind; nil when the table is
// absent, which callers treat as "no bound".
func (s *Set) Limits(kind core.WageKind) LimitList {
	return s.limits[kind]
}

// Grouped returns the grouped table for a category and regime.
func (s *Set) Grouped(category core.WorkerCategory, post bool) (*GroupedTable, bool) {
	t, ok := s.grouped[GroupedKey(category, post)]
	return t, ok
}

// Summary lists loaded table keys with their row counts, sorted by key.
func (s *Set) Summary() []TableInfo {
	out := make([]TableInfo, 0, len(s.counts))
	for k, n := range s.counts {
		out = append(out, TableInfo{Key: k, Rows: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

type TableInfo struct {
	Key  string `json:"key"`
	Rows int    `json:"rows"`
}
