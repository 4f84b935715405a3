/*
Package tables normalizes raw configuration tables into typed lookups.

PURPOSE:
  Statutory data arrives as named rectangular tables of string cells (an
  export of the legal spreadsheets). This package validates every table once
  against an explicit schema and turns it into immutable, typed structures:
  rate tables, reduction tables, wage boundary ranges and grouped tables.
  Nothing downstream ever indexes a raw column again.

TABLE CATALOGUE:
  rates_pre            category, insurance, employee_basic, employer_basic,
                       employee_variable, employer_variable
  rates_post           category, insurance, employee, employer
  reductions_pre/post  reduction, insurance, percent
  limits_basic         start, min, max            (end = next start - 1 day)
  limits_variable      start, min, max
  limits_unified       start, end, min, max       (explicit end)
  limits_income        start, end, min, max
  grouped_<cat>_pre    start, end, (wage, contribution) per grade
  grouped_<cat>_post   (cat = transport | construction)
  grouped_irregular_*  start, end, wage, contribution

TIMELINES:
  Date-keyed tables are sorted by start. A row without an end runs until the
  day before the next row starts, the last row until core.FarFuture. Rows
  with explicit ends must not overlap; gaps are allowed and read as "no row".

USAGE:
  set, err := tables.LoadFile("tables.yaml")
  rates, err := set.Rate("3", core.InsurancePension, core.WageBasic)

SEE ALSO:
  - resolver.go: Raw -> Set normalization
  - ranges.go: WageLimitRange lists and binary-search lookup
  - loader.go: YAML/JSON table files
*/
package tables

import (
	"fmt"

	"github.com/warp/contribution-engine/core"
)

// Stable table keys.
const (
	KeyRatesPre       = "rates_pre"
	KeyRatesPost      = "rates_post"
	KeyReductionsPre  = "reductions_pre"
	KeyReductionsPost = "reductions_post"
)

// Kind identifies the column layout of a table.
type Kind string

const (
	KindRatePre       Kind = "rate_pre"
	KindRatePost      Kind = "rate_post"
	KindReduction     Kind = "reduction"
	KindLimitsOpenEnd Kind = "limits_open_end" // start, min, max
	KindLimitsEnded   Kind = "limits_ended"    // start, end, min, max
	KindGroupedGraded Kind = "grouped_graded"
	KindGroupedFlat   Kind = "grouped_flat"
)

// Schema names the column roles of one table.
type Schema struct {
	Key      string
	Kind     Kind
	Columns  []string
	Required bool
}

// Width is the minimum number of cells a row must carry.
func (s Schema) Width() int { return len(s.Columns) }

// Column returns the role name of column i for error messages.
func (s Schema) Column(i int) string {
	if i < len(s.Columns) {
		return s.Columns[i]
	}
	if s.Kind == KindGroupedGraded {
		grade := (i-2)/2 + 1
		if (i-2)%2 == 0 {
			return fmt.Sprintf("grade_%d_wage", grade)
		}
		return fmt.Sprintf("grade_%d_contribution", grade)
	}
	return fmt.Sprintf("col_%d", i)
}

// LimitsKey is the boundary table for a wage kind.
func LimitsKey(kind core.WageKind) string { return "limits_" + string(kind) }

// GroupedKey is the grouped table for a category in the regime of post.
func GroupedKey(category core.WorkerCategory, post bool) string {
	if post {
		return "grouped_" + string(category) + "_post"
	}
	return "grouped_" + string(category) + "_pre"
}

// Catalogue lists every recognized table.
func Catalogue() []Schema {
	schemas := []Schema{
		{Key: KeyRatesPre, Kind: KindRatePre, Required: true,
			Columns: []string{"category", "insurance", "employee_basic", "employer_basic", "employee_variable", "employer_variable"}},
		{Key: KeyRatesPost, Kind: KindRatePost, Required: true,
			Columns: []string{"category", "insurance", "employee", "employer"}},
		{Key: KeyReductionsPre, Kind: KindReduction, Columns: []string{"reduction", "insurance", "percent"}},
		{Key: KeyReductionsPost, Kind: KindReduction, Columns: []string{"reduction", "insurance", "percent"}},
		{Key: LimitsKey(core.WageBasic), Kind: KindLimitsOpenEnd, Columns: []string{"start", "min", "max"}},
		{Key: LimitsKey(core.WageVariable), Kind: KindLimitsOpenEnd, Columns: []string{"start", "min", "max"}},
		{Key: LimitsKey(core.WageUnified), Kind: KindLimitsEnded, Columns: []string{"start", "end", "min", "max"}},
		{Key: LimitsKey(core.WageIncome), Kind: KindLimitsEnded, Columns: []string{"start", "end", "min", "max"}},
	}
	for _, c := range []core.WorkerCategory{core.WorkerTransport, core.WorkerConstruction} {
		for _, post := range []bool{false, true} {
			schemas = append(schemas, Schema{Key: GroupedKey(c, post), Kind: KindGroupedGraded,
				Columns: []string{"start", "end", "grade_1_wage", "grade_1_contribution"}})
		}
	}
	for _, post := range []bool{false, true} {
		schemas = append(schemas, Schema{Key: GroupedKey(core.WorkerIrregular, post), Kind: KindGroupedFlat,
			Columns: []string{"start", "end", "wage", "contribution"}})
	}
	return schemas
}

// SchemaFor returns the schema of a table key.
func SchemaFor(key string) (Schema, bool) {
	for _, s := range Catalogue() {
		if s.Key == key {
			return s, true
		}
	}
	return Schema{}, false
}
