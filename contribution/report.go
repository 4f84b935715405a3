package contribution

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
)

// =============================================================================
// AGGREGATION - category x {pre basic, pre variable, post} matrix
// =============================================================================

// Bucket accumulates months, wages and contributions for one cell of the
// summary matrix.
type Bucket struct {
	Months       int             `json:"months"`
	TotalWage    decimal.Decimal `json:"total_wage"`
	Contribution decimal.Decimal `json:"contribution"`
}

func (b *Bucket) addSpan(months int, wage decimal.Decimal) {
	b.Months += months
	b.TotalWage = b.TotalWage.Add(wage)
}

func (b *Bucket) addContribution(amount decimal.Decimal) {
	b.Contribution = b.Contribution.Add(amount)
}

func (b *Bucket) merge(o Bucket) {
	b.addSpan(o.Months, o.TotalWage)
	b.addContribution(o.Contribution)
}

// Buckets is one row of the matrix.
type Buckets struct {
	PreBasic    Bucket `json:"pre_basic"`
	PreVariable Bucket `json:"pre_variable"`
	Post        Bucket `json:"post"`
}

// Total is the contribution across the three buckets.
func (b Buckets) Total() decimal.Decimal {
	return b.PreBasic.Contribution.Add(b.PreVariable.Contribution).Add(b.Post.Contribution)
}

func (b *Buckets) merge(o Buckets) {
	b.PreBasic.merge(o.PreBasic)
	b.PreVariable.merge(o.PreVariable)
	b.Post.merge(o.Post)
}

// forKind picks the bucket of a detailed row.
func (b *Buckets) forKind(kind core.WageKind) *Bucket {
	switch {
	case kind.PostCutover():
		return &b.Post
	case kind == core.WageVariable:
		return &b.PreVariable
	default:
		return &b.PreBasic
	}
}

type CategorySummary struct {
	CategoryCode string `json:"category_code"`
	Buckets
	Total decimal.Decimal `json:"total"`
}

// Summary is the aggregation matrix plus cross-category totals.
type Summary struct {
	Categories []CategorySummary `json:"categories"`
	Totals     Buckets           `json:"totals"`
	GrandTotal decimal.Decimal   `json:"grand_total"`
}

// Aggregate rolls successful results up by category code. Failed results
// are ignored.
func Aggregate(results []PeriodResult) Summary {
	byCode := make(map[string]*Buckets)
	var codes []string
	for _, r := range results {
		if !r.OK() {
			continue
		}
		b, ok := byCode[r.CategoryCode]
		if !ok {
			b = &Buckets{}
			byCode[r.CategoryCode] = b
			codes = append(codes, r.CategoryCode)
		}
		if r.Mode == core.DisplayDetailed {
			addDetailed(b, r.Rows)
		} else {
			addGrouped(b, r.Rows)
		}
	}
	sort.Strings(codes)

	s := Summary{Categories: make([]CategorySummary, 0, len(codes)), GrandTotal: decimal.Zero}
	for _, code := range codes {
		b := *byCode[code]
		s.Categories = append(s.Categories, CategorySummary{CategoryCode: code, Buckets: b, Total: b.Total()})
		s.Totals.merge(b)
	}
	s.GrandTotal = s.Totals.Total()
	return s
}

// addDetailed counts months and wages from one representative insurance
// type per wage kind, since every type walks the same window. Contributions
// of all rows are summed.
func addDetailed(b *Buckets, rows []BreakdownRow) {
	rep := representatives(rows)
	for _, row := range rows {
		bucket := b.forKind(row.WageKind)
		if row.Insurance == rep[row.WageKind] {
			bucket.addSpan(row.Months, row.TotalWage)
		}
		bucket.addContribution(row.TotalAmount)
	}
}

// representatives picks, for each wage kind, pension when it has rows of
// that kind, else the type of the kind's first row.
func representatives(rows []BreakdownRow) map[core.WageKind]core.InsuranceType {
	rep := make(map[core.WageKind]core.InsuranceType)
	for _, row := range rows {
		if _, ok := rep[row.WageKind]; !ok || row.Insurance == core.InsurancePension {
			rep[row.WageKind] = row.Insurance
		}
	}
	return rep
}

// addGrouped splits rows by their own start year against the cutover.
func addGrouped(b *Buckets, rows []BreakdownRow) {
	for _, row := range rows {
		bucket := &b.PreBasic
		if row.Period.Start.Year() >= core.RegimeCutover.Year() {
			bucket = &b.Post
		}
		bucket.addSpan(row.Months, row.TotalWage)
		bucket.addContribution(row.TotalAmount)
	}
}
