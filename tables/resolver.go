package tables

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
)

// Raw is a set of named rectangular tables of string cells.
type Raw map[string][][]string

// Resolve validates every raw table against its schema and builds the
// immutable lookup Set. Required tables that are absent, unknown table keys
// and malformed cells fail with a *core.ConfigurationError.
func Resolve(raw Raw) (*Set, error) {
	set := &Set{
		ratesPre:  make(map[rateKey]preRates),
		ratesPost: make(map[rateKey]RatePair),
		limits:    make(map[core.WageKind]LimitList),
		grouped:   make(map[string]*GroupedTable),
		counts:    make(map[string]int),
	}

	for key := range raw {
		if _, ok := SchemaFor(key); !ok {
			return nil, &core.ConfigurationError{Table: key, Row: -1, Reason: "unknown table"}
		}
	}

	for _, schema := range Catalogue() {
		rows, present := raw[schema.Key]
		if !present {
			if schema.Required {
				return nil, &core.ConfigurationError{Table: schema.Key, Row: -1, Reason: "required table missing"}
			}
			continue
		}
		r := &rowReader{schema: schema}
		if err := set.load(r, rows); err != nil {
			return nil, err
		}
		set.counts[schema.Key] = r.count
	}
	return set, nil
}

func (s *Set) load(r *rowReader, rows [][]string) error {
	switch r.schema.Kind {
	case KindRatePre:
		return r.each(rows, func(i int, row []string) error { return s.loadRatePre(r, i, row) })
	case KindRatePost:
		return r.each(rows, func(i int, row []string) error { return s.loadRatePost(r, i, row) })
	case KindReduction:
		return r.each(rows, func(i int, row []string) error { return s.loadReduction(r, i, row) })
	case KindLimitsOpenEnd, KindLimitsEnded:
		return s.loadLimits(r, rows)
	case KindGroupedGraded, KindGroupedFlat:
		return s.loadGrouped(r, rows)
	}
	return nil
}

func (s *Set) loadRatePre(r *rowReader, i int, row []string) error {
	k, err := r.rateKey(i, row)
	if err != nil {
		return err
	}
	if _, dup := s.ratesPre[k]; dup {
		return r.fail(i, 0, "duplicate category/insurance row")
	}
	var v [4]decimal.Decimal
	for c := 0; c < 4; c++ {
		if v[c], err = r.rate(i, row, 2+c); err != nil {
			return err
		}
	}
	s.ratesPre[k] = preRates{
		basic:    RatePair{Employee: v[0], Employer: v[1]},
		variable: RatePair{Employee: v[2], Employer: v[3]},
	}
	return nil
}

func (s *Set) loadRatePost(r *rowReader, i int, row []string) error {
	k, err := r.rateKey(i, row)
	if err != nil {
		return err
	}
	if _, dup := s.ratesPost[k]; dup {
		return r.fail(i, 0, "duplicate category/insurance row")
	}
	emp, err := r.rate(i, row, 2)
	if err != nil {
		return err
	}
	er, err := r.rate(i, row, 3)
	if err != nil {
		return err
	}
	s.ratesPost[k] = RatePair{Employee: emp, Employer: er}
	return nil
}

func (s *Set) loadReduction(r *rowReader, i int, row []string) error {
	kind, err := core.ParseReductionKind(strings.TrimSpace(row[0]))
	if err != nil {
		return r.fail(i, 0, err.Error())
	}
	ins, err := core.ParseInsuranceType(strings.TrimSpace(row[1]))
	if err != nil {
		return r.fail(i, 1, err.Error())
	}
	pct, err := r.rate(i, row, 2)
	if err != nil {
		return err
	}
	red := Reduction{Kind: kind, Insurance: ins, Percent: pct}
	if r.schema.Key == KeyReductionsPost {
		s.reductionsPost = append(s.reductionsPost, red)
	} else {
		s.reductionsPre = append(s.reductionsPre, red)
	}
	return nil
}

func (s *Set) loadLimits(r *rowReader, rows [][]string) error {
	ended := r.schema.Kind == KindLimitsEnded
	minCol, maxCol := 1, 2
	if ended {
		minCol, maxCol = 2, 3
	}

	var timeline []timelineRow
	if err := r.each(rows, func(i int, row []string) error {
		tr, err := r.timelineRow(i, row, ended)
		if err != nil {
			return err
		}
		timeline = append(timeline, tr)
		return nil
	}); err != nil {
		return err
	}

	periods, err := partition(r.schema.Key, timeline)
	if err != nil {
		return err
	}

	list := make(LimitList, len(timeline))
	for n, tr := range timeline {
		lo, err := r.bound(tr.source, tr.cells, minCol)
		if err != nil {
			return err
		}
		hi, err := r.bound(tr.source, tr.cells, maxCol)
		if err != nil {
			return err
		}
		if lo.Valid && hi.Valid && lo.Decimal.GreaterThan(hi.Decimal) {
			return r.fail(tr.source, minCol, "min greater than max")
		}
		list[n] = WageLimitRange{Period: periods[n], Min: lo, Max: hi}
	}

	kind := core.WageKind(strings.TrimPrefix(r.schema.Key, "limits_"))
	s.limits[kind] = list
	return nil
}

func (s *Set) loadGrouped(r *rowReader, rows [][]string) error {
	var timeline []timelineRow
	if err := r.each(rows, func(i int, row []string) error {
		if r.schema.Kind == KindGroupedGraded && (len(row)-2)%2 != 0 {
			return r.fail(i, len(row)-1, "grade columns must come in wage/contribution pairs")
		}
		tr, err := r.timelineRow(i, row, true)
		if err != nil {
			return err
		}
		timeline = append(timeline, tr)
		return nil
	}); err != nil {
		return err
	}

	periods, err := partition(r.schema.Key, timeline)
	if err != nil {
		return err
	}

	table := &GroupedTable{Key: r.schema.Key, Rows: make([]GroupedRow, len(timeline))}
	for n, tr := range timeline {
		pairs := (len(tr.cells) - 2) / 2
		if r.schema.Kind == KindGroupedFlat {
			pairs = 1
		}
		row := GroupedRow{Period: periods[n], grades: make([]*GradeCell, pairs)}
		for g := 0; g < pairs; g++ {
			cell, err := r.gradeCell(tr.source, tr.cells, 2+2*g, r.schema.Kind == KindGroupedFlat)
			if err != nil {
				return err
			}
			row.grades[g] = cell
		}
		table.Rows[n] = row
	}
	s.grouped[r.schema.Key] = table
	return nil
}

// =============================================================================
// ROW READER - Cell parsing with schema-aware error messages
// =============================================================================

type rowReader struct {
	schema Schema
	count  int
}

// each calls fn for every data row; blank rows and rows whose first cell
// starts with '#' are skipped.
func (r *rowReader) each(rows [][]string, fn func(i int, row []string) error) error {
	for i, row := range rows {
		if skipRow(row) {
			continue
		}
		if len(row) < r.schema.Width() {
			return r.fail(i, len(row), "row too short")
		}
		if err := fn(i, row); err != nil {
			return err
		}
		r.count++
	}
	return nil
}

func skipRow(row []string) bool {
	if len(row) == 0 {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(row[0]), "#") {
		return true
	}
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r *rowReader) fail(row, col int, reason string) error {
	return &core.ConfigurationError{Table: r.schema.Key, Row: row, Column: r.schema.Column(col), Reason: reason}
}

func (r *rowReader) rateKey(i int, row []string) (rateKey, error) {
	category := strings.TrimSpace(row[0])
	if category == "" {
		return rateKey{}, r.fail(i, 0, "category required")
	}
	ins, err := core.ParseInsuranceType(strings.TrimSpace(row[1]))
	if err != nil {
		return rateKey{}, r.fail(i, 1, err.Error())
	}
	return rateKey{category: category, insurance: ins}, nil
}

// rate parses a percentage; empty cells read as zero.
func (r *rowReader) rate(i int, row []string, col int) (decimal.Decimal, error) {
	d, _, err := core.ParseDecimal(row[col])
	if err != nil {
		return decimal.Zero, r.fail(i, col, err.Error())
	}
	if d.IsNegative() {
		return decimal.Zero, r.fail(i, col, "negative percentage")
	}
	return d, nil
}

func (r *rowReader) bound(i int, row []string, col int) (decimal.NullDecimal, error) {
	d, ok, err := core.ParseDecimal(row[col])
	if err != nil {
		return decimal.NullDecimal{}, r.fail(i, col, err.Error())
	}
	return decimal.NullDecimal{Decimal: d, Valid: ok}, nil
}

func (r *rowReader) timelineRow(i int, row []string, hasEnd bool) (timelineRow, error) {
	start, err := core.ParseDate(row[0])
	if err != nil {
		return timelineRow{}, r.fail(i, 0, err.Error())
	}
	tr := timelineRow{start: start, source: i, cells: row}
	if hasEnd && strings.TrimSpace(row[1]) != "" {
		end, err := core.ParseDate(row[1])
		if err != nil {
			return timelineRow{}, r.fail(i, 1, err.Error())
		}
		// YYYY-MM ends mean the whole month
		if len(strings.TrimSpace(row[1])) == len("2006-01") {
			end = end.EndOfMonth()
		}
		tr.end = end
	}
	return tr, nil
}

// gradeCell parses a wage/contribution pair. Both empty means "no such grade"
// unless the pair is mandatory.
func (r *rowReader) gradeCell(i int, row []string, col int, mandatory bool) (*GradeCell, error) {
	wage, wok, err := core.ParseDecimal(row[col])
	if err != nil {
		return nil, r.fail(i, col, err.Error())
	}
	contrib, cok, err := core.ParseDecimal(row[col+1])
	if err != nil {
		return nil, r.fail(i, col+1, err.Error())
	}
	switch {
	case !wok && !cok && !mandatory:
		return nil, nil
	case !wok:
		return nil, r.fail(i, col, "wage required")
	case !cok:
		return nil, r.fail(i, col+1, "contribution required")
	}
	return &GradeCell{Wage: wage, Contribution: contrib}, nil
}
