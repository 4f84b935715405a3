package contribution

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
	"github.com/warp/contribution-engine/tables"
)

// =============================================================================
// GROUPED MODE
// =============================================================================
//
// Grouped periods may cross the cutover: each month reads the table of its
// own regime.

func (e *Engine) grouped(p subscription.SubscriptionPeriod) ([]BreakdownRow, error) {
	var rows []BreakdownRow
	var open *BreakdownRow
	flush := func() {
		if open == nil {
			return
		}
		rows = append(rows, finishGrouped(*open))
		open = nil
	}

	for _, m := range p.Window().Months() {
		cell, err := e.groupedCell(p, m)
		if err != nil {
			return nil, err
		}
		if open != nil && open.MonthlyWage.Equal(cell.Wage) &&
			open.MonthlyContribution.Equal(cell.Contribution) &&
			m.IsPostCutover() == open.Period.Start.IsPostCutover() {
			open.Months++
			open.Period.End = m.EndOfMonth()
			continue
		}
		flush()
		open = &BreakdownRow{
			Label:               groupedLabel(p),
			Period:              core.Period{Start: m, End: m.EndOfMonth()},
			Months:              1,
			MonthlyWage:         cell.Wage,
			MonthlyContribution: cell.Contribution,
		}
	}
	flush()
	return rows, nil
}

// groupedCell finds the wage/contribution pair for one month.
func (e *Engine) groupedCell(p subscription.SubscriptionPeriod, m core.Date) (tables.GradeCell, error) {
	post := m.IsPostCutover()
	key := tables.GroupedKey(p.Worker, post)
	t, ok := e.Tables.Grouped(p.Worker, post)
	if !ok {
		return tables.GradeCell{}, &core.LookupMissError{Table: key, Key: string(p.Worker), At: m}
	}
	row, ok := t.At(m)
	if !ok {
		return tables.GradeCell{}, &core.LookupMissError{Table: key, Key: "row", At: m}
	}
	if !p.Worker.Graded() {
		cell, ok := row.Flat()
		if !ok {
			return tables.GradeCell{}, &core.LookupMissError{Table: key, Key: "wage", At: m}
		}
		return cell, nil
	}
	cell, ok := row.Grade(p.Grade)
	if !ok {
		return tables.GradeCell{}, &core.LookupMissError{Table: key, Key: fmt.Sprintf("grade %d", p.Grade), At: m}
	}
	return cell, nil
}

func groupedLabel(p subscription.SubscriptionPeriod) string {
	if p.Worker.Graded() {
		return fmt.Sprintf("%s/grade %d", p.Worker, p.Grade)
	}
	return string(p.Worker)
}

func finishGrouped(r BreakdownRow) BreakdownRow {
	months := decimal.NewFromInt(int64(r.Months))
	r.TotalWage = core.Money(r.MonthlyWage.Mul(months))
	r.EmployeeRate = decimal.Zero
	r.EmployerRate = decimal.Zero
	r.EmployeeAmount = decimal.Zero
	r.EmployerAmount = decimal.Zero
	r.TotalAmount = core.Money(r.MonthlyContribution.Mul(months))
	return r
}
