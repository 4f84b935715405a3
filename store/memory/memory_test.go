package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/store/storetest"
	"github.com/warp/contribution-engine/subscription"
)

func TestMemory_PeriodStore(t *testing.T) {
	storetest.PeriodStore(t, New())
}

func TestMemory_RunLog(t *testing.T) {
	storetest.RunLog(t, New())
}

func TestMemory_ReturnsCopies(t *testing.T) {
	// GIVEN: A stored period with one wage
	m := New()
	ctx := context.Background()
	p := subscription.NewPeriod("p", "3", core.WorkerStandard, core.MonthStart(2018, time.January), core.MonthStart(2018, time.December))
	p.Wages = []subscription.WageSubPeriod{{ID: "w", Kind: core.WageBasic, Start: p.Start, Amount: core.MustDecimal("1000")}}
	require.NoError(t, m.SavePeriod(ctx, p))

	// WHEN: Callers mutate what they saved and what they read
	p.Wages[0].ID = "changed"
	got, err := m.GetPeriod(ctx, "p")
	require.NoError(t, err)
	got.Wages[0].ID = "changed too"

	// THEN: The stored value is unaffected
	again, err := m.GetPeriod(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "w", again.Wages[0].ID)
}

func TestMemory_RunsAreCopies(t *testing.T) {
	// GIVEN: A recorded run with one result and one category
	m := New()
	ctx := context.Background()
	calc := &contribution.Calculation{
		ID:      "run-1",
		Results: []contribution.PeriodResult{{PeriodID: "p", Rows: []contribution.BreakdownRow{{Label: "pension/basic"}}}},
		Summary: contribution.Summary{Categories: []contribution.CategorySummary{{CategoryCode: "3"}}},
	}
	require.NoError(t, m.RecordRun(ctx, calc))

	// WHEN: Callers mutate the recorded and the returned run
	calc.Results[0].PeriodID = "changed"
	calc.Summary.Categories[0].CategoryCode = "changed"
	got, err := m.GetRun(ctx, "run-1")
	require.NoError(t, err)
	got.Results[0].Rows[0].Label = "changed too"

	// THEN: The stored run is unaffected
	again, err := m.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "p", again.Results[0].PeriodID)
	assert.Equal(t, "pension/basic", again.Results[0].Rows[0].Label)
	assert.Equal(t, "3", again.Summary.Categories[0].CategoryCode)
}
