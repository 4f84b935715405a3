// Package storetest holds behaviour checks shared by every PeriodStore and
// RunLog implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

func samplePeriod(id string, start core.Date) subscription.SubscriptionPeriod {
	p := subscription.NewPeriod(id, "3", core.WorkerStandard, start, start.AddMonths(11))
	p.Wages = []subscription.WageSubPeriod{
		{ID: id + "-w1", Kind: core.WageBasic, Start: start, Amount: core.MustDecimal("1000.50")},
	}
	p.Reductions.NewHire = true
	return p
}

// PeriodStore exercises save, get, list, delete and update.
func PeriodStore(t *testing.T, s subscription.PeriodStore) {
	ctx := context.Background()

	t.Run("save and get round-trips the document", func(t *testing.T) {
		p := samplePeriod("rt", core.MonthStart(2018, time.January))
		require.NoError(t, s.SavePeriod(ctx, p))

		got, err := s.GetPeriod(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.Start, got.Start)
		assert.Equal(t, p.End, got.End)
		assert.True(t, got.Reductions.NewHire)
		assert.True(t, got.Insurance.Pension)
		require.Len(t, got.Wages, 1)
		assert.True(t, got.Wages[0].Amount.Equal(core.MustDecimal("1000.5")))
		assert.True(t, got.Wages[0].End.IsZero())
	})

	t.Run("missing id is rejected", func(t *testing.T) {
		err := s.SavePeriod(ctx, subscription.SubscriptionPeriod{})
		assert.True(t, errors.Is(err, core.ErrValidation))
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		_, err := s.GetPeriod(ctx, "ghost")
		assert.True(t, core.IsNotFound(err))
		assert.True(t, core.IsNotFound(s.DeletePeriod(ctx, "ghost")))
		_, err = s.UpdatePeriod(ctx, "ghost", func(p subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error) {
			return p, nil
		})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("list orders by start then id", func(t *testing.T) {
		require.NoError(t, s.SavePeriod(ctx, samplePeriod("b-2015", core.MonthStart(2015, time.January))))
		require.NoError(t, s.SavePeriod(ctx, samplePeriod("a-2015", core.MonthStart(2015, time.January))))
		require.NoError(t, s.SavePeriod(ctx, samplePeriod("z-2010", core.MonthStart(2010, time.January))))

		list, err := s.ListPeriods(ctx)
		require.NoError(t, err)
		var ids []string
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"z-2010", "a-2015", "b-2015", "rt"}, ids)
	})

	t.Run("update applies fn and keeps the id", func(t *testing.T) {
		got, err := s.UpdatePeriod(ctx, "rt", func(p subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error) {
			p.ID = "renamed"
			p.CategoryCode = "1"
			return p, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "rt", got.ID)

		stored, err := s.GetPeriod(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, "1", stored.CategoryCode)
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.UpdatePeriod(ctx, "rt", func(p subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error) {
			p.CategoryCode = "9"
			return p, boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := s.GetPeriod(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, "1", stored.CategoryCode)
	})

	t.Run("delete removes", func(t *testing.T) {
		require.NoError(t, s.DeletePeriod(ctx, "z-2010"))
		_, err := s.GetPeriod(ctx, "z-2010")
		assert.True(t, core.IsNotFound(err))
	})
}

// RunLog exercises record, get and list.
func RunLog(t *testing.T, s contribution.RunLog) {
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		c := &contribution.Calculation{
			ID:         id,
			CreatedAt:  base.Add(time.Duration(i) * 1500 * time.Millisecond),
			GrandTotal: decimal.NewFromInt(int64(100 * (i + 1))),
			Results: []contribution.PeriodResult{
				{PeriodID: "ok", CategoryCode: "3", Total: decimal.NewFromInt(int64(100 * (i + 1)))},
				{PeriodID: "bad", Error: "regime crossing"},
			},
		}
		require.NoError(t, s.RecordRun(ctx, c))
	}

	t.Run("get restores the calculation", func(t *testing.T) {
		got, err := s.GetRun(ctx, "run-2")
		require.NoError(t, err)
		assert.Equal(t, "run-2", got.ID)
		assert.True(t, got.CreatedAt.Equal(base.Add(1500*time.Millisecond)))
		require.Len(t, got.Results, 2)
		assert.False(t, got.Results[1].OK())
		assert.Equal(t, 1, got.Failed())
	})

	t.Run("unknown run is not found", func(t *testing.T) {
		_, err := s.GetRun(ctx, "ghost")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("list is newest first and honours the limit", func(t *testing.T) {
		all, err := s.ListRuns(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "run-3", all[0].ID)
		assert.Equal(t, "run-1", all[2].ID)
		assert.Equal(t, 2, all[0].Periods)
		assert.Equal(t, 1, all[0].Failed)
		assert.True(t, all[0].GrandTotal.Equal(decimal.NewFromInt(300)))

		two, err := s.ListRuns(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, two, 2)
	})
}
