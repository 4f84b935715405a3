package contribution

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RunSummary is the listing view of a recorded calculation.
type RunSummary struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Periods    int             `json:"periods"`
	Failed     int             `json:"failed"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func Summarize(c *Calculation) RunSummary {
	return RunSummary{
		ID:         c.ID,
		CreatedAt:  c.CreatedAt,
		Periods:    len(c.Results),
		Failed:     c.Failed(),
		GrandTotal: c.GrandTotal,
	}
}

// RunLog keeps finished calculations for later retrieval. The engine never
// writes to it; callers record a run after Calculate returns.
//
// Implementations:
//   - store/memory: in-memory, for tests and dev
//   - store/sqlite: SQLite
type RunLog interface {
	RecordRun(ctx context.Context, c *Calculation) error

	// GetRun returns core.ErrNotFound (wrapped) for unknown ids. Restored
	// results carry Error but not Err.
	GetRun(ctx context.Context, id string) (*Calculation, error)

	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
