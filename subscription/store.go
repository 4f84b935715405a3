package subscription

import "context"

// PeriodStore persists declared periods between edits. The engine never
// reads it; callers load a snapshot and pass it to a calculation.
//
// Implementations:
//   - store/memory: in-memory, for tests and dev
//   - store/sqlite: SQLite
type PeriodStore interface {
	SavePeriod(ctx context.Context, p SubscriptionPeriod) error

	// GetPeriod returns core.ErrNotFound (wrapped) for unknown ids.
	GetPeriod(ctx context.Context, id string) (SubscriptionPeriod, error)

	// ListPeriods returns every period ordered by start, then id.
	ListPeriods(ctx context.Context) ([]SubscriptionPeriod, error)

	DeletePeriod(ctx context.Context, id string) error

	// UpdatePeriod applies fn to the stored period and saves the result.
	// Updates are serialized; nothing is written when fn fails.
	UpdatePeriod(ctx context.Context, id string, fn func(SubscriptionPeriod) (SubscriptionPeriod, error)) (SubscriptionPeriod, error)
}
