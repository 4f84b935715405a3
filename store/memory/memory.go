// Package memory provides in-memory PeriodStore and RunLog implementations.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	periods map[string]subscription.SubscriptionPeriod
	runs    map[string]*contribution.Calculation
	order   []string // run ids, oldest first
}

func New() *Memory {
	return &Memory{
		periods: make(map[string]subscription.SubscriptionPeriod),
		runs:    make(map[string]*contribution.Calculation),
	}
}

var (
	_ subscription.PeriodStore = (*Memory)(nil)
	_ contribution.RunLog      = (*Memory)(nil)
)

// =============================================================================
// PERIODS
// =============================================================================

func (m *Memory) SavePeriod(_ context.Context, p subscription.SubscriptionPeriod) error {
	if p.ID == "" {
		return core.Invalid("id", "required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPeriod(_ context.Context, id string) (subscription.SubscriptionPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return subscription.SubscriptionPeriod{}, fmt.Errorf("period %s: %w", id, core.ErrNotFound)
	}
	return p.Clone(), nil
}

func (m *Memory) ListPeriods(_ context.Context) ([]subscription.SubscriptionPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]subscription.SubscriptionPeriod, 0, len(m.periods))
	for _, p := range m.periods {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeletePeriod(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.periods[id]; !ok {
		return fmt.Errorf("period %s: %w", id, core.ErrNotFound)
	}
	delete(m.periods, id)
	return nil
}

// UpdatePeriod holds the write lock for the whole read-modify-write.
func (m *Memory) UpdatePeriod(_ context.Context, id string, fn func(subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error)) (subscription.SubscriptionPeriod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.periods[id]
	if !ok {
		return subscription.SubscriptionPeriod{}, fmt.Errorf("period %s: %w", id, core.ErrNotFound)
	}
	next, err := fn(p.Clone())
	if err != nil {
		return p.Clone(), err
	}
	next.ID = id
	m.periods[id] = next.Clone()
	return next, nil
}

// =============================================================================
// RUN LOG
// =============================================================================

func (m *Memory) RecordRun(_ context.Context, c *contribution.Calculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.runs[c.ID] = c.Clone()
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*contribution.Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("calculation %s: %w", id, core.ErrNotFound)
	}
	return c.Clone(), nil
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]contribution.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []contribution.RunSummary
	for i := len(m.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, contribution.Summarize(m.runs[m.order[i]]))
	}
	return out, nil
}
