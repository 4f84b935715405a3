/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists declared subscription periods between edits and keeps a log of
  finished calculations. The engine itself never touches the database;
  callers load a snapshot of periods, calculate, then record the run.

INTERFACES IMPLEMENTED:
  subscription.PeriodStore: Period persistence and serialized edits
  contribution.RunLog:      Calculation history

KEY TABLES:
  periods:      One row per period, full document in doc_json
  calculations: One row per run, full result in doc_json

DOCUMENT COLUMNS:
  Periods and calculations are nested values (wages, rows, summary matrix).
  They are stored as JSON documents next to the few columns queries filter
  or sort on, so the schema does not track every field.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. UpdatePeriod runs its
  read-modify-write inside one database transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./contrib.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - subscription/store.go: PeriodStore interface
  - contribution/store.go: RunLog interface
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/contribution-engine/contribution"
	"github.com/warp/contribution-engine/core"
	"github.com/warp/contribution-engine/subscription"
)

// runTimeLayout is fixed-width so created_at sorts lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ subscription.PeriodStore = (*Store)(nil)
	_ contribution.RunLog      = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Declared periods
	CREATE TABLE IF NOT EXISTS periods (
		id TEXT PRIMARY KEY,
		category_code TEXT NOT NULL,
		worker_category TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		doc_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_periods_start
		ON periods(start_date, id);

	-- Calculation runs
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		periods INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		grand_total TEXT NOT NULL,
		doc_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_created
		ON calculations(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PERIOD STORE (subscription.PeriodStore interface)
// =============================================================================

// SavePeriod inserts or replaces a period.
func (s *Store) SavePeriod(ctx context.Context, p subscription.SubscriptionPeriod) error {
	if p.ID == "" {
		return core.Invalid("id", "required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePeriod(ctx, s.db, p)
}

func (s *Store) savePeriod(ctx context.Context, db execer, p subscription.SubscriptionPeriod) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode period: %w", err)
	}

	query := `
		INSERT INTO periods (id, category_code, worker_category, start_date, end_date, doc_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_code = excluded.category_code,
			worker_category = excluded.worker_category,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			doc_json = excluded.doc_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.ExecContext(ctx, query,
		p.ID, p.CategoryCode, string(p.Worker), p.Start.String(), p.End.String(),
		string(doc), now, now,
	)
	return err
}

// GetPeriod retrieves a period by ID.
func (s *Store) GetPeriod(ctx context.Context, id string) (subscription.SubscriptionPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPeriod(ctx, s.db, id)
}

func (s *Store) getPeriod(ctx context.Context, db execer, id string) (subscription.SubscriptionPeriod, error) {
	var doc string
	err := db.QueryRowContext(ctx, "SELECT doc_json FROM periods WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return subscription.SubscriptionPeriod{}, fmt.Errorf("period %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return subscription.SubscriptionPeriod{}, err
	}
	return decodePeriod(doc)
}

// ListPeriods returns all periods ordered by start, then id.
func (s *Store) ListPeriods(ctx context.Context) ([]subscription.SubscriptionPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT doc_json FROM periods ORDER BY start_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := []subscription.SubscriptionPeriod{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		p, err := decodePeriod(doc)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// DeletePeriod removes a period.
func (s *Store) DeletePeriod(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM periods WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("period %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// UpdatePeriod executes the read-modify-write within a database transaction.
func (s *Store) UpdatePeriod(ctx context.Context, id string, fn func(subscription.SubscriptionPeriod) (subscription.SubscriptionPeriod, error)) (subscription.SubscriptionPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return subscription.SubscriptionPeriod{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.getPeriod(ctx, tx, id)
	if err != nil {
		return subscription.SubscriptionPeriod{}, err
	}
	next, err := fn(current.Clone())
	if err != nil {
		return current, err
	}
	next.ID = id
	if err := s.savePeriod(ctx, tx, next); err != nil {
		return current, err
	}
	if err := tx.Commit(); err != nil {
		return current, err
	}
	return next, nil
}

func decodePeriod(doc string) (subscription.SubscriptionPeriod, error) {
	var p subscription.SubscriptionPeriod
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return p, fmt.Errorf("failed to decode period: %w", err)
	}
	return p, nil
}

// =============================================================================
// RUN LOG (contribution.RunLog interface)
// =============================================================================

// RecordRun stores a finished calculation. Recording the same id twice
// replaces the earlier document.
func (s *Store) RecordRun(ctx context.Context, c *contribution.Calculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode calculation: %w", err)
	}

	query := `
		INSERT INTO calculations (id, created_at, periods, failed, grand_total, doc_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			periods = excluded.periods,
			failed = excluded.failed,
			grand_total = excluded.grand_total,
			doc_json = excluded.doc_json
	`
	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.CreatedAt.UTC().Format(runTimeLayout), len(c.Results), c.Failed(),
		c.GrandTotal.String(), string(doc),
	)
	return err
}

// GetRun retrieves a calculation by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*contribution.Calculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc_json FROM calculations WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("calculation %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var c contribution.Calculation
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("failed to decode calculation: %w", err)
	}
	return &c, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]contribution.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, created_at, periods, failed, grand_total FROM calculations ORDER BY created_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []contribution.RunSummary
	for rows.Next() {
		var r contribution.RunSummary
		var createdAt, total string
		if err := rows.Scan(&r.ID, &createdAt, &r.Periods, &r.Failed, &total); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(runTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: created_at: %w", r.ID, err)
		}
		if r.GrandTotal, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("run %s: grand_total: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
