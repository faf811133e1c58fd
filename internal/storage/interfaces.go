package storage

import (
	"context"
	"time"

	"equity-backtest-lab/internal/domain"
)

// ReferenceDataStore provides per-symbol lot/tick/ADV reference rows.
type ReferenceDataStore interface {
	// Upsert inserts or replaces a reference row. Reference data changes on
	// contract revisions, so the store is not append-only.
	Upsert(ctx context.Context, row *domain.ReferenceRow) error

	// GetBySymbol retrieves a row. Returns ErrNotFound if not exists.
	GetBySymbol(ctx context.Context, symbol string) (*domain.ReferenceRow, error)

	// GetAll retrieves every row, ordered by symbol ASC.
	GetAll(ctx context.Context) ([]*domain.ReferenceRow, error)
}

// DailyBarStore provides historical OHLCV bars.
type DailyBarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate
	// (symbol, date).
	InsertBulk(ctx context.Context, bars []*domain.DailyBar) error

	// GetBySymbol retrieves bars within [from, to] (inclusive), ordered by
	// date ASC.
	GetBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]*domain.DailyBar, error)

	// DistinctDates retrieves the sorted unique trading dates in [from, to]
	// across the whole universe. This is the walk-forward date index.
	DistinctDates(ctx context.Context, from, to time.Time) ([]time.Time, error)

	// AvgDailyValue computes the trailing average daily traded value for a
	// symbol over the window ending at asOf. Returns 0 when no bars exist.
	AvgDailyValue(ctx context.Context, symbol string, asOf time.Time, window int) (float64, error)
}

// TradeLedgerStore provides access to the append-only trade ledger.
type TradeLedgerStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any
	// duplicate trade_id.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByFold retrieves all trades for one fold of a run.
	GetByFold(ctx context.Context, runID string, foldIndex int) ([]*domain.Trade, error)

	// GetByRun retrieves all trades for a run, ordered by fold ASC then
	// trade_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// RunSummaryStore provides access to per-run summary records.
type RunSummaryStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RunSummary) error

	// GetByID retrieves a summary. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunSummary, error)
}

// RiskStateStore provides the persisted kill-switch record.
//
// Load never fails on corruption: an unreadable or insane record yields
// DefaultRiskState. Save is compare-and-swap on RiskState.Version and returns
// ErrVersionConflict when a concurrent writer got there first; callers reload
// and re-evaluate.
type RiskStateStore interface {
	Load(ctx context.Context) (*domain.RiskState, error)
	Save(ctx context.Context, s *domain.RiskState) error
}
