package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// DailyBarStore implements storage.DailyBarStore using ClickHouse. Bar
// history is the one table that grows without bound, so it lives in the
// column store while everything relational stays in Postgres.
type DailyBarStore struct {
	conn *Conn
}

// NewDailyBarStore creates a new DailyBarStore.
func NewDailyBarStore(conn *Conn) *DailyBarStore {
	return &DailyBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyBarStore = (*DailyBarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, date).
func (s *DailyBarStore) InsertBulk(ctx context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol string
		date   time.Time
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{b.Symbol, b.Date.UTC()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows. MergeTree does not
	// enforce uniqueness at insert time.
	for _, b := range bars {
		exists, err := s.exists(ctx, b.Symbol, b.Date.UTC())
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (
			symbol, trade_date, open, high, low, close, volume, value_traded
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, b.Date.UTC(), b.Open, b.High, b.Low, b.Close,
			uint64(b.Volume), b.ValueTraded,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves bars within [from, to] inclusive, ordered by date ASC.
func (s *DailyBarStore) GetBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]*domain.DailyBar, error) {
	query := `
		SELECT symbol, trade_date, open, high, low, close, volume, value_traded
		FROM daily_bars
		WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query bars by symbol: %w", err)
	}
	defer rows.Close()

	return scanDailyBars(rows)
}

// DistinctDates retrieves the sorted unique trading dates in [from, to]
// across all symbols.
func (s *DailyBarStore) DistinctDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM daily_bars
		WHERE trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query distinct dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date row: %w", err)
		}
		dates = append(dates, d.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate date rows: %w", err)
	}

	return dates, nil
}

// AvgDailyValue computes the trailing average daily traded value over the
// window ending at asOf. Returns 0 when no bars exist in the window.
func (s *DailyBarStore) AvgDailyValue(ctx context.Context, symbol string, asOf time.Time, window int) (float64, error) {
	if window <= 0 {
		return 0, storage.ErrInvalidInput
	}

	query := `
		SELECT avg(value_traded)
		FROM (
			SELECT value_traded
			FROM daily_bars
			WHERE symbol = ? AND trade_date <= ?
			ORDER BY trade_date DESC
			LIMIT ?
		)
	`

	var adv *float64
	err := s.conn.QueryRow(ctx, query, symbol, asOf.UTC(), uint64(window)).Scan(&adv)
	if err != nil {
		return 0, fmt.Errorf("query avg daily value: %w", err)
	}
	if adv == nil {
		return 0, nil
	}
	return *adv, nil
}

// exists checks if a bar with the given key exists.
func (s *DailyBarStore) exists(ctx context.Context, symbol string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM daily_bars
		WHERE symbol = ? AND trade_date = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, date).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanDailyBars scans multiple rows.
func scanDailyBars(rows driver.Rows) ([]*domain.DailyBar, error) {
	var bars []*domain.DailyBar

	for rows.Next() {
		var b domain.DailyBar
		var volume uint64

		err := rows.Scan(
			&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close,
			&volume, &b.ValueTraded,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily bar row: %w", err)
		}

		b.Date = b.Date.UTC()
		b.Volume = int64(volume)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily bar rows: %w", err)
	}

	return bars, nil
}
