package postgres

import (
	"context"
	"fmt"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// ReferenceDataStore implements storage.ReferenceDataStore using PostgreSQL.
type ReferenceDataStore struct {
	pool *Pool
}

// NewReferenceDataStore creates a new ReferenceDataStore.
func NewReferenceDataStore(pool *Pool) *ReferenceDataStore {
	return &ReferenceDataStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReferenceDataStore = (*ReferenceDataStore)(nil)

// Upsert inserts or replaces a reference row.
func (s *ReferenceDataStore) Upsert(ctx context.Context, row *domain.ReferenceRow) error {
	if row == nil || row.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO reference_rows (
			symbol, class, lot_size, tick_size, avg_daily_value, as_of
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol) DO UPDATE SET
			class = EXCLUDED.class,
			lot_size = EXCLUDED.lot_size,
			tick_size = EXCLUDED.tick_size,
			avg_daily_value = EXCLUDED.avg_daily_value,
			as_of = EXCLUDED.as_of
	`

	_, err := s.pool.Exec(ctx, query,
		row.Symbol, string(row.Class), row.LotSize, row.TickSize, row.AvgDailyValue, row.AsOf,
	)
	if err != nil {
		return fmt.Errorf("upsert reference row: %w", err)
	}
	return nil
}

// GetBySymbol retrieves a row. Returns ErrNotFound if not exists.
func (s *ReferenceDataStore) GetBySymbol(ctx context.Context, symbol string) (*domain.ReferenceRow, error) {
	query := `
		SELECT symbol, class, lot_size, tick_size, avg_daily_value, as_of
		FROM reference_rows
		WHERE symbol = $1
	`

	var row domain.ReferenceRow
	var class string
	err := s.pool.QueryRow(ctx, query, symbol).Scan(
		&row.Symbol, &class, &row.LotSize, &row.TickSize, &row.AvgDailyValue, &row.AsOf,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get reference row by symbol: %w", err)
	}
	row.Class = domain.InstrumentClass(class)
	return &row, nil
}

// GetAll retrieves every row, ordered by symbol ASC.
func (s *ReferenceDataStore) GetAll(ctx context.Context) ([]*domain.ReferenceRow, error) {
	query := `
		SELECT symbol, class, lot_size, tick_size, avg_daily_value, as_of
		FROM reference_rows
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all reference rows: %w", err)
	}
	defer rows.Close()

	var result []*domain.ReferenceRow
	for rows.Next() {
		var row domain.ReferenceRow
		var class string
		if err := rows.Scan(&row.Symbol, &class, &row.LotSize, &row.TickSize, &row.AvgDailyValue, &row.AsOf); err != nil {
			return nil, fmt.Errorf("scan reference row: %w", err)
		}
		row.Class = domain.InstrumentClass(class)
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference rows: %w", err)
	}

	return result, nil
}
