package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// TradeLedgerStore implements storage.TradeLedgerStore using PostgreSQL.
type TradeLedgerStore struct {
	pool *Pool
}

// NewTradeLedgerStore creates a new TradeLedgerStore.
func NewTradeLedgerStore(pool *Pool) *TradeLedgerStore {
	return &TradeLedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLedgerStore = (*TradeLedgerStore)(nil)

const tradeLedgerColumns = `
	trade_id, run_id, fold_index, symbol, side, class, engine_tag,
	entry_fill, exit_fill, lots, quantity, notional, fill_ratio,
	gross_pnl, fees, net_pnl, exit_reason, outcome
`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeLedgerStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_ledger (` + tradeLedgerColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)
	`

	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.RunID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			t.TradeID, t.RunID, t.FoldIndex, t.Symbol, string(t.Side), string(t.Class), t.EngineTag,
			t.EntryFill, t.ExitFill, t.Lots, t.Quantity, t.Notional, t.FillRatio,
			t.GrossPnL, t.Fees, t.NetPnL, t.ExitReason, t.Outcome,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByFold retrieves all trades for one fold of a run, ordered by trade_id ASC.
func (s *TradeLedgerStore) GetByFold(ctx context.Context, runID string, foldIndex int) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeLedgerColumns + `
		FROM trade_ledger
		WHERE run_id = $1 AND fold_index = $2
		ORDER BY trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, foldIndex)
	if err != nil {
		return nil, fmt.Errorf("get trades by fold: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByRun retrieves all trades for a run, ordered by fold ASC then trade_id ASC.
func (s *TradeLedgerStore) GetByRun(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeLedgerColumns + `
		FROM trade_ledger
		WHERE run_id = $1
		ORDER BY fold_index ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var t domain.Trade
		var side, class string

		err := rows.Scan(
			&t.TradeID, &t.RunID, &t.FoldIndex, &t.Symbol, &side, &class, &t.EngineTag,
			&t.EntryFill, &t.ExitFill, &t.Lots, &t.Quantity, &t.Notional, &t.FillRatio,
			&t.GrossPnL, &t.Fees, &t.NetPnL, &t.ExitReason, &t.Outcome,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.Side = domain.Side(side)
		t.Class = domain.InstrumentClass(class)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
