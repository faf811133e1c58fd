package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// riskStateRowID pins the kill-switch record to a single row. There is one
// ladder per deployment.
const riskStateRowID = 1

// RiskStateStore implements storage.RiskStateStore using PostgreSQL.
// Save is compare-and-swap through `UPDATE ... WHERE version = $n`, so
// concurrent evaluators cannot silently overwrite each other.
type RiskStateStore struct {
	pool *Pool
}

// NewRiskStateStore creates a new RiskStateStore.
func NewRiskStateStore(pool *Pool) *RiskStateStore {
	return &RiskStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RiskStateStore = (*RiskStateStore)(nil)

// Load reads the current state. A missing or insane record yields
// DefaultRiskState with a nil error; infrastructure failures do not.
func (s *RiskStateStore) Load(ctx context.Context) (*domain.RiskState, error) {
	query := `
		SELECT mode, rolling_history, consecutive_bad, suspended_until, updated_at, version
		FROM risk_state
		WHERE id = $1
	`

	var state domain.RiskState
	var mode string
	var historyJSON []byte
	var suspendedUntil *time.Time
	err := s.pool.QueryRow(ctx, query, riskStateRowID).Scan(
		&mode, &historyJSON, &state.ConsecutiveBad, &suspendedUntil, &state.UpdatedAt, &state.Version,
	)
	if err != nil {
		if isNotFoundError(err) {
			return domain.DefaultRiskState(), nil
		}
		return nil, fmt.Errorf("load risk state: %w", err)
	}

	state.Mode = domain.RiskMode(mode)
	state.SuspendedUntil = suspendedUntil
	if err := json.Unmarshal(historyJSON, &state.RollingHistory); err != nil {
		return domain.DefaultRiskState(), nil
	}
	if !state.Sane() {
		return domain.DefaultRiskState(), nil
	}
	return &state, nil
}

// Save persists the state if its Version still matches the stored row, then
// bumps Version and stamps UpdatedAt. Returns ErrVersionConflict otherwise.
func (s *RiskStateStore) Save(ctx context.Context, state *domain.RiskState) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	historyJSON, err := json.Marshal(state.RollingHistory)
	if err != nil {
		return fmt.Errorf("marshal rolling history: %w", err)
	}

	now := time.Now().UTC()
	nextVersion := state.Version + 1

	if state.Version == 0 {
		// First write: insert, or lose the race to a concurrent first writer.
		query := `
			INSERT INTO risk_state (id, mode, rolling_history, consecutive_bad, suspended_until, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`
		tag, err := s.pool.Exec(ctx, query,
			riskStateRowID, string(state.Mode), historyJSON, state.ConsecutiveBad,
			state.SuspendedUntil, now, nextVersion,
		)
		if err != nil {
			return fmt.Errorf("insert risk state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrVersionConflict
		}
		state.Version = nextVersion
		state.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE risk_state
		SET mode = $1, rolling_history = $2, consecutive_bad = $3,
		    suspended_until = $4, updated_at = $5, version = $6
		WHERE id = $7 AND version = $8
	`
	tag, err := s.pool.Exec(ctx, query,
		string(state.Mode), historyJSON, state.ConsecutiveBad,
		state.SuspendedUntil, now, nextVersion,
		riskStateRowID, state.Version,
	)
	if err != nil {
		return fmt.Errorf("update risk state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrVersionConflict
	}

	state.Version = nextVersion
	state.UpdatedAt = now
	return nil
}
