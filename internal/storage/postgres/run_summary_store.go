package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// RunSummaryStore implements storage.RunSummaryStore using PostgreSQL.
// Fold results and the aggregate summary are stored as JSONB documents;
// nothing queries into them server-side.
type RunSummaryStore struct {
	pool *Pool
}

// NewRunSummaryStore creates a new RunSummaryStore.
func NewRunSummaryStore(pool *Pool) *RunSummaryStore {
	return &RunSummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(ctx context.Context, summary *domain.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return storage.ErrInvalidInput
	}

	foldsJSON, err := json.Marshal(summary.Folds)
	if err != nil {
		return fmt.Errorf("marshal fold results: %w", err)
	}
	aggJSON, err := json.Marshal(summary.Aggregate)
	if err != nil {
		return fmt.Errorf("marshal aggregate summary: %w", err)
	}

	query := `
		INSERT INTO run_summaries (
			run_id, generated_at, folds_requested, folds_evaluated,
			embargo_days, universe, folds, aggregate, risk_mode
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		summary.RunID, summary.GeneratedAt, summary.FoldsRequested, summary.FoldsEvaluated,
		summary.EmbargoDays, summary.Universe, foldsJSON, aggJSON, string(summary.RiskMode),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// GetByID retrieves a summary. Returns ErrNotFound if not exists.
func (s *RunSummaryStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	query := `
		SELECT run_id, generated_at, folds_requested, folds_evaluated,
		       embargo_days, universe, folds, aggregate, risk_mode
		FROM run_summaries
		WHERE run_id = $1
	`

	var summary domain.RunSummary
	var foldsJSON, aggJSON []byte
	var riskMode string
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&summary.RunID, &summary.GeneratedAt, &summary.FoldsRequested, &summary.FoldsEvaluated,
		&summary.EmbargoDays, &summary.Universe, &foldsJSON, &aggJSON, &riskMode,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run summary by id: %w", err)
	}

	if err := json.Unmarshal(foldsJSON, &summary.Folds); err != nil {
		return nil, fmt.Errorf("unmarshal fold results: %w", err)
	}
	if err := json.Unmarshal(aggJSON, &summary.Aggregate); err != nil {
		return nil, fmt.Errorf("unmarshal aggregate summary: %w", err)
	}
	summary.RiskMode = domain.RiskMode(riskMode)

	return &summary, nil
}
