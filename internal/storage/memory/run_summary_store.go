package memory

import (
	"context"
	"sync"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// RunSummaryStore is an in-memory implementation of storage.RunSummaryStore.
type RunSummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewRunSummaryStore creates a new in-memory run summary store.
func NewRunSummaryStore() *RunSummaryStore {
	return &RunSummaryStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(_ context.Context, summary *domain.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[summary.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[summary.RunID] = copySummary(summary)
	return nil
}

// GetByID retrieves a summary. Returns ErrNotFound if not exists.
func (s *RunSummaryStore) GetByID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copySummary(summary), nil
}

func copySummary(s *domain.RunSummary) *domain.RunSummary {
	copy := *s
	copy.Folds = make([]domain.FoldResult, len(s.Folds))
	for i, f := range s.Folds {
		copy.Folds[i] = f
		copy.Folds[i].EnginesUsed = append([]string(nil), f.EnginesUsed...)
	}
	return &copy
}

var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)
