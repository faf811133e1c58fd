package memory

import (
	"context"
	"sort"
	"sync"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// ReferenceDataStore is an in-memory implementation of storage.ReferenceDataStore.
type ReferenceDataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReferenceRow // keyed by symbol
}

// NewReferenceDataStore creates a new in-memory reference data store.
func NewReferenceDataStore() *ReferenceDataStore {
	return &ReferenceDataStore{
		data: make(map[string]*domain.ReferenceRow),
	}
}

// Upsert inserts or replaces a reference row.
func (s *ReferenceDataStore) Upsert(_ context.Context, row *domain.ReferenceRow) error {
	if row == nil || row.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *row
	s.data[row.Symbol] = &copy
	return nil
}

// GetBySymbol retrieves a row. Returns ErrNotFound if not exists.
func (s *ReferenceDataStore) GetBySymbol(_ context.Context, symbol string) (*domain.ReferenceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.data[symbol]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *row
	return &copy, nil
}

// GetAll retrieves every row, ordered by symbol ASC.
func (s *ReferenceDataStore) GetAll(_ context.Context) ([]*domain.ReferenceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ReferenceRow, 0, len(s.data))
	for _, row := range s.data {
		copy := *row
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

var _ storage.ReferenceDataStore = (*ReferenceDataStore)(nil)
