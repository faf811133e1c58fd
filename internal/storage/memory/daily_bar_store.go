package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

type barKey struct {
	symbol string
	date   time.Time
}

// DailyBarStore is an in-memory implementation of storage.DailyBarStore.
type DailyBarStore struct {
	mu   sync.RWMutex
	data map[barKey]*domain.DailyBar
}

// NewDailyBarStore creates a new in-memory daily bar store.
func NewDailyBarStore() *DailyBarStore {
	return &DailyBarStore{
		data: make(map[barKey]*domain.DailyBar),
	}
}

// InsertBulk adds multiple bars atomically. Fails entire batch on any
// duplicate (symbol, date).
func (s *DailyBarStore) InsertBulk(_ context.Context, bars []*domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[barKey]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := barKey{symbol: b.Symbol, date: b.Date.UTC()}

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		copy := *b
		copy.Date = b.Date.UTC()
		s.data[barKey{symbol: b.Symbol, date: copy.Date}] = &copy
	}

	return nil
}

// GetBySymbol retrieves bars within [from, to] inclusive, ordered by date ASC.
func (s *DailyBarStore) GetBySymbol(_ context.Context, symbol string, from, to time.Time) ([]*domain.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyBar
	for key, b := range s.data {
		if key.symbol != symbol {
			continue
		}
		if key.date.Before(from) || key.date.After(to) {
			continue
		}
		copy := *b
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// DistinctDates retrieves the sorted unique trading dates in [from, to]
// across all symbols.
func (s *DailyBarStore) DistinctDates(_ context.Context, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[time.Time]struct{})
	for key := range s.data {
		if key.date.Before(from) || key.date.After(to) {
			continue
		}
		seen[key.date] = struct{}{}
	}

	result := make([]time.Time, 0, len(seen))
	for d := range seen {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Before(result[j])
	})

	return result, nil
}

// AvgDailyValue computes the trailing average daily traded value over the
// window ending at asOf. Returns 0 when no bars exist in the window.
func (s *DailyBarStore) AvgDailyValue(_ context.Context, symbol string, asOf time.Time, window int) (float64, error) {
	if window <= 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var dates []time.Time
	for key := range s.data {
		if key.symbol != symbol || key.date.After(asOf) {
			continue
		}
		dates = append(dates, key.date)
	}
	if len(dates) == 0 {
		return 0, nil
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	if len(dates) > window {
		dates = dates[len(dates)-window:]
	}

	var sum float64
	for _, d := range dates {
		sum += s.data[barKey{symbol: symbol, date: d}].ValueTraded
	}
	return sum / float64(len(dates)), nil
}

var _ storage.DailyBarStore = (*DailyBarStore)(nil)
