package memory

import (
	"context"
	"sync"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// RiskStateStore is an in-memory implementation of storage.RiskStateStore.
// It enforces the same compare-and-swap contract as the durable stores so the
// gate's retry loop is exercised identically in tests.
type RiskStateStore struct {
	mu    sync.Mutex
	state *domain.RiskState
}

// NewRiskStateStore creates a new in-memory risk state store.
func NewRiskStateStore() *RiskStateStore {
	return &RiskStateStore{}
}

// Load returns the current state, or DefaultRiskState when none was saved yet
// or the record is insane.
func (s *RiskStateStore) Load(_ context.Context) (*domain.RiskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || !s.state.Sane() {
		return domain.DefaultRiskState(), nil
	}
	return copyState(s.state), nil
}

// Save persists the state if its Version still matches the stored one, then
// bumps Version and stamps UpdatedAt. Returns ErrVersionConflict otherwise.
func (s *RiskStateStore) Save(_ context.Context, state *domain.RiskState) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if s.state != nil {
		current = s.state.Version
	}
	if state.Version != current {
		return storage.ErrVersionConflict
	}

	next := copyState(state)
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	s.state = next

	state.Version = next.Version
	state.UpdatedAt = next.UpdatedAt
	return nil
}

func copyState(s *domain.RiskState) *domain.RiskState {
	copy := *s
	copy.RollingHistory = append([]domain.EvalOutcome(nil), s.RollingHistory...)
	if s.SuspendedUntil != nil {
		t := *s.SuspendedUntil
		copy.SuspendedUntil = &t
	}
	return &copy
}

var _ storage.RiskStateStore = (*RiskStateStore)(nil)
