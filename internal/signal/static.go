package signal

import (
	"context"
	"time"

	"equity-backtest-lab/internal/domain"
)

// StaticSource replays a fixed set of picks regardless of date. Used for
// wiring tests and dry runs where the pick engine lives outside the process.
type StaticSource struct {
	name  string
	picks []*domain.Pick
}

// NewStaticSource creates a source that always returns the given picks,
// filtered to the requested universe.
func NewStaticSource(name string, picks []*domain.Pick) *StaticSource {
	return &StaticSource{name: name, picks: picks}
}

// Name returns the engine tag.
func (s *StaticSource) Name() string { return s.name }

// Picks returns the fixed picks whose symbols are in the universe. A nil or
// empty universe returns everything.
func (s *StaticSource) Picks(_ context.Context, _ time.Time, universe []string) ([]*domain.Pick, error) {
	if len(universe) == 0 {
		result := make([]*domain.Pick, len(s.picks))
		for i, p := range s.picks {
			copy := *p
			result[i] = &copy
		}
		return result, nil
	}

	allowed := make(map[string]struct{}, len(universe))
	for _, sym := range universe {
		allowed[sym] = struct{}{}
	}

	var result []*domain.Pick
	for _, p := range s.picks {
		if _, ok := allowed[p.Symbol]; ok {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

var _ Source = (*StaticSource)(nil)
