// Package signal defines the adapter boundary between external pick engines
// and the walk-forward core. The core only ever sees the Source interface;
// whatever model produced the picks is invisible past this point.
package signal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// Registry errors
var (
	ErrUnknownSource   = errors.New("unknown signal source")
	ErrDuplicateSource = errors.New("signal source already registered")
	ErrMissingBarStore = errors.New("signal source requires a daily bar store")
)

// Source produces ranked picks for one test window.
type Source interface {
	// Picks returns candidates for the universe as of the given date.
	// Implementations must only consult data at or before asOf.
	Picks(ctx context.Context, asOf time.Time, universe []string) ([]*domain.Pick, error)

	// Name returns the engine tag stamped on every pick this source emits.
	Name() string
}

// Deps carries the stores a source may need. Sources that need nothing
// ignore it.
type Deps struct {
	Bars storage.DailyBarStore
}

// Factory constructs a Source from its dependencies.
type Factory func(deps Deps) (Source, error)

var registry = map[string]Factory{}

// Register adds a named source factory. Duplicate names are a programming
// error and panic at init time.
func Register(name string, factory Factory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Errorf("%w: %s", ErrDuplicateSource, name))
	}
	registry[name] = factory
}

// New constructs the named source. Returns ErrUnknownSource for names nothing
// registered.
func New(name string, deps Deps) (Source, error) {
	factory, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return factory(deps)
}

// Names returns the registered source names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
