// Package riskgate implements the kill-switch ladder that stands between a
// pick engine and capital. Modes escalate on realized performance and only
// relax through measured recovery or a timed cooloff; they never jump from
// suspended back to normal on a single good cycle.
package riskgate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// maxSaveRetries bounds the CAS reload loop when evaluators race.
const maxSaveRetries = 3

// Gate evaluates outcomes against the ladder and throttles pick flow.
type Gate struct {
	cfg   domain.KillSwitchConfig
	store storage.RiskStateStore
	now   func() time.Time
}

// NewGate creates a gate over the given state store.
func NewGate(cfg domain.KillSwitchConfig, store storage.RiskStateStore) *Gate {
	return &Gate{cfg: cfg, store: store, now: time.Now}
}

// Evaluate folds one evaluation cycle's outcome into the persisted state and
// returns the resulting state. Saves are compare-and-swap; on conflict the
// state is reloaded and the outcome reapplied.
func (g *Gate) Evaluate(ctx context.Context, outcome domain.EvalOutcome) (*domain.RiskState, error) {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		state, err := g.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load risk state: %w", err)
		}

		g.apply(state, outcome)

		err = g.store.Save(ctx, state)
		if err == nil {
			return state, nil
		}
		if err != storage.ErrVersionConflict {
			return nil, fmt.Errorf("save risk state: %w", err)
		}
	}
	return nil, storage.ErrVersionConflict
}

// State returns the current state with expired suspensions cleared, without
// recording an outcome.
func (g *Gate) State(ctx context.Context) (*domain.RiskState, error) {
	state, err := g.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load risk state: %w", err)
	}
	g.clearExpiredSuspension(state)
	return state, nil
}

// apply mutates state with one outcome and re-derives the mode.
func (g *Gate) apply(state *domain.RiskState, outcome domain.EvalOutcome) {
	now := g.now()
	if outcome.At.IsZero() {
		outcome.At = now
	}

	g.clearExpiredSuspension(state)

	outcome.Bad = outcome.WinRate < g.cfg.Tier2WinRateFloor
	state.AppendOutcome(outcome, g.cfg.HistoryCap)
	if outcome.Bad {
		state.ConsecutiveBad++
	} else {
		state.ConsecutiveBad = 0
	}

	// An active suspension only ends by cooloff expiry above. A bad cycle
	// while suspended restarts the cooloff clock.
	if state.Mode == domain.RiskModeSuspended {
		if outcome.Bad {
			g.suspend(state, now)
		}
		return
	}

	window := state.Window(g.cfg.LookbackWindow)
	if len(window) < g.cfg.MinCyclesForVerdict {
		return
	}

	rolling := rollingWinRate(window)
	badInWindow := countBad(window)

	switch {
	case state.ConsecutiveBad >= g.cfg.SuspendConsecBad || badInWindow > len(window)/2:
		g.suspend(state, now)
	case rolling < g.cfg.Tier2WinRateFloor || state.ConsecutiveBad >= g.cfg.SevereConsecBad:
		state.Mode = domain.RiskModeSevere
	case rolling < g.cfg.Tier1WinRateFloor:
		state.Mode = domain.RiskModeTight
	case rolling >= g.cfg.RecoveryWinRate:
		state.Mode = domain.RiskModeNormal
	default:
		// Between the tight floor and the recovery bar: step down one
		// rung at most, never straight to normal.
		if state.Mode == domain.RiskModeSevere {
			state.Mode = domain.RiskModeTight
		}
	}
}

func (g *Gate) suspend(state *domain.RiskState, now time.Time) {
	until := now.Add(time.Duration(g.cfg.CooloffHours * float64(time.Hour)))
	state.Mode = domain.RiskModeSuspended
	state.SuspendedUntil = &until
}

// clearExpiredSuspension resets an expired suspension to normal. Recovery is
// time-based: the cooloff elapsing is sufficient, no good cycles required.
func (g *Gate) clearExpiredSuspension(state *domain.RiskState) {
	if state.Mode != domain.RiskModeSuspended || state.SuspendedUntil == nil {
		return
	}
	if g.now().After(*state.SuspendedUntil) {
		state.Mode = domain.RiskModeNormal
		state.SuspendedUntil = nil
		state.ConsecutiveBad = 0
	}
}

// Throttle filters picks according to the mode. Picks are ranked by model
// probability descending; throttling drops from the bottom.
func (g *Gate) Throttle(state *domain.RiskState, picks []*domain.Pick) []*domain.Pick {
	if len(picks) == 0 {
		return nil
	}

	ranked := make([]*domain.Pick, len(picks))
	copy(ranked, picks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	switch state.Mode {
	case domain.RiskModeTight:
		return ranked[:keepCount(len(ranked), g.cfg.TightDropFraction)]
	case domain.RiskModeSevere:
		return ranked[:keepCount(len(ranked), g.cfg.SevereDropFraction)]
	case domain.RiskModeSuspended:
		n := g.cfg.SuspendedMaxPicks
		if n > len(ranked) {
			n = len(ranked)
		}
		return ranked[:n]
	default:
		return ranked
	}
}

// keepCount keeps at least one pick after dropping the bottom fraction.
func keepCount(total int, dropFraction float64) int {
	keep := total - int(float64(total)*dropFraction)
	if keep < 1 {
		keep = 1
	}
	return keep
}

func rollingWinRate(window []domain.EvalOutcome) float64 {
	var trades, weighted float64
	for _, o := range window {
		w := float64(o.Trades)
		if w <= 0 {
			w = 1
		}
		trades += w
		weighted += o.WinRate * w
	}
	if trades == 0 {
		return 0
	}
	return weighted / trades
}

func countBad(window []domain.EvalOutcome) int {
	var n int
	for _, o := range window {
		if o.Bad {
			n++
		}
	}
	return n
}
