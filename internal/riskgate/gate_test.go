package riskgate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage/memory"
)

// fakeClock lets tests walk the gate through cooloff windows.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGate(t *testing.T) (*Gate, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)}
	gate := NewGate(domain.DefaultKillSwitchConfig(), memory.NewRiskStateStore())
	gate.now = clock.now
	return gate, clock
}

func evalCycles(t *testing.T, gate *Gate, clock *fakeClock, winRates []float64) *domain.RiskState {
	t.Helper()
	var state *domain.RiskState
	var err error
	for _, wr := range winRates {
		state, err = gate.Evaluate(context.Background(), domain.EvalOutcome{
			At: clock.t, WinRate: wr, Trades: 20,
		})
		require.NoError(t, err)
		clock.advance(time.Hour)
	}
	return state
}

func TestGate_StaysNormalOnHealthyCycles(t *testing.T) {
	gate, clock := newTestGate(t)
	state := evalCycles(t, gate, clock, []float64{0.55, 0.48, 0.60, 0.52})
	assert.Equal(t, domain.RiskModeNormal, state.Mode)
	assert.Equal(t, 0, state.ConsecutiveBad)
}

func TestGate_NoVerdictBeforeMinCycles(t *testing.T) {
	gate, clock := newTestGate(t)
	// Two terrible cycles: below MinCyclesForVerdict, mode must hold.
	state := evalCycles(t, gate, clock, []float64{0.10, 0.10})
	assert.Equal(t, domain.RiskModeNormal, state.Mode)
	assert.Equal(t, 2, state.ConsecutiveBad)
}

func TestGate_TightOnRollingBelowTier1(t *testing.T) {
	gate, clock := newTestGate(t)
	// Rolling weighted win rate lands between tier-2 (0.25) and tier-1 (0.30),
	// with no cycle individually below tier-2.
	state := evalCycles(t, gate, clock, []float64{0.28, 0.29, 0.27})
	assert.Equal(t, domain.RiskModeTight, state.Mode)
}

func TestGate_SevereOnRollingBelowTier2(t *testing.T) {
	gate, clock := newTestGate(t)
	// One bad cycle drags the rolling rate below 0.25 without tripping the
	// consecutive-bad or half-window suspension triggers.
	state := evalCycles(t, gate, clock, []float64{0.30, 0.28, 0.05})
	assert.Equal(t, domain.RiskModeSevere, state.Mode)
	assert.Nil(t, state.SuspendedUntil)
}

func TestGate_TenBadCyclesSuspendWithExactCooloff(t *testing.T) {
	gate, clock := newTestGate(t)

	rates := make([]float64, 10)
	for i := range rates {
		rates[i] = 0.10 // all below tier-2
	}
	state := evalCycles(t, gate, clock, rates)

	require.Equal(t, domain.RiskModeSuspended, state.Mode)
	require.NotNil(t, state.SuspendedUntil)

	// Stamped exactly cooloff_hours after the last evaluation
	lastEval := clock.t.Add(-time.Hour)
	want := lastEval.Add(24 * time.Hour)
	assert.True(t, state.SuspendedUntil.Equal(want),
		"suspended_until = %v, want %v", state.SuspendedUntil, want)
}

func TestGate_SuspendedHoldsUntilCooloffElapses(t *testing.T) {
	gate, clock := newTestGate(t)
	evalCycles(t, gate, clock, []float64{0.10, 0.10, 0.10})

	// A streak of perfect cycles inside the cooloff must not lift suspension
	state := evalCycles(t, gate, clock, []float64{1.0, 1.0, 1.0})
	assert.Equal(t, domain.RiskModeSuspended, state.Mode)
}

func TestGate_TimeBasedRecovery(t *testing.T) {
	gate, clock := newTestGate(t)
	state := evalCycles(t, gate, clock, []float64{0.10, 0.10, 0.10})
	require.Equal(t, domain.RiskModeSuspended, state.Mode)

	clock.advance(25 * time.Hour)

	// No new data needed: the next read past the deadline clears to normal
	state, err := gate.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RiskModeNormal, state.Mode)
	assert.Nil(t, state.SuspendedUntil)
}

func TestGate_BadCycleWhileSuspendedRestartsCooloff(t *testing.T) {
	gate, clock := newTestGate(t)
	evalCycles(t, gate, clock, []float64{0.10, 0.10, 0.10})

	clock.advance(10 * time.Hour)
	state, err := gate.Evaluate(context.Background(), domain.EvalOutcome{At: clock.t, WinRate: 0.05, Trades: 10})
	require.NoError(t, err)

	require.Equal(t, domain.RiskModeSuspended, state.Mode)
	want := clock.t.Add(24 * time.Hour)
	assert.True(t, state.SuspendedUntil.Equal(want))
}

func TestGate_RecoveryClearsTight(t *testing.T) {
	gate, clock := newTestGate(t)
	state := evalCycles(t, gate, clock, []float64{0.28, 0.29, 0.27})
	require.Equal(t, domain.RiskModeTight, state.Mode)

	// Strong cycles push the rolling rate past the recovery bar
	state = evalCycles(t, gate, clock, []float64{0.60, 0.65, 0.70})
	assert.Equal(t, domain.RiskModeNormal, state.Mode)
}

func TestGate_StatePersistsAcrossGates(t *testing.T) {
	store := memory.NewRiskStateStore()
	clock := &fakeClock{t: time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)}

	gate := NewGate(domain.DefaultKillSwitchConfig(), store)
	gate.now = clock.now
	evalCycles(t, gate, clock, []float64{0.10, 0.10, 0.10})

	// A second gate over the same store sees the suspension
	other := NewGate(domain.DefaultKillSwitchConfig(), store)
	other.now = clock.now
	state, err := other.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RiskModeSuspended, state.Mode)
}

func mkPicks(probs ...float64) []*domain.Pick {
	picks := make([]*domain.Pick, len(probs))
	for i, p := range probs {
		picks[i] = &domain.Pick{Symbol: string(rune('A' + i)), Probability: p}
	}
	return picks
}

func TestThrottle_NormalPassesAll(t *testing.T) {
	gate, _ := newTestGate(t)
	state := &domain.RiskState{Mode: domain.RiskModeNormal}
	got := gate.Throttle(state, mkPicks(0.5, 0.9, 0.7))
	assert.Len(t, got, 3)
	// Ranked by confidence descending
	assert.InDelta(t, 0.9, got[0].Probability, 1e-9)
}

func TestThrottle_TightDropsBottomFifth(t *testing.T) {
	gate, _ := newTestGate(t)
	state := &domain.RiskState{Mode: domain.RiskModeTight}
	got := gate.Throttle(state, mkPicks(0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.05))
	assert.Len(t, got, 8)
	assert.InDelta(t, 0.2, got[len(got)-1].Probability, 1e-9)
}

func TestThrottle_SevereDropsHalf(t *testing.T) {
	gate, _ := newTestGate(t)
	state := &domain.RiskState{Mode: domain.RiskModeSevere}
	got := gate.Throttle(state, mkPicks(0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.05))
	assert.Len(t, got, 5)
}

func TestThrottle_SuspendedTopTwoOnly(t *testing.T) {
	gate, _ := newTestGate(t)
	state := &domain.RiskState{Mode: domain.RiskModeSuspended}
	got := gate.Throttle(state, mkPicks(0.3, 0.9, 0.6, 0.8))
	require.Len(t, got, 2)
	assert.InDelta(t, 0.9, got[0].Probability, 1e-9)
	assert.InDelta(t, 0.8, got[1].Probability, 1e-9)
}

func TestThrottle_AlwaysKeepsAtLeastOne(t *testing.T) {
	gate, _ := newTestGate(t)
	state := &domain.RiskState{Mode: domain.RiskModeSevere}
	got := gate.Throttle(state, mkPicks(0.5))
	assert.Len(t, got, 1)
}
