package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-backtest-lab/internal/domain"
)

func frictionlessConfig() domain.ExecutionConfig {
	cfg := domain.DefaultExecutionConfig()
	cfg.SlippageBps = 0
	cfg.ImpactCoeffBps = 0
	cfg.ImpactFallbackBps = 0
	return cfg
}

func zeroFees() domain.FeeSchedule {
	return domain.FeeSchedule{}
}

func longPick(symbol string) *domain.Pick {
	return &domain.Pick{
		Symbol:       symbol,
		Side:         domain.SideLong,
		Class:        domain.ClassEquity,
		EntryPrice:   100,
		StopPrice:    98,
		TargetPrice:  105,
		Probability:  0.6,
		SizeFraction: 0.10,
		EngineTag:    "stub",
	}
}

func refRow(symbol string, adv float64) *domain.ReferenceRow {
	return &domain.ReferenceRow{
		Symbol:        symbol,
		Class:         domain.ClassEquity,
		LotSize:       1,
		TickSize:      0.05,
		AvgDailyValue: adv,
	}
}

func TestRoundToTick_Idempotent(t *testing.T) {
	prices := []float64{0.07, 99.98, 100.024, 100.025, 1234.567, 0.0499}
	ticks := []float64{0.05, 0.01, 0.10}

	for _, tick := range ticks {
		for _, p := range prices {
			once := RoundToTick(p, tick)
			twice := RoundToTick(once, tick)
			assert.Equal(t, once, twice, "price %v tick %v", p, tick)
		}
	}
}

func TestRoundToTick_NonPositiveTickIsIdentity(t *testing.T) {
	assert.Equal(t, 100.03, RoundToTick(100.03, 0))
	assert.Equal(t, 100.03, RoundToTick(100.03, -1))
}

func TestApplySlippage_Direction(t *testing.T) {
	assert.Greater(t, ApplySlippage(100, 10, true), 100.0, "buy pays up")
	assert.Less(t, ApplySlippage(100, 10, false), 100.0, "sell receives down")
}

func TestSimulateFold_BuySideSlippageRoundedToTick(t *testing.T) {
	cfg := frictionlessConfig()
	cfg.SlippageBps = 5

	sim, err := NewSimulator(cfg, zeroFees())
	require.NoError(t, err)

	refs := map[string]*domain.ReferenceRow{"RELIANCE": refRow("RELIANCE", 5_00_00_00_000)}
	res := sim.SimulateFold("run1", 0, []*domain.Pick{longPick("RELIANCE")}, refs)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]

	// entry 100 + 5bps = 100.05, already on the 0.05 grid.
	assert.InDelta(t, 100.05, tr.EntryFill, 1e-9)
	assert.Greater(t, tr.EntryFill, 100.0)

	// |105-100.05| > |100.05-98| -> win on the target leg.
	assert.Equal(t, domain.OutcomeWin, tr.Outcome)
	assert.Equal(t, domain.ExitReasonTarget, tr.ExitReason)
	assert.Equal(t, 0.0, tr.Fees)
	assert.Equal(t, tr.GrossPnL, tr.NetPnL)
}

func TestSimulateFold_ZeroADVUsesFixedImpactFallback(t *testing.T) {
	cfg := frictionlessConfig()
	cfg.ImpactCoeffBps = domain.DefaultImpactCoeffBps
	cfg.ImpactFallbackBps = domain.DefaultImpactFallbackBps

	sim, err := NewSimulator(cfg, zeroFees())
	require.NoError(t, err)

	refs := map[string]*domain.ReferenceRow{"ILLIQUID": refRow("ILLIQUID", 0)}
	res := sim.SimulateFold("run1", 0, []*domain.Pick{longPick("ILLIQUID")}, refs)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]

	// 80 bps fallback on a 100 entry, rounded to the 0.05 grid.
	assert.InDelta(t, 100.80, tr.EntryFill, 0.05+1e-9)
	assert.Greater(t, tr.EntryFill, 100.5)
}

func TestSimulateFold_MissingReferenceUsesDefaults(t *testing.T) {
	sim, err := NewSimulator(frictionlessConfig(), zeroFees())
	require.NoError(t, err)

	res := sim.SimulateFold("run1", 0, []*domain.Pick{longPick("NODATA")}, nil)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 1, res.MissingReference)
	assert.Equal(t, 0, res.DroppedPicks)
	// Default lot size 1, tick 0.05: entry stays on grid.
	assert.InDelta(t, 100.0, res.Trades[0].EntryFill, 1e-9)
}

func TestSimulateFold_DegeneratePickDroppedRestProcessed(t *testing.T) {
	sim, err := NewSimulator(frictionlessConfig(), zeroFees())
	require.NoError(t, err)

	bad := longPick("BAD")
	bad.StopPrice = 101 // stop >= entry for a long

	res := sim.SimulateFold("run1", 0, []*domain.Pick{bad, longPick("GOOD")}, nil)

	assert.Equal(t, 1, res.DroppedPicks)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "GOOD", res.Trades[0].Symbol)
}

func TestSimulateFold_ShortPickMirrored(t *testing.T) {
	sim, err := NewSimulator(frictionlessConfig(), zeroFees())
	require.NoError(t, err)

	short := &domain.Pick{
		Symbol:       "SHORTY",
		Side:         domain.SideShort,
		Class:        domain.ClassEquity,
		EntryPrice:   100,
		StopPrice:    102,
		TargetPrice:  95,
		Probability:  0.6,
		SizeFraction: 0.10,
		EngineTag:    "stub",
	}
	res := sim.SimulateFold("run1", 0, []*domain.Pick{short}, nil)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	// |95-100| >= |100-102| -> short wins, gross positive.
	assert.Equal(t, domain.OutcomeWin, tr.Outcome)
	assert.Greater(t, tr.GrossPnL, 0.0)
}

func TestSimulateFold_NetNeverExceedsGross(t *testing.T) {
	sim, err := NewSimulator(domain.DefaultExecutionConfig(), domain.DefaultFeeSchedule())
	require.NoError(t, err)

	refs := map[string]*domain.ReferenceRow{"RELIANCE": refRow("RELIANCE", 50_00_00_000)}
	picks := []*domain.Pick{longPick("RELIANCE")}

	res := sim.SimulateFold("run1", 0, picks, refs)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]

	assert.GreaterOrEqual(t, tr.Fees, 0.0)
	assert.LessOrEqual(t, tr.NetPnL, tr.GrossPnL)
}

// Raising any one cost parameter must not raise net PnL, all else equal.
func TestSimulateFold_CostMonotonicity(t *testing.T) {
	base := frictionlessConfig()
	refs := map[string]*domain.ReferenceRow{"RELIANCE": refRow("RELIANCE", 5_00_00_00_000)}

	netWith := func(cfg domain.ExecutionConfig, fees domain.FeeSchedule) float64 {
		sim, err := NewSimulator(cfg, fees)
		require.NoError(t, err)
		res := sim.SimulateFold("run1", 0, []*domain.Pick{longPick("RELIANCE")}, refs)
		require.Len(t, res.Trades, 1)
		return res.Trades[0].NetPnL
	}

	baseline := netWith(base, zeroFees())

	moreSlip := base
	moreSlip.SlippageBps = 25
	assert.LessOrEqual(t, netWith(moreSlip, zeroFees()), baseline, "slippage")

	moreImpact := base
	moreImpact.ImpactCoeffBps = 60
	assert.LessOrEqual(t, netWith(moreImpact, zeroFees()), baseline, "impact")

	fees := zeroFees()
	fees.Equity.CommissionBps = 10
	assert.LessOrEqual(t, netWith(base, fees), baseline, "commission")

	flat := zeroFees()
	flat.FlatPerOrder = 20
	assert.LessOrEqual(t, netWith(base, flat), baseline, "flat fee")
}

func TestSimulateFold_CircuitClampBoundsBracket(t *testing.T) {
	cfg := frictionlessConfig()
	sim, err := NewSimulator(cfg, zeroFees())
	require.NoError(t, err)

	wide := longPick("WIDE")
	wide.TargetPrice = 160 // beyond the 20% equity band
	wide.StopPrice = 70    // below the band

	res := sim.SimulateFold("run1", 0, []*domain.Pick{wide}, nil)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]

	// Both legs clamp to +/-20% of the entry fill; distances tie, target wins.
	assert.Equal(t, domain.OutcomeWin, tr.Outcome)
	assert.InDelta(t, 120.0, tr.ExitFill, 0.05+1e-9)
}

func TestSimulateFold_LotSizingRoundsDownToAtLeastOneLot(t *testing.T) {
	cfg := frictionlessConfig()
	cfg.CapitalBase = 10_00_000
	sim, err := NewSimulator(cfg, zeroFees())
	require.NoError(t, err)

	lotted := longPick("NIFTYFUT")
	lotted.Class = domain.ClassDerivative
	lotted.SizeFraction = 0.05 // 50k target, lot notional 50*100=5k -> 10 lots

	refs := map[string]*domain.ReferenceRow{
		"NIFTYFUT": {Symbol: "NIFTYFUT", Class: domain.ClassDerivative, LotSize: 50, TickSize: 0.05, AvgDailyValue: 10_00_00_00_000},
	}
	res := sim.SimulateFold("run1", 0, []*domain.Pick{lotted}, refs)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, int64(10), tr.Lots)
	assert.Equal(t, int64(500), tr.Quantity)
	assert.InDelta(t, 1.0, tr.FillRatio, 0.01)

	// A tiny target still fills one lot.
	tiny := longPick("NIFTYFUT")
	tiny.Class = domain.ClassDerivative
	tiny.SizeFraction = 0.001
	res = sim.SimulateFold("run1", 1, []*domain.Pick{tiny}, refs)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, int64(1), res.Trades[0].Lots)
}

func TestSimulateFold_DeterministicTradeIDs(t *testing.T) {
	sim, err := NewSimulator(frictionlessConfig(), zeroFees())
	require.NoError(t, err)

	a := sim.SimulateFold("run1", 0, []*domain.Pick{longPick("RELIANCE")}, nil)
	b := sim.SimulateFold("run1", 0, []*domain.Pick{longPick("RELIANCE")}, nil)
	require.Len(t, a.Trades, 1)
	require.Len(t, b.Trades, 1)
	assert.Equal(t, a.Trades[0].TradeID, b.Trades[0].TradeID)
	assert.Len(t, a.Trades[0].TradeID, 64)
}
