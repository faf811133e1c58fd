// Package execution converts theoretical signal picks into realistic fills:
// slippage, tick rounding, lot sizing, square-root market impact, circuit
// clamping and fee deduction.
package execution

import (
	"fmt"
	"math"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/idhash"
)

// Simulator executes pick batches against reference data. It performs no I/O;
// persisting the returned trades is the caller's responsibility.
//
// Bracket resolution is deliberately simplified: a pick wins iff the distance
// from entry to target is >= the distance from entry to stop (tie favors the
// target leg), ignoring path dependency within the holding period. Downstream
// metrics are calibrated against this rule.
type Simulator struct {
	cfg  domain.ExecutionConfig
	fees domain.FeeSchedule
}

// BatchResult holds the trades for one fold plus recovery counters.
type BatchResult struct {
	Trades           []*domain.Trade
	DroppedPicks     int // degenerate picks removed from the batch
	MissingReference int // picks simulated with default reference data
}

// NewSimulator validates the configuration. A nil-equivalent fee schedule is
// legal (zero fees); a negative one is not.
func NewSimulator(cfg domain.ExecutionConfig, fees domain.FeeSchedule) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("execution config: %w", err)
	}
	if err := fees.Validate(); err != nil {
		return nil, fmt.Errorf("fee schedule: %w", err)
	}
	return &Simulator{cfg: cfg, fees: fees}, nil
}

// SimulateFold fills every sane pick in the batch. Degenerate picks are
// dropped and counted; picks without a reference row fall back to defaults
// rather than failing the batch.
func (s *Simulator) SimulateFold(runID string, foldIndex int, picks []*domain.Pick, refs map[string]*domain.ReferenceRow) *BatchResult {
	res := &BatchResult{Trades: make([]*domain.Trade, 0, len(picks))}

	for _, p := range picks {
		if p == nil || p.Validate() != nil {
			res.DroppedPicks++
			continue
		}

		ref, ok := refs[p.Symbol]
		lot, tick, adv := s.resolveReference(ref)
		if !ok || ref == nil {
			res.MissingReference++
		}

		res.Trades = append(res.Trades, s.fill(runID, foldIndex, p, lot, tick, adv))
	}
	return res
}

// resolveReference substitutes documented defaults for missing or unusable
// reference fields. A present row with ADV exactly zero is kept at zero so
// impact uses the fixed fallback.
func (s *Simulator) resolveReference(ref *domain.ReferenceRow) (lot int64, tick, adv float64) {
	lot = s.cfg.DefaultLotSize
	tick = s.cfg.DefaultTickSize
	adv = s.cfg.ADVFloor

	if ref == nil {
		return lot, tick, adv
	}
	if ref.LotSize >= 1 {
		lot = ref.LotSize
	}
	if ref.TickSize > 0 {
		tick = ref.TickSize
	}
	if ref.AvgDailyValue >= 0 {
		adv = ref.AvgDailyValue
	}
	return lot, tick, adv
}

// fill runs the seven execution steps for one pick, in order: slippage,
// tick rounding, lot sizing, market impact, circuit clamp, bracket
// resolution, fees.
func (s *Simulator) fill(runID string, foldIndex int, p *domain.Pick, lot int64, tick, adv float64) *domain.Trade {
	buying := p.Side == domain.SideLong

	// 1-2. Slippage against the trader, then tick rounding.
	entry := RoundToTick(ApplySlippage(p.EntryPrice, s.cfg.SlippageBps, buying), tick)

	// 3. Lot sizing from target notional.
	frac := p.SizeFraction
	if frac > s.cfg.MaxExposureFraction {
		frac = s.cfg.MaxExposureFraction
	}
	targetNotional := frac * s.cfg.CapitalBase
	lots := int64(1)
	if lotNotional := entry * float64(lot); lotNotional > 0 {
		if n := int64(math.Floor(targetNotional / lotNotional)); n > 1 {
			lots = n
		}
	}
	qty := lots * lot

	// 4. Market impact on the entry, same direction as slippage.
	impact := ImpactBps(entry*float64(qty), adv, s.cfg.ImpactCoeffBps, s.cfg.ImpactFallbackBps)
	entryFill := RoundToTick(ApplySlippage(entry, impact, buying), tick)
	notional := entryFill * float64(qty)

	fillRatio := 1.0
	if targetNotional > 0 {
		fillRatio = notional / targetNotional
	}

	// 5. Circuit clamp around the impacted entry.
	circuit := s.cfg.CircuitPct(p.Class)
	target := ClampToCircuit(p.TargetPrice, entryFill, circuit)
	stop := ClampToCircuit(p.StopPrice, entryFill, circuit)

	// 6. Bracket resolution: target leg wins ties.
	dTarget := math.Abs(target - entryFill)
	dStop := math.Abs(entryFill - stop)
	win := dTarget >= dStop

	exitLevel := stop
	exitReason := domain.ExitReasonStop
	outcome := domain.OutcomeLoss
	if win {
		exitLevel = target
		exitReason = domain.ExitReasonTarget
		outcome = domain.OutcomeWin
	}
	exitFill := RoundToTick(ApplySlippage(exitLevel, s.cfg.SlippageBps, !buying), tick)

	// 7. Gross PnL and fee deduction on round-trip turnover.
	gross := (exitFill - entryFill) * float64(qty)
	if !buying {
		gross = -gross
	}
	turnover := (entryFill + exitFill) * float64(qty)
	fees := turnover*(s.fees.TotalBps(p.Class)/bpsDenominator) + 2*s.fees.FlatPerOrder

	return &domain.Trade{
		TradeID:    idhash.ComputeTradeID(runID, foldIndex, p.Symbol, string(p.Side), p.EngineTag),
		RunID:      runID,
		FoldIndex:  foldIndex,
		Symbol:     p.Symbol,
		Side:       p.Side,
		Class:      p.Class,
		EngineTag:  p.EngineTag,
		EntryFill:  entryFill,
		ExitFill:   exitFill,
		Lots:       lots,
		Quantity:   qty,
		Notional:   notional,
		FillRatio:  fillRatio,
		GrossPnL:   gross,
		Fees:       fees,
		NetPnL:     gross - fees,
		ExitReason: exitReason,
		Outcome:    outcome,
	}
}
