package signal

import (
	"context"
	"math"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// Momentum source parameters. The probability mapping is a proxy for a real
// model score: strong recent drift relative to its own volatility reads as
// conviction, capped well short of certainty.
const (
	momentumSourceName = "momentum"

	momentumLookbackDays = 30 // calendar days of bars fetched
	momentumWindow       = 5  // return window, trading days
	momentumTargetPct    = 0.05
	momentumStopPct      = 0.025
	momentumBaseSize     = 0.10

	momentumMinProb = 0.40
	momentumMaxProb = 0.75
)

func init() {
	Register(momentumSourceName, func(deps Deps) (Source, error) {
		if deps.Bars == nil {
			return nil, ErrMissingBarStore
		}
		return &MomentumSource{bars: deps.Bars}, nil
	})
}

// MomentumSource ranks the universe by short-horizon price drift scaled by
// realized volatility. It is deliberately simple; its job is to exercise the
// full pipeline with picks derived from real bar history, not to be an edge.
type MomentumSource struct {
	bars storage.DailyBarStore
}

// Name returns the engine tag.
func (s *MomentumSource) Name() string { return momentumSourceName }

// Picks computes one pick per universe symbol with enough history. Symbols
// with fewer than momentumWindow+1 bars up to asOf are skipped silently.
func (s *MomentumSource) Picks(ctx context.Context, asOf time.Time, universe []string) ([]*domain.Pick, error) {
	var picks []*domain.Pick

	from := asOf.AddDate(0, 0, -momentumLookbackDays)
	for _, symbol := range universe {
		bars, err := s.bars.GetBySymbol(ctx, symbol, from, asOf)
		if err != nil {
			return nil, err
		}
		if pick := s.pickFromBars(symbol, bars); pick != nil {
			picks = append(picks, pick)
		}
	}

	return picks, nil
}

func (s *MomentumSource) pickFromBars(symbol string, bars []*domain.DailyBar) *domain.Pick {
	if len(bars) < momentumWindow+1 {
		return nil
	}

	last := bars[len(bars)-1].Close
	prev := bars[len(bars)-1-momentumWindow].Close
	if last <= 0 || prev <= 0 {
		return nil
	}
	drift := last/prev - 1

	vol := dailyVol(bars)
	if vol <= 0 {
		return nil
	}

	// Drift in volatility units, squashed into the probability band.
	score := drift / (vol * math.Sqrt(momentumWindow))
	prob := momentumMinProb + (momentumMaxProb-momentumMinProb)*sigmoid(math.Abs(score))

	side := domain.SideLong
	target := last * (1 + momentumTargetPct)
	stop := last * (1 - momentumStopPct)
	if drift < 0 {
		side = domain.SideShort
		target = last * (1 - momentumTargetPct)
		stop = last * (1 + momentumStopPct)
	}

	return &domain.Pick{
		Symbol:       symbol,
		Side:         side,
		Class:        domain.ClassEquity,
		EntryPrice:   last,
		StopPrice:    stop,
		TargetPrice:  target,
		Probability:  prob,
		SizeFraction: momentumBaseSize,
		EngineTag:    momentumSourceName,
	}
}

// dailyVol is the sample standard deviation of close-to-close returns.
func dailyVol(bars []*domain.DailyBar) float64 {
	var returns []float64
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close <= 0 {
			continue
		}
		returns = append(returns, bars[i].Close/bars[i-1].Close-1)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(returns)-1))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

var _ Source = (*MomentumSource)(nil)
