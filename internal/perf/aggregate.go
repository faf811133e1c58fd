package perf

import "equity-backtest-lab/internal/domain"

// Aggregate combines evaluated fold summaries, weighting every rate metric by
// fold trade count (a fold gets weight max(trades, 1)). MaxDrawdown is the
// single worst fold value, not an average. Skipped folds are ignored.
func Aggregate(folds []domain.FoldResult) domain.PerformanceSummary {
	var (
		totalTrades int
		totalWins   int
		weightSum   float64

		winRate, avgRet, sharpe, pf, v95, cv95 float64

		worstDD float64
		seen    bool
	)

	for _, f := range folds {
		if f.Skipped {
			continue
		}
		s := f.Summary
		w := float64(s.Trades)
		if w < 1 {
			w = 1
		}

		totalTrades += s.Trades
		totalWins += s.Wins
		weightSum += w
		winRate += w * s.WinRate
		avgRet += w * s.AvgReturn
		sharpe += w * s.Sharpe
		pf += w * s.ProfitFactor
		v95 += w * s.VaR95
		cv95 += w * s.CVaR95

		if !seen || s.MaxDrawdown < worstDD {
			worstDD = s.MaxDrawdown
			seen = true
		}
	}

	if weightSum == 0 {
		return domain.PerformanceSummary{}
	}

	return domain.PerformanceSummary{
		Trades:       totalTrades,
		Wins:         totalWins,
		WinRate:      winRate / weightSum,
		AvgReturn:    avgRet / weightSum,
		Sharpe:       sharpe / weightSum,
		MaxDrawdown:  worstDD,
		ProfitFactor: pf / weightSum,
		VaR95:        v95 / weightSum,
		CVaR95:       cv95 / weightSum,
	}
}
