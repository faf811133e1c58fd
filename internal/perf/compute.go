// Package perf computes per-fold and aggregate trade statistics plus
// portfolio tail-risk measures.
package perf

import (
	"math"
	"sort"

	"equity-backtest-lab/internal/domain"
)

// AnnualizationFactor scales the per-trade Sharpe ratio to annual terms.
var AnnualizationFactor = math.Sqrt(252.0)

// MinTailSamples is the minimum return count before VaR/CVaR are reported;
// below it both metrics are 0, not a guess from a handful of points.
const MinTailSamples = 20

// tailAlpha is the VaR/CVaR percentile (5th).
const tailAlpha = 0.05

// Compute calculates the summary for one trade set. Trades are sorted by
// TradeID before order-dependent metrics (drawdown) so results are
// deterministic for equal inputs. Every degenerate denominator reports 0.0,
// never NaN.
func Compute(trades []*domain.Trade) domain.PerformanceSummary {
	n := len(trades)
	if n == 0 {
		return domain.PerformanceSummary{}
	}

	sorted := make([]*domain.Trade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FoldIndex != sorted[j].FoldIndex {
			return sorted[i].FoldIndex < sorted[j].FoldIndex
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	wins := 0
	returns := make([]float64, n)
	sumPos, sumNeg := 0.0, 0.0
	for i, t := range sorted {
		if t.Outcome == domain.OutcomeWin {
			wins++
		}
		returns[i] = t.Return()
		if t.NetPnL > 0 {
			sumPos += t.NetPnL
		} else {
			sumNeg += t.NetPnL
		}
	}

	mean := computeMean(returns)

	return domain.PerformanceSummary{
		Trades:       n,
		Wins:         wins,
		WinRate:      float64(wins) / float64(n),
		AvgReturn:    mean,
		Sharpe:       computeSharpe(returns, mean),
		MaxDrawdown:  computeMaxDrawdown(returns),
		ProfitFactor: computeProfitFactor(sumPos, sumNeg),
		VaR95:        VaR(returns, tailAlpha),
		CVaR95:       CVaR(returns, tailAlpha),
	}
}

// VaR returns the alpha-quantile of the return series (linear interpolation),
// or 0 when fewer than MinTailSamples observations exist.
func VaR(returns []float64, alpha float64) float64 {
	if len(returns) < MinTailSamples {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	return computePercentile(sorted, alpha)
}

// CVaR returns the mean of the tail at or below the alpha-quantile, or 0 when
// fewer than MinTailSamples observations exist.
func CVaR(returns []float64, alpha float64) float64 {
	if len(returns) < MinTailSamples {
		return 0
	}
	cutoff := VaR(returns, alpha)
	sum, count := 0.0, 0
	for _, r := range returns {
		if r <= cutoff {
			sum += r
			count++
		}
	}
	if count == 0 {
		return cutoff
	}
	return sum / float64(count)
}

// computeSharpe annualizes mean/stddev of per-trade returns. Zero when the
// series has at most one point or zero variance.
func computeSharpe(returns []float64, mean float64) float64 {
	stddev := computeStddev(returns, mean)
	if stddev == 0 {
		return 0
	}
	return mean / stddev * AnnualizationFactor
}

// computeMean calculates arithmetic mean.
func computeMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeMaxDrawdown walks the cumulative return curve and returns the worst
// trough-minus-running-peak value. Always <= 0.
func computeMaxDrawdown(returns []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	worst := 0.0
	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := cumulative - peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// computeProfitFactor divides gross profits by gross losses, 0 when there are
// no losing trades.
func computeProfitFactor(sumPos, sumNeg float64) float64 {
	if sumNeg == 0 {
		return 0
	}
	return sumPos / math.Abs(sumNeg)
}

// computePercentile uses linear interpolation over a pre-sorted slice.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
