// Package sizing blends Kelly-style edge scaling with tail-risk damping to
// turn a base size fraction into a guarded one.
package sizing

import "sort"

// DefaultKellyCap bounds the Kelly fraction before blending; full Kelly is
// too aggressive for a portfolio of correlated picks.
const DefaultKellyCap = 0.33

// minVaRSamples mirrors the rolling-VaR guard: fewer observations than this
// report no tail risk rather than a noisy quantile.
const minVaRSamples = 20

// KellyFraction computes the Kelly sizing heuristic for a win probability and
// payoff ratio (average win / average loss). Clamped to [0,1]; non-positive
// payoff ratios size to zero.
func KellyFraction(winProb, payoffRatio float64) float64 {
	if payoffRatio <= 0 {
		return 0
	}
	f := (winProb*(1+payoffRatio) - 1) / payoffRatio
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// RollingVaR returns the alpha-quantile of the trailing window of a return
// series, 0 when fewer than max(minVaRSamples, window/2) points exist.
func RollingVaR(returns []float64, window int, alpha float64) float64 {
	if window <= 0 {
		window = len(returns)
	}
	tail := returns
	if len(tail) > window {
		tail = tail[len(tail)-window:]
	}

	min := minVaRSamples
	if half := window / 2; half > min {
		min = half
	}
	if len(tail) < min {
		return 0
	}

	sorted := make([]float64, len(tail))
	copy(sorted, tail)
	sort.Float64s(sorted)

	idx := alpha * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// SizeWithGuards damps a base size fraction by recent tail risk and scales it
// by capped Kelly: base * (1 - min(0.5, |VaR|)) * (0.5 + 0.5*kelly).
// The result is clamped to [0, 1].
func SizeWithGuards(base float64, returns []float64, winProb, payoffRatio, kellyCap float64) float64 {
	if kellyCap <= 0 {
		kellyCap = DefaultKellyCap
	}

	varLoss := RollingVaR(returns, 60, 0.05)
	if varLoss > 0 {
		varLoss = 0 // only losses dampen sizing
	}
	damp := -varLoss
	if damp > 0.5 {
		damp = 0.5
	}

	k := KellyFraction(winProb, payoffRatio)
	if k > kellyCap {
		k = kellyCap
	}

	size := base * (1 - damp) * (0.5 + 0.5*k)
	if size < 0 {
		return 0
	}
	if size > 1 {
		return 1
	}
	return size
}
