package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name   string
		p, rr  float64
		expect float64
	}{
		{"no edge", 0.50, 1.0, 0.0},
		{"positive edge", 0.60, 1.0, 0.20},
		{"strong edge 2:1", 0.60, 2.0, 0.40},
		{"negative edge clamps to zero", 0.30, 1.0, 0.0},
		{"zero payoff ratio", 0.90, 0.0, 0.0},
		{"negative payoff ratio", 0.90, -2.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expect, KellyFraction(tt.p, tt.rr), 1e-9)
		})
	}
}

func TestKellyFraction_NeverOutsideUnitInterval(t *testing.T) {
	for _, p := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, rr := range []float64{0.1, 0.5, 1, 3, 100} {
			f := KellyFraction(p, rr)
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
	}
}

func TestRollingVaR_InsufficientSamples(t *testing.T) {
	returns := make([]float64, 10)
	for i := range returns {
		returns[i] = -0.02
	}
	assert.Equal(t, 0.0, RollingVaR(returns, 60, 0.05))
}

func TestRollingVaR_UsesTrailingWindow(t *testing.T) {
	// Old catastrophic losses outside the window must not matter.
	returns := make([]float64, 0, 100)
	for i := 0; i < 40; i++ {
		returns = append(returns, -0.50)
	}
	for i := 0; i < 60; i++ {
		returns = append(returns, 0.01)
	}
	v := RollingVaR(returns, 60, 0.05)
	assert.InDelta(t, 0.01, v, 1e-9)
}

func TestSizeWithGuards_NoHistoryNoEdge(t *testing.T) {
	// No history, no edge: only the Kelly blend floor (0.5) applies.
	size := SizeWithGuards(0.10, nil, 0.50, 1.0, DefaultKellyCap)
	assert.InDelta(t, 0.05, size, 1e-9)
}

func TestSizeWithGuards_TailLossesDampSize(t *testing.T) {
	flat := make([]float64, 60)
	lossy := make([]float64, 60)
	for i := range lossy {
		flat[i] = 0.0
		lossy[i] = -0.30
	}

	clean := SizeWithGuards(0.10, flat, 0.60, 1.5, DefaultKellyCap)
	damped := SizeWithGuards(0.10, lossy, 0.60, 1.5, DefaultKellyCap)
	assert.Less(t, damped, clean)

	// Damping is capped at 50% of base.
	assert.GreaterOrEqual(t, damped, clean*0.5-1e-9)
}

func TestSizeWithGuards_ClampedToUnitInterval(t *testing.T) {
	size := SizeWithGuards(1.0, nil, 1.0, 10, 1.0)
	assert.LessOrEqual(t, size, 1.0)
	assert.GreaterOrEqual(t, SizeWithGuards(0, nil, 0, 0, 0), 0.0)
}
