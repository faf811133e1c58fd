package domain

import "errors"

// Configuration errors.
var (
	ErrNegativeFee       = errors.New("fee schedule contains a negative component")
	ErrMissingFees       = errors.New("fee schedule missing")
	ErrInvalidCapital    = errors.New("capital base must be positive")
	ErrInvalidTickSize   = errors.New("default tick size must be positive")
	ErrInvalidLotSize    = errors.New("default lot size must be >= 1")
	ErrInvalidCircuitPct = errors.New("circuit percentage must be in (0,1]")
)

// Named execution defaults. These replace the ad hoc numeric fallbacks of
// earlier research code; see DefaultExecutionConfig.
const (
	// DefaultADVFloor is the conservative average-daily-value assumed for a
	// symbol with no liquidity data: Rs 2 crore.
	DefaultADVFloor = 2_00_00_000.0

	// DefaultTickSize is the NSE equity tick.
	DefaultTickSize = 0.05

	// DefaultLotSize applies to cash equities.
	DefaultLotSize = int64(1)

	// DefaultImpactCoeffBps scales the square-root impact model.
	DefaultImpactCoeffBps = 40.0

	// DefaultImpactFallbackBps is the fixed concession charged when ADV is
	// zero or unknown.
	DefaultImpactFallbackBps = 80.0

	// DefaultEquityCircuitPct / DefaultDerivativeCircuitPct bound price
	// levels relative to the impacted entry.
	DefaultEquityCircuitPct     = 0.20
	DefaultDerivativeCircuitPct = 0.10
)

// ExecutionConfig parameterizes the execution simulator. All rates are
// non-negative; increasing any cost parameter can only reduce net PnL.
type ExecutionConfig struct {
	SlippageBps       float64
	ImpactCoeffBps    float64
	ImpactFallbackBps float64

	EquityCircuitPct     float64
	DerivativeCircuitPct float64

	CapitalBase         float64 // rupees
	MaxExposureFraction float64 // per-trade cap on size fraction

	// Defaults substituted for missing reference rows.
	DefaultLotSize  int64
	DefaultTickSize float64
	ADVFloor        float64
}

// DefaultExecutionConfig returns the documented defaults with a 10 lakh
// capital base.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		SlippageBps:          5,
		ImpactCoeffBps:       DefaultImpactCoeffBps,
		ImpactFallbackBps:    DefaultImpactFallbackBps,
		EquityCircuitPct:     DefaultEquityCircuitPct,
		DerivativeCircuitPct: DefaultDerivativeCircuitPct,
		CapitalBase:          10_00_000,
		MaxExposureFraction:  0.20,
		DefaultLotSize:       DefaultLotSize,
		DefaultTickSize:      DefaultTickSize,
		ADVFloor:             DefaultADVFloor,
	}
}

// CircuitPct returns the circuit band for an instrument class.
func (c ExecutionConfig) CircuitPct(class InstrumentClass) float64 {
	if class == ClassDerivative {
		return c.DerivativeCircuitPct
	}
	return c.EquityCircuitPct
}

// Validate rejects configurations the simulator cannot run with.
func (c ExecutionConfig) Validate() error {
	if c.CapitalBase <= 0 {
		return ErrInvalidCapital
	}
	if c.DefaultTickSize <= 0 {
		return ErrInvalidTickSize
	}
	if c.DefaultLotSize < 1 {
		return ErrInvalidLotSize
	}
	if c.EquityCircuitPct <= 0 || c.EquityCircuitPct > 1 ||
		c.DerivativeCircuitPct <= 0 || c.DerivativeCircuitPct > 1 {
		return ErrInvalidCircuitPct
	}
	return nil
}

// FeeRow is the basis-point fee stack for one instrument class.
type FeeRow struct {
	CommissionBps     float64
	TransactionTaxBps float64 // STT or CTT equivalent
	ExchangeBps       float64
	GSTBps            float64
}

// TotalBps sums the per-leg basis-point components.
func (r FeeRow) TotalBps() float64 {
	return r.CommissionBps + r.TransactionTaxBps + r.ExchangeBps + r.GSTBps
}

// FeeSchedule is the fee configuration consumed by the simulator. A missing
// schedule is the one unrecoverable configuration error in this core.
type FeeSchedule struct {
	Equity       FeeRow
	Derivative   FeeRow
	FlatPerOrder float64 // flat regulatory fee in rupees, applied per trade
}

// DefaultFeeSchedule approximates an NSE discount-broker stack.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Equity: FeeRow{
			CommissionBps:     3,
			TransactionTaxBps: 10, // STT on delivery sell leg, flattened
			ExchangeBps:       0.345,
			GSTBps:            0.6,
		},
		Derivative: FeeRow{
			CommissionBps:     2,
			TransactionTaxBps: 1,
			ExchangeBps:       0.19,
			GSTBps:            0.4,
		},
		FlatPerOrder: 15.34, // SEBI turnover + stamp approximation
	}
}

// TotalBps returns the per-leg bps for an instrument class.
func (f FeeSchedule) TotalBps(class InstrumentClass) float64 {
	if class == ClassDerivative {
		return f.Derivative.TotalBps()
	}
	return f.Equity.TotalBps()
}

// Validate rejects negative components. Zero fees are legal (frictionless
// scenarios).
func (f FeeSchedule) Validate() error {
	rows := []FeeRow{f.Equity, f.Derivative}
	for _, r := range rows {
		if r.CommissionBps < 0 || r.TransactionTaxBps < 0 || r.ExchangeBps < 0 || r.GSTBps < 0 {
			return ErrNegativeFee
		}
	}
	if f.FlatPerOrder < 0 {
		return ErrNegativeFee
	}
	return nil
}

// KillSwitchConfig parameterizes the risk gate ladder.
type KillSwitchConfig struct {
	Tier1WinRateFloor float64 // below this -> tight
	Tier2WinRateFloor float64 // below this -> severe
	RecoveryWinRate   float64 // at or above this a tight gate clears early

	LookbackWindow      int // evaluation cycles considered for rolling stats
	SevereConsecBad     int // consecutive bad cycles forcing severe
	SuspendConsecBad    int // consecutive bad cycles forcing suspension
	CooloffHours        float64
	HistoryCap          int // bounded ring buffer length
	MinCyclesForVerdict int // below this the gate stays in its current mode

	TightDropFraction  float64 // bottom fraction of picks dropped in tight
	SevereDropFraction float64 // bottom fraction dropped in severe
	SuspendedMaxPicks  int     // picks allowed through while suspended
}

// DefaultKillSwitchConfig mirrors the production ladder: 30%/25% floors,
// 24h cooloff, 20-entry history.
func DefaultKillSwitchConfig() KillSwitchConfig {
	return KillSwitchConfig{
		Tier1WinRateFloor:   0.30,
		Tier2WinRateFloor:   0.25,
		RecoveryWinRate:     0.35,
		LookbackWindow:      10,
		SevereConsecBad:     2,
		SuspendConsecBad:    3,
		CooloffHours:        24,
		HistoryCap:          20,
		MinCyclesForVerdict: 3,
		TightDropFraction:   0.20,
		SevereDropFraction:  0.50,
		SuspendedMaxPicks:   2,
	}
}
