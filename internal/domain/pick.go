package domain

import "errors"

// Side represents trade direction.
type Side string

// Side constants.
const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// InstrumentClass selects exchange microstructure rules (circuit band, fees).
type InstrumentClass string

// Instrument class constants.
const (
	ClassEquity     InstrumentClass = "EQUITY"
	ClassDerivative InstrumentClass = "DERIVATIVE"
)

// Pick validation errors.
var (
	ErrDegeneratePick    = errors.New("degenerate pick: stop/entry/target ordering not sane")
	ErrProbabilityRange  = errors.New("pick probability outside [0,1]")
	ErrSizeFractionRange = errors.New("pick size fraction outside [0,1]")
)

// Pick is one ranked candidate produced by a signal source for a test window.
// Prices are theoretical signal levels; the execution simulator converts them
// into fills.
type Pick struct {
	Symbol       string
	Side         Side
	Class        InstrumentClass
	EntryPrice   float64
	StopPrice    float64
	TargetPrice  float64
	Probability  float64 // model win probability, [0,1]
	SizeFraction float64 // fraction of capital base requested, [0,1]
	EngineTag    string  // signal source that produced the pick
}

// Validate checks price ordering and bounds at the package boundary.
// A long pick requires stop < entry < target; a short pick the mirror.
func (p *Pick) Validate() error {
	switch p.Side {
	case SideLong:
		if !(p.StopPrice < p.EntryPrice && p.EntryPrice < p.TargetPrice) {
			return ErrDegeneratePick
		}
	case SideShort:
		if !(p.TargetPrice < p.EntryPrice && p.EntryPrice < p.StopPrice) {
			return ErrDegeneratePick
		}
	default:
		return ErrDegeneratePick
	}
	if p.EntryPrice <= 0 {
		return ErrDegeneratePick
	}
	if p.Probability < 0 || p.Probability > 1 {
		return ErrProbabilityRange
	}
	if p.SizeFraction < 0 || p.SizeFraction > 1 {
		return ErrSizeFractionRange
	}
	return nil
}
