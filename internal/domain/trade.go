package domain

// Trade represents a simulated fill pair with full execution details.
// Immutable once recorded; owned by the fold's trade ledger.
type Trade struct {
	TradeID   string // deterministic hash
	RunID     string // walk-forward run the trade belongs to
	FoldIndex int
	Symbol    string
	Side      Side
	Class     InstrumentClass
	EngineTag string

	// Fills
	EntryFill float64 // after slippage, impact and tick rounding
	ExitFill  float64 // resolved bracket leg after slippage and tick rounding
	Lots      int64
	Quantity  int64   // lots * lot size
	Notional  float64 // entry fill * quantity
	FillRatio float64 // achieved notional / requested notional

	// Outcome
	GrossPnL   float64
	Fees       float64 // always >= 0
	NetPnL     float64
	ExitReason string // TARGET | STOP
	Outcome    string // WIN | LOSS
}

// Exit reason codes.
const (
	ExitReasonTarget = "TARGET"
	ExitReasonStop   = "STOP"
)

// Outcome class constants.
const (
	OutcomeWin  = "WIN"
	OutcomeLoss = "LOSS"
)

// Return is the per-trade return on entry notional, used for Sharpe and
// tail-risk series. Zero-notional trades contribute zero.
func (t *Trade) Return() float64 {
	if t.Notional <= 0 {
		return 0
	}
	return t.NetPnL / t.Notional
}
