package domain

import "time"

// PerformanceSummary holds per-fold or aggregate trade statistics. Derived,
// recomputed each run, never mutated in place.
type PerformanceSummary struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"win_rate"`
	AvgReturn    float64 `json:"avg_return"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"` // always <= 0
	ProfitFactor float64 `json:"profit_factor"`
	VaR95        float64 `json:"var_95"`
	CVaR95       float64 `json:"cvar_95"`
}

// FoldResult is the machine-readable record for one evaluated fold.
type FoldResult struct {
	FoldIndex   int                `json:"fold_index"`
	TestStart   time.Time          `json:"test_start"`
	TestEnd     time.Time          `json:"test_end"`
	EnginesUsed []string           `json:"engines_used"`
	Summary     PerformanceSummary `json:"summary"`
	Skipped     bool               `json:"skipped"`
	SkipReason  string             `json:"skip_reason,omitempty"`
}

// RunSummary is the aggregate output of one walk-forward run. A fold that
// could not be evaluated appears with Skipped set and is excluded from
// FoldsEvaluated and the aggregate, never silently fabricated.
type RunSummary struct {
	RunID          string             `json:"run_id"`
	GeneratedAt    time.Time          `json:"generated_at"`
	FoldsRequested int                `json:"folds_requested"`
	FoldsEvaluated int                `json:"folds_evaluated"`
	EmbargoDays    int                `json:"embargo_days"`
	Universe       int                `json:"universe"`
	Folds          []FoldResult       `json:"folds"`
	Aggregate      PerformanceSummary `json:"aggregate"`
	RiskMode       RiskMode           `json:"risk_mode,omitempty"`
}
