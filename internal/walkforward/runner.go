// Package walkforward orchestrates a full purged walk-forward run: folds,
// picks, throttling, sizing, execution, metrics and persistence.
package walkforward

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/execution"
	"equity-backtest-lab/internal/folds"
	"equity-backtest-lab/internal/idhash"
	"equity-backtest-lab/internal/observability"
	"equity-backtest-lab/internal/perf"
	"equity-backtest-lab/internal/riskgate"
	"equity-backtest-lab/internal/signal"
	"equity-backtest-lab/internal/sizing"
	"equity-backtest-lab/internal/storage"
)

// Runner errors
var (
	ErrEmptyDateIndex = errors.New("no trading dates in range")
	ErrNoUniverse     = errors.New("universe is empty")
)

// RunConfig parameterizes one walk-forward run.
type RunConfig struct {
	From        time.Time
	To          time.Time
	Folds       int
	EmbargoDays int
	Universe    []string
}

// Validate rejects configurations that cannot produce a run.
func (c RunConfig) Validate() error {
	if len(c.Universe) == 0 {
		return ErrNoUniverse
	}
	if !c.From.Before(c.To) {
		return fmt.Errorf("run range [%s, %s] is empty", c.From.Format(time.DateOnly), c.To.Format(time.DateOnly))
	}
	if c.Folds < 1 {
		return fmt.Errorf("fold count %d must be >= 1", c.Folds)
	}
	if c.EmbargoDays < 0 {
		return fmt.Errorf("embargo days %d must be >= 0", c.EmbargoDays)
	}
	return nil
}

// Runner wires the walk-forward pipeline together. Folds are evaluated
// sequentially; a fold that cannot be evaluated is recorded as skipped and
// never fabricated.
type Runner struct {
	source    signal.Source
	simulator *execution.Simulator
	gate      *riskgate.Gate

	bars      storage.DailyBarStore
	refs      storage.ReferenceDataStore
	ledger    storage.TradeLedgerStore
	summaries storage.RunSummaryStore

	metrics *observability.Metrics
	logger  *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source    signal.Source
	Simulator *execution.Simulator
	Gate      *riskgate.Gate

	Bars      storage.DailyBarStore
	Refs      storage.ReferenceDataStore
	Ledger    storage.TradeLedgerStore
	Summaries storage.RunSummaryStore

	Metrics *observability.Metrics
	Logger  *log.Logger
}

// NewRunner creates a walk-forward runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:    opts.Source,
		simulator: opts.Simulator,
		gate:      opts.Gate,
		bars:      opts.Bars,
		refs:      opts.Refs,
		ledger:    opts.Ledger,
		summaries: opts.Summaries,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Run executes a full walk-forward pass:
//  1. Build the date index from bar history
//  2. Generate purged, embargoed folds
//  3. Per fold: picks -> risk throttle -> sizing guards -> execution
//  4. Persist per-fold trades, evaluate the risk gate on fold performance
//  5. Aggregate, persist and return the run summary
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*domain.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()

	dates, err := r.bars.DistinctDates(ctx, cfg.From, cfg.To)
	if err != nil {
		return nil, fmt.Errorf("build date index: %w", err)
	}
	if len(dates) == 0 {
		return nil, ErrEmptyDateIndex
	}

	runID := idhash.ComputeRunID(cfg.From, cfg.To, cfg.Folds, cfg.EmbargoDays, cfg.Universe)
	foldSet := folds.Generate(dates, cfg.Folds, cfg.EmbargoDays)
	r.logf("run %s: %d trading days, %d folds, embargo %d", runID, len(dates), len(foldSet), cfg.EmbargoDays)

	refs, err := r.referenceMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}

	state, err := r.gate.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("read risk gate: %w", err)
	}

	var (
		results   []domain.FoldResult
		returns   []float64 // running per-trade return series for sizing guards
		evaluated int
	)

	for _, fold := range foldSet {
		result, foldReturns := r.runFold(ctx, runID, fold, cfg.Universe, refs, state, returns)
		results = append(results, result)
		if result.Skipped {
			if r.metrics != nil {
				r.metrics.FoldsSkipped.WithLabelValues(result.SkipReason).Inc()
			}
			continue
		}

		evaluated++
		returns = append(returns, foldReturns...)
		if r.metrics != nil {
			r.metrics.FoldsEvaluated.Inc()
			r.metrics.RiskEvaluations.Inc()
		}

		// Fold performance feeds the gate for the next window.
		state, err = r.gate.Evaluate(ctx, domain.EvalOutcome{
			At:      fold.TestEnd,
			WinRate: result.Summary.WinRate,
			Trades:  result.Summary.Trades,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate risk gate after fold %d: %w", fold.Index, err)
		}
		if r.metrics != nil {
			r.metrics.SetRiskMode(state.Mode)
		}
	}

	summary := &domain.RunSummary{
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		FoldsRequested: cfg.Folds,
		FoldsEvaluated: evaluated,
		EmbargoDays:    cfg.EmbargoDays,
		Universe:       len(cfg.Universe),
		Folds:          results,
		Aggregate:      perf.Aggregate(results),
		RiskMode:       state.Mode,
	}

	if r.summaries != nil {
		if err := r.summaries.Insert(ctx, summary); err != nil {
			return nil, fmt.Errorf("persist run summary: %w", err)
		}
	}
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues("ok").Inc()
		r.metrics.RunDuration.Observe(time.Since(started).Seconds())
		r.metrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	}

	return summary, nil
}

// runFold evaluates one fold. Data errors skip the fold with a reason; they
// never abort the run.
func (r *Runner) runFold(ctx context.Context, runID string, fold domain.Fold, universe []string, refs map[string]*domain.ReferenceRow, state *domain.RiskState, history []float64) (domain.FoldResult, []float64) {
	result := domain.FoldResult{
		FoldIndex: fold.Index,
		TestStart: fold.TestStart,
		TestEnd:   fold.TestEnd,
	}

	picks, err := r.source.Picks(ctx, fold.TestStart, universe)
	if err != nil {
		r.logf("fold %d: signal source failed: %v", fold.Index, err)
		return skipped(result, "signal source error"), nil
	}
	if len(picks) == 0 {
		return skipped(result, "no picks"), nil
	}

	throttled := r.gate.Throttle(state, picks)
	if r.metrics != nil && len(throttled) < len(picks) {
		r.metrics.PicksThrottled.Add(float64(len(picks) - len(throttled)))
	}
	if len(throttled) == 0 {
		return skipped(result, "all picks throttled"), nil
	}

	r.applySizingGuards(throttled, history)

	batch := r.simulator.SimulateFold(runID, fold.Index, throttled, refs)
	if r.metrics != nil {
		r.metrics.TradesSimulated.Add(float64(len(batch.Trades)))
		r.metrics.MissingReference.Add(float64(batch.MissingReference))
		if batch.DroppedPicks > 0 {
			r.metrics.PicksDropped.WithLabelValues("degenerate").Add(float64(batch.DroppedPicks))
		}
	}
	if len(batch.Trades) == 0 {
		return skipped(result, "no executable picks"), nil
	}

	if r.ledger != nil {
		if err := r.ledger.InsertBulk(ctx, batch.Trades); err != nil {
			r.logf("fold %d: ledger write failed: %v", fold.Index, err)
			return skipped(result, "ledger write error"), nil
		}
	}

	result.Summary = perf.Compute(batch.Trades)
	result.EnginesUsed = engineTags(batch.Trades)

	returns := make([]float64, 0, len(batch.Trades))
	for _, t := range batch.Trades {
		returns = append(returns, t.Return())
	}
	return result, returns
}

// applySizingGuards shrinks each pick's requested size by Kelly blending and
// realized tail risk before execution.
func (r *Runner) applySizingGuards(picks []*domain.Pick, history []float64) {
	for _, p := range picks {
		payoff := payoffRatio(p)
		p.SizeFraction = sizing.SizeWithGuards(p.SizeFraction, history, p.Probability, payoff, sizing.DefaultKellyCap)
	}
}

// payoffRatio is reward distance over risk distance from the signal levels.
func payoffRatio(p *domain.Pick) float64 {
	risk := math.Abs(p.EntryPrice - p.StopPrice)
	if risk <= 0 {
		return 0
	}
	return math.Abs(p.TargetPrice-p.EntryPrice) / risk
}

func (r *Runner) referenceMap(ctx context.Context) (map[string]*domain.ReferenceRow, error) {
	if r.refs == nil {
		return map[string]*domain.ReferenceRow{}, nil
	}
	rows, err := r.refs.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]*domain.ReferenceRow, len(rows))
	for _, row := range rows {
		refs[row.Symbol] = row
	}
	return refs, nil
}

func engineTags(trades []*domain.Trade) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, t := range trades {
		if t.EngineTag == "" {
			continue
		}
		if _, ok := seen[t.EngineTag]; !ok {
			seen[t.EngineTag] = struct{}{}
			tags = append(tags, t.EngineTag)
		}
	}
	return tags
}

func skipped(result domain.FoldResult, reason string) domain.FoldResult {
	result.Skipped = true
	result.SkipReason = reason
	return result
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
