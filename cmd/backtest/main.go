package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/execution"
	"equity-backtest-lab/internal/observability"
	"equity-backtest-lab/internal/reporting"
	"equity-backtest-lab/internal/riskgate"
	"equity-backtest-lab/internal/signal"
	"equity-backtest-lab/internal/storage"
	chstore "equity-backtest-lab/internal/storage/clickhouse"
	filestore "equity-backtest-lab/internal/storage/file"
	"equity-backtest-lab/internal/storage/memory"
	"equity-backtest-lab/internal/storage/migrations"
	pgstore "equity-backtest-lab/internal/storage/postgres"
	"equity-backtest-lab/internal/walkforward"
)

func main() {
	// Run parameters
	fromStr := flag.String("from", "", "Run start date, YYYY-MM-DD (required)")
	toStr := flag.String("to", "", "Run end date, YYYY-MM-DD (required)")
	foldCount := flag.Int("folds", 5, "Number of walk-forward folds")
	embargoDays := flag.Int("embargo", 5, "Embargo trading days between train and test")
	universe := flag.String("universe", "", "Comma-separated symbols (required)")
	sourceName := flag.String("source", "momentum", "Signal source name")

	// Execution parameters
	slippageBps := flag.Float64("slippage-bps", 5, "Base slippage in basis points")
	capitalBase := flag.Float64("capital", 10_00_000, "Capital base in rupees")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	riskStateFile := flag.String("risk-state-file", "", "Persist risk state to this JSON file instead of the database")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before running")

	// Output
	outputJSON := flag.Bool("json", false, "Output run summary as JSON")
	artifactDir := flag.String("output-dir", "", "Write per-fold trade CSVs and JSON artifacts to this directory")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *fromStr == "" || *toStr == "" {
		logger.Fatal("--from and --to are required")
	}
	from, err := time.Parse(time.DateOnly, *fromStr)
	if err != nil {
		logger.Fatalf("invalid --from: %v", err)
	}
	to, err := time.Parse(time.DateOnly, *toStr)
	if err != nil {
		logger.Fatalf("invalid --to: %v", err)
	}
	symbols := splitSymbols(*universe)
	if len(symbols) == 0 {
		logger.Fatal("--universe is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server error: %v", err)
			}
		}()
	}

	// Stores default to memory and are swapped for database-backed
	// implementations when DSNs are supplied.
	var (
		barStore     storage.DailyBarStore      = memory.NewDailyBarStore()
		refStore     storage.ReferenceDataStore = memory.NewReferenceDataStore()
		ledgerStore  storage.TradeLedgerStore   = memory.NewTradeLedgerStore()
		summaryStore storage.RunSummaryStore    = memory.NewRunSummaryStore()
		riskStore    storage.RiskStateStore     = memory.NewRiskStateStore()
	)

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when not using --use-memory (reference data, ledger, summaries)")
		}
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (daily bars)")
		}

		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("postgres migrations: %v", err)
			}
		}

		var conn *chstore.Conn
		if *migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, *clickhouseDSN)
		}
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		barStore = chstore.NewDailyBarStore(conn)
		refStore = pgstore.NewReferenceDataStore(pool)
		ledgerStore = pgstore.NewTradeLedgerStore(pool)
		summaryStore = pgstore.NewRunSummaryStore(pool)
		riskStore = pgstore.NewRiskStateStore(pool)
	}
	if *riskStateFile != "" {
		riskStore = filestore.NewRiskStateStore(*riskStateFile)
	}

	source, err := signal.New(*sourceName, signal.Deps{Bars: barStore})
	if err != nil {
		logger.Fatalf("signal source %q: %v (known: %s)", *sourceName, err, strings.Join(signal.Names(), ", "))
	}

	execCfg := domain.DefaultExecutionConfig()
	execCfg.SlippageBps = *slippageBps
	execCfg.CapitalBase = *capitalBase
	simulator, err := execution.NewSimulator(execCfg, domain.DefaultFeeSchedule())
	if err != nil {
		logger.Fatalf("execution config: %v", err)
	}

	runner := walkforward.NewRunner(walkforward.RunnerOptions{
		Source:    source,
		Simulator: simulator,
		Gate:      riskgate.NewGate(domain.DefaultKillSwitchConfig(), riskStore),
		Bars:      barStore,
		Refs:      refStore,
		Ledger:    ledgerStore,
		Summaries: summaryStore,
		Metrics:   metrics,
		Logger:    logger,
	})

	logger.Printf("running walk-forward: %s..%s folds=%d embargo=%d universe=%d source=%s",
		*fromStr, *toStr, *foldCount, *embargoDays, len(symbols), *sourceName)

	summary, err := runner.Run(ctx, walkforward.RunConfig{
		From:        from,
		To:          to,
		Folds:       *foldCount,
		EmbargoDays: *embargoDays,
		Universe:    symbols,
	})
	if err != nil {
		logger.Fatalf("run failed: %v", err)
	}

	if *artifactDir != "" {
		writer := reporting.NewWriter(ledgerStore)
		if err := writer.WriteRunArtifacts(ctx, *artifactDir, summary); err != nil {
			logger.Fatalf("write artifacts: %v", err)
		}
		logger.Printf("artifacts written to %s", *artifactDir)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
	} else {
		printSummary(summary)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// printSummary renders a human-readable run report.
func printSummary(s *domain.RunSummary) {
	fmt.Printf("Run:             %s\n", s.RunID)
	fmt.Printf("Generated:       %s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Folds:           %d evaluated / %d requested\n", s.FoldsEvaluated, s.FoldsRequested)
	fmt.Printf("Universe:        %d symbols\n", s.Universe)
	fmt.Printf("Risk mode:       %s\n", s.RiskMode)
	fmt.Println()
	for _, f := range s.Folds {
		if f.Skipped {
			fmt.Printf("  fold %d  [%s..%s]  SKIPPED: %s\n",
				f.FoldIndex, f.TestStart.Format(time.DateOnly), f.TestEnd.Format(time.DateOnly), f.SkipReason)
			continue
		}
		fmt.Printf("  fold %d  [%s..%s]  trades=%d win=%.2f sharpe=%.2f dd=%.4f pf=%.2f\n",
			f.FoldIndex, f.TestStart.Format(time.DateOnly), f.TestEnd.Format(time.DateOnly),
			f.Summary.Trades, f.Summary.WinRate, f.Summary.Sharpe, f.Summary.MaxDrawdown, f.Summary.ProfitFactor)
	}
	fmt.Println()
	a := s.Aggregate
	fmt.Printf("Aggregate:       trades=%d win=%.2f avg=%.4f sharpe=%.2f\n", a.Trades, a.WinRate, a.AvgReturn, a.Sharpe)
	fmt.Printf("Tail risk:       dd=%.4f var95=%.4f cvar95=%.4f\n", a.MaxDrawdown, a.VaR95, a.CVaR95)
}
