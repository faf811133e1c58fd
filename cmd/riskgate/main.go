package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/riskgate"
	"equity-backtest-lab/internal/storage"
	filestore "equity-backtest-lab/internal/storage/file"
	"equity-backtest-lab/internal/storage/migrations"
	pgstore "equity-backtest-lab/internal/storage/postgres"
)

func main() {
	action := flag.String("action", "show", "Action: show, evaluate, or reset")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	stateFile := flag.String("state-file", "", "Risk state JSON file")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before running")

	// Evaluate inputs
	winRate := flag.Float64("win-rate", 0, "Cycle win rate for --action evaluate")
	trades := flag.Int("trades", 0, "Cycle trade count for --action evaluate")
	atStr := flag.String("at", "", "Cycle timestamp RFC3339 for --action evaluate (default: now)")

	flag.Parse()

	logger := log.New(os.Stderr, "[riskgate] ", log.LstdFlags)

	ctx := context.Background()

	var store storage.RiskStateStore
	switch {
	case *stateFile != "":
		store = filestore.NewRiskStateStore(*stateFile)
	case *postgresDSN != "":
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
		store = pgstore.NewRiskStateStore(pool)
	default:
		logger.Fatal("--state-file or --postgres-dsn is required")
	}

	gate := riskgate.NewGate(domain.DefaultKillSwitchConfig(), store)

	switch *action {
	case "show":
		state, err := gate.State(ctx)
		if err != nil {
			logger.Fatalf("read state: %v", err)
		}
		printState(state)

	case "evaluate":
		if *trades < 0 || *winRate < 0 || *winRate > 1 {
			logger.Fatal("--win-rate must be in [0,1] and --trades must be >= 0")
		}
		at := time.Now().UTC()
		if *atStr != "" {
			var err error
			at, err = time.Parse(time.RFC3339, *atStr)
			if err != nil {
				logger.Fatalf("invalid --at: %v", err)
			}
		}
		state, err := gate.Evaluate(ctx, domain.EvalOutcome{
			At:      at,
			WinRate: *winRate,
			Trades:  *trades,
		})
		if err != nil {
			logger.Fatalf("evaluate: %v", err)
		}
		printState(state)

	case "reset":
		current, err := store.Load(ctx)
		if err != nil {
			logger.Fatalf("read state: %v", err)
		}
		fresh := domain.DefaultRiskState()
		fresh.Version = current.Version
		if err := store.Save(ctx, fresh); err != nil {
			logger.Fatalf("reset state: %v", err)
		}
		logger.Printf("state reset to normal")
		printState(fresh)

	default:
		logger.Fatalf("unknown action %q: must be show, evaluate, or reset", *action)
	}
}

func printState(state *domain.RiskState) {
	output, _ := json.MarshalIndent(state, "", "  ")
	fmt.Println(string(output))
}
