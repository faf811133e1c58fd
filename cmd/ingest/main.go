package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"equity-backtest-lab/internal/domain"
	chstore "equity-backtest-lab/internal/storage/clickhouse"
	"equity-backtest-lab/internal/storage/migrations"
	pgstore "equity-backtest-lab/internal/storage/postgres"
)

// insertChunkSize bounds the bars sent per batch so a bad row late in a large
// file does not discard hours of inserts.
const insertChunkSize = 5000

func main() {
	barsCSV := flag.String("bars-csv", "", "Daily bars CSV: symbol,date,open,high,low,close,volume,value_traded")
	referenceCSV := flag.String("reference-csv", "", "Reference CSV: symbol,class,lot_size,tick_size,avg_daily_value")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (reference data)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (daily bars)")
	migrate := flag.Bool("migrate", false, "Apply schema migrations before loading")
	dryRun := flag.Bool("dry-run", false, "Parse and validate input files without writing")

	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *barsCSV == "" && *referenceCSV == "" {
		logger.Fatal("nothing to do: provide --bars-csv and/or --reference-csv")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if *referenceCSV != "" {
		rows, err := parseReferenceCSV(*referenceCSV)
		if err != nil {
			logger.Fatalf("parse %s: %v", *referenceCSV, err)
		}
		logger.Printf("parsed %d reference rows from %s", len(rows), *referenceCSV)

		if !*dryRun {
			if *postgresDSN == "" {
				logger.Fatal("--postgres-dsn is required to load reference data")
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

			store := pgstore.NewReferenceDataStore(pool)
			for _, row := range rows {
				if err := store.Upsert(ctx, row); err != nil {
					logger.Fatalf("upsert %s: %v", row.Symbol, err)
				}
			}
			logger.Printf("loaded %d reference rows", len(rows))
		}
	}

	if *barsCSV != "" {
		bars, err := parseBarsCSV(*barsCSV)
		if err != nil {
			logger.Fatalf("parse %s: %v", *barsCSV, err)
		}
		logger.Printf("parsed %d bars from %s", len(bars), *barsCSV)

		if !*dryRun {
			if *clickhouseDSN == "" {
				logger.Fatal("--clickhouse-dsn is required to load daily bars")
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

			store := chstore.NewDailyBarStore(conn)
			for start := 0; start < len(bars); start += insertChunkSize {
				end := start + insertChunkSize
				if end > len(bars) {
					end = len(bars)
				}
				if err := store.InsertBulk(ctx, bars[start:end]); err != nil {
					logger.Fatalf("insert bars [%d:%d]: %v", start, end, err)
				}
			}
			logger.Printf("loaded %d bars", len(bars))
		}
	}
}

// parseBarsCSV reads daily bars with a mandatory header row.
func parseBarsCSV(path string) ([]*domain.DailyBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 8
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bars []*domain.DailyBar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := time.Parse(time.DateOnly, rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		open, err := parseFloat(rec[2], line, "open")
		if err != nil {
			return nil, err
		}
		high, err := parseFloat(rec[3], line, "high")
		if err != nil {
			return nil, err
		}
		low, err := parseFloat(rec[4], line, "low")
		if err != nil {
			return nil, err
		}
		closePx, err := parseFloat(rec[5], line, "close")
		if err != nil {
			return nil, err
		}
		volume, err := strconv.ParseInt(rec[6], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: volume: %w", line, err)
		}
		value, err := parseFloat(rec[7], line, "value_traded")
		if err != nil {
			return nil, err
		}

		bars = append(bars, &domain.DailyBar{
			Symbol:      strings.ToUpper(strings.TrimSpace(rec[0])),
			Date:        date.UTC(),
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closePx,
			Volume:      volume,
			ValueTraded: value,
		})
	}
	return bars, nil
}

// parseReferenceCSV reads instrument reference rows with a mandatory header.
func parseReferenceCSV(path string) ([]*domain.ReferenceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []*domain.ReferenceRow
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		class := domain.InstrumentClass(strings.ToUpper(strings.TrimSpace(rec[1])))
		if class != domain.ClassEquity && class != domain.ClassDerivative {
			return nil, fmt.Errorf("line %d: unknown class %q", line, rec[1])
		}
		lotSize, err := strconv.ParseInt(rec[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lot_size: %w", line, err)
		}
		tickSize, err := parseFloat(rec[3], line, "tick_size")
		if err != nil {
			return nil, err
		}
		adv, err := parseFloat(rec[4], line, "avg_daily_value")
		if err != nil {
			return nil, err
		}

		rows = append(rows, &domain.ReferenceRow{
			Symbol:        strings.ToUpper(strings.TrimSpace(rec[0])),
			Class:         class,
			LotSize:       lotSize,
			TickSize:      tickSize,
			AvgDailyValue: adv,
			AsOf:          time.Now().UTC(),
		})
	}
	return rows, nil
}

func parseFloat(s string, line int, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s: %w", line, field, err)
	}
	return v, nil
}
