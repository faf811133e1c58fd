package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDailyBarStore_InsertBulkAndGetBySymbol(t *testing.T) {
	store := NewDailyBarStore()
	ctx := context.Background()

	bars := []*domain.DailyBar{
		{Symbol: "RELIANCE", Date: day(2024, 1, 3), Close: 2510, ValueTraded: 5e8},
		{Symbol: "RELIANCE", Date: day(2024, 1, 1), Close: 2500, ValueTraded: 4e8},
		{Symbol: "RELIANCE", Date: day(2024, 1, 2), Close: 2490, ValueTraded: 6e8},
		{Symbol: "TCS", Date: day(2024, 1, 1), Close: 3600, ValueTraded: 3e8},
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySymbol(ctx, "RELIANCE", day(2024, 1, 1), day(2024, 1, 2))
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(got))
	}
	if !got[0].Date.Before(got[1].Date) {
		t.Error("Expected date ASC ordering")
	}
}

func TestDailyBarStore_DuplicateSymbolDate(t *testing.T) {
	store := NewDailyBarStore()
	ctx := context.Background()

	bar := &domain.DailyBar{Symbol: "RELIANCE", Date: day(2024, 1, 1), Close: 2500}
	if err := store.InsertBulk(ctx, []*domain.DailyBar{bar}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.DailyBar{bar})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDailyBarStore_DistinctDatesAcrossSymbols(t *testing.T) {
	store := NewDailyBarStore()
	ctx := context.Background()

	bars := []*domain.DailyBar{
		{Symbol: "RELIANCE", Date: day(2024, 1, 1)},
		{Symbol: "TCS", Date: day(2024, 1, 1)},
		{Symbol: "TCS", Date: day(2024, 1, 2)},
		{Symbol: "INFY", Date: day(2024, 1, 4)},
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	dates, err := store.DistinctDates(ctx, day(2024, 1, 1), day(2024, 1, 3))
	if err != nil {
		t.Fatalf("DistinctDates failed: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("Expected 2 distinct dates, got %d", len(dates))
	}
	if !dates[0].Equal(day(2024, 1, 1)) || !dates[1].Equal(day(2024, 1, 2)) {
		t.Errorf("Unexpected dates: %v", dates)
	}
}

func TestDailyBarStore_AvgDailyValue(t *testing.T) {
	store := NewDailyBarStore()
	ctx := context.Background()

	bars := []*domain.DailyBar{
		{Symbol: "RELIANCE", Date: day(2024, 1, 1), ValueTraded: 100},
		{Symbol: "RELIANCE", Date: day(2024, 1, 2), ValueTraded: 200},
		{Symbol: "RELIANCE", Date: day(2024, 1, 3), ValueTraded: 300},
		{Symbol: "RELIANCE", Date: day(2024, 1, 4), ValueTraded: 900}, // after asOf
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Window of 2 ending at Jan 3: (200 + 300) / 2
	adv, err := store.AvgDailyValue(ctx, "RELIANCE", day(2024, 1, 3), 2)
	if err != nil {
		t.Fatalf("AvgDailyValue failed: %v", err)
	}
	if adv != 250 {
		t.Errorf("Expected 250, got %f", adv)
	}
}

func TestDailyBarStore_AvgDailyValueNoBars(t *testing.T) {
	store := NewDailyBarStore()
	ctx := context.Background()

	adv, err := store.AvgDailyValue(ctx, "UNKNOWN", day(2024, 1, 1), 20)
	if err != nil {
		t.Fatalf("AvgDailyValue failed: %v", err)
	}
	if adv != 0 {
		t.Errorf("Expected 0 for unknown symbol, got %f", adv)
	}
}
