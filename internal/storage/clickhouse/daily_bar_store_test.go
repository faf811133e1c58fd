package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDailyBarStore_Integration(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyBarStore(conn)
	ctx := context.Background()

	bars := []*domain.DailyBar{
		{Symbol: "RELIANCE", Date: day(2024, 1, 1), Open: 2490, High: 2520, Low: 2480, Close: 2500, Volume: 1200000, ValueTraded: 3e9},
		{Symbol: "RELIANCE", Date: day(2024, 1, 2), Open: 2500, High: 2540, Low: 2495, Close: 2530, Volume: 1500000, ValueTraded: 3.8e9},
		{Symbol: "RELIANCE", Date: day(2024, 1, 3), Open: 2530, High: 2550, Low: 2510, Close: 2515, Volume: 900000, ValueTraded: 2.2e9},
		{Symbol: "TCS", Date: day(2024, 1, 2), Open: 3600, High: 3650, Low: 3580, Close: 3640, Volume: 400000, ValueTraded: 1.4e9},
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	t.Run("GetBySymbolRange", func(t *testing.T) {
		got, err := store.GetBySymbol(ctx, "RELIANCE", day(2024, 1, 1), day(2024, 1, 2))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Date.Before(got[1].Date))
		assert.InDelta(t, 2500, got[0].Close, 1e-9)
		assert.Equal(t, int64(1500000), got[1].Volume)
	})

	t.Run("DistinctDates", func(t *testing.T) {
		dates, err := store.DistinctDates(ctx, day(2024, 1, 1), day(2024, 1, 31))
		require.NoError(t, err)
		require.Len(t, dates, 3)
		assert.True(t, dates[0].Equal(day(2024, 1, 1)))
		assert.True(t, dates[2].Equal(day(2024, 1, 3)))
	})

	t.Run("AvgDailyValue", func(t *testing.T) {
		// Window of 2 ending Jan 3: (3.8e9 + 2.2e9) / 2
		adv, err := store.AvgDailyValue(ctx, "RELIANCE", day(2024, 1, 3), 2)
		require.NoError(t, err)
		assert.InDelta(t, 3e9, adv, 1e3)
	})

	t.Run("AvgDailyValueUnknownSymbol", func(t *testing.T) {
		adv, err := store.AvgDailyValue(ctx, "MISSING", day(2024, 1, 3), 20)
		require.NoError(t, err)
		assert.Equal(t, 0.0, adv)
	})

	t.Run("DuplicateRejected", func(t *testing.T) {
		err := store.InsertBulk(ctx, []*domain.DailyBar{
			{Symbol: "RELIANCE", Date: day(2024, 1, 1), Close: 9999},
		})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})
}
