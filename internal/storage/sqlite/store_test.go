package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockgrid.db")
	m, err := NewManager(path, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func day(y int, month time.Month, d int) time.Time {
	return time.Date(y, month, d, 0, 0, 0, 0, common.ReferenceLocation())
}

func points(days ...int) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(days))
	for _, d := range days {
		out = append(out, models.PricePoint{
			TradeDate: day(2025, time.March, d),
			Close:     100 + float64(d),
			AdjClose:  99 + float64(d),
			Currency:  "USD",
		})
	}
	return out
}

func TestPriceStore_UpsertAndBounds(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	n, err := m.Prices().UpsertDailyPrices(ctx, "AAPL", points(26, 27, 28))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	bounds, err := m.Prices().GetTradeDateBounds(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	require.Contains(t, bounds, "AAPL")
	assert.NotContains(t, bounds, "MSFT")
	assert.Equal(t, "2025-03-26", common.DateKey(bounds["AAPL"].MinTradeDate))
	assert.Equal(t, "2025-03-28", common.DateKey(bounds["AAPL"].MaxTradeDate))
}

func TestPriceStore_UpsertIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Prices().UpsertDailyPrices(ctx, "AAPL", points(28))
	require.NoError(t, err)

	// Same date again with a different close: last write wins, no duplicate.
	updated := points(28)
	updated[0].Close = 500
	_, err = m.Prices().UpsertDailyPrices(ctx, "AAPL", updated)
	require.NoError(t, err)

	series, err := m.Prices().GetPriceSeries(ctx, []string{"AAPL"}, day(2025, time.March, 1), day(2025, time.March, 31))
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Len(t, series[0].Points, 1)
	assert.Equal(t, 500.0, series[0].Points[0].Close)
}

func TestPriceStore_SeriesRangeAndOrder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Prices().UpsertDailyPrices(ctx, "AAPL", points(10, 20, 28, 31))
	require.NoError(t, err)
	_, err = m.Prices().UpsertDailyPrices(ctx, "0700.HK", points(20, 28))
	require.NoError(t, err)

	series, err := m.Prices().GetPriceSeries(ctx, []string{"AAPL", "0700.HK"}, day(2025, time.March, 15), day(2025, time.March, 30))
	require.NoError(t, err)
	require.Len(t, series, 2)

	for _, entry := range series {
		for i := 1; i < len(entry.Points); i++ {
			assert.Less(t, entry.Points[i-1].Date, entry.Points[i].Date, "points must be ascending")
		}
		for _, p := range entry.Points {
			assert.GreaterOrEqual(t, p.Date, "2025-03-15")
			assert.LessOrEqual(t, p.Date, "2025-03-30")
		}
	}
}

func TestPriceStore_GetLastTradeDate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, ok, err := m.Prices().GetLastTradeDate(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Prices().UpsertDailyPrices(ctx, "AAPL", points(27, 31))
	require.NoError(t, err)

	last, ok, err := m.Prices().GetLastTradeDate(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03-31", common.DateKey(last))
}

func TestPriceStore_GetLatestSnapshots(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Prices().UpsertDailyPrices(ctx, "AAPL", points(27, 31))
	require.NoError(t, err)

	snapshots, err := m.Prices().GetLatestSnapshots(ctx, []string{"AAPL"})
	require.NoError(t, err)
	require.Contains(t, snapshots, "AAPL")
	assert.Equal(t, "2025-03-31", common.DateKey(snapshots["AAPL"].TradeDate))
	assert.Equal(t, 131.0, snapshots["AAPL"].Close)
}

func TestWatchlistStore_UpsertListRemove(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first, err := m.Watchlist().Upsert(ctx, "AAPL", "")
	require.NoError(t, err)
	assert.True(t, first.Enabled)
	assert.Equal(t, 0, first.SortOrder)

	second, err := m.Watchlist().Upsert(ctx, "0700.HK", "Tencent")
	require.NoError(t, err)
	assert.Equal(t, 1, second.SortOrder)
	assert.Equal(t, "Tencent", second.DisplayName)

	// Re-adding updates in place instead of duplicating.
	again, err := m.Watchlist().Upsert(ctx, "AAPL", "Apple")
	require.NoError(t, err)
	assert.Equal(t, "Apple", again.DisplayName)

	count, err := m.Watchlist().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	items, err := m.Watchlist().List(ctx, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "AAPL", items[0].Symbol)

	require.NoError(t, m.Watchlist().Remove(ctx, "AAPL"))

	err = m.Watchlist().Remove(ctx, "AAPL")
	require.Error(t, err)
	assert.True(t, models.IsInputError(err))
}

func TestWatchlistStore_BulkInsertAndReorder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Watchlist().BulkInsert(ctx, []string{"AAPL", "MSFT", "GOOGL"}))

	// Bulk insert skips existing rows.
	require.NoError(t, m.Watchlist().BulkInsert(ctx, []string{"AAPL"}))
	count, err := m.Watchlist().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, m.Watchlist().Reorder(ctx, []string{"GOOGL", "AAPL"}))

	items, err := m.Watchlist().List(ctx, false)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "GOOGL", items[0].Symbol)
	assert.Equal(t, "AAPL", items[1].Symbol)
	assert.Equal(t, "MSFT", items[2].Symbol)
}

func TestWatchlistStore_UpdateAutoMeta(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Watchlist().Upsert(ctx, "AAPL", "")
	require.NoError(t, err)

	at := time.Date(2025, time.March, 31, 10, 0, 0, 0, time.UTC)
	meta := models.QuoteMetadata{Name: "Apple Inc.", Region: "US", Currency: "USD"}
	require.NoError(t, m.Watchlist().UpdateAutoMeta(ctx, "AAPL", meta, at))

	got, err := m.Watchlist().GetBySymbols(ctx, []string{"AAPL"})
	require.NoError(t, err)
	require.Contains(t, got, "AAPL")

	item := got["AAPL"]
	assert.Equal(t, "Apple Inc.", item.AutoName)
	assert.Equal(t, "US", item.AutoRegion)
	assert.Equal(t, "USD", item.AutoCurrency)
	require.NotNil(t, item.MetaUpdatedAt)
	assert.True(t, item.MetaUpdatedAt.Equal(at))
	assert.Equal(t, "Apple Inc.", item.ResolvedName())
}

func TestJobLogStore_CreateAndLastSuccessful(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, ok, err := m.JobLogs().LastSuccessfulAt(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	failed := &models.DailyUpdateResult{
		JobDate:   "2025-03-28",
		StartedAt: time.Date(2025, time.March, 28, 17, 30, 0, 0, time.UTC),
		EndedAt:   time.Date(2025, time.March, 28, 17, 31, 0, 0, time.UTC),
		Status:    models.UpdateStatusFailed,
		Message:   "all 2 symbols failed to update",
		Failures:  []models.UpdateFailure{{Symbol: "AAPL", Error: "quote source unavailable"}},
	}
	require.NoError(t, m.JobLogs().Create(ctx, failed))

	// A failed run does not count as a successful update.
	_, ok, err = m.JobLogs().LastSuccessfulAt(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	partial := &models.DailyUpdateResult{
		JobDate:   "2025-03-31",
		StartedAt: time.Date(2025, time.March, 31, 17, 30, 0, 0, time.UTC),
		EndedAt:   time.Date(2025, time.March, 31, 17, 32, 0, 0, time.UTC),
		Status:    models.UpdateStatusPartial,
		Message:   "updated 1 of 2 symbols",
		Failures:  []models.UpdateFailure{},
	}
	require.NoError(t, m.JobLogs().Create(ctx, partial))

	at, ok, err := m.JobLogs().LastSuccessfulAt(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(partial.EndedAt))
}
