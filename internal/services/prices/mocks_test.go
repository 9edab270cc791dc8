package prices

import (
	"context"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

// day builds midnight of a calendar day in the reference zone.
func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, common.ReferenceLocation())
}

// mockChartClient implements interfaces.ChartClient for testing.
type mockChartClient struct {
	getDailyHistory  func(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error)
	getQuoteMetadata func(ctx context.Context, ticker string) (*models.QuoteMetadata, error)
	resetCalls       int
}

func (m *mockChartClient) GetDailyHistory(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
	return m.getDailyHistory(ctx, ticker, from, to)
}

func (m *mockChartClient) GetQuoteMetadata(ctx context.Context, ticker string) (*models.QuoteMetadata, error) {
	if m.getQuoteMetadata != nil {
		return m.getQuoteMetadata(ctx, ticker)
	}
	return &models.QuoteMetadata{Name: ticker}, nil
}

func (m *mockChartClient) ResetTransport() {
	m.resetCalls++
}

// mockPriceStore implements interfaces.PriceStore for testing.
type mockPriceStore struct {
	getTradeDateBounds func(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error)
	upsertDailyPrices  func(ctx context.Context, symbol string, points []models.PricePoint) (int, error)
	getPriceSeries     func(ctx context.Context, symbols []string, from, to time.Time) ([]models.SymbolSeries, error)
	getDailyRows       func(ctx context.Context, symbols []string, from, to time.Time) ([]models.DailyRow, error)
	getLatestSnapshots func(ctx context.Context, symbols []string) (map[string]models.PriceSnapshot, error)
}

func (m *mockPriceStore) GetTradeDateBounds(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
	if m.getTradeDateBounds != nil {
		return m.getTradeDateBounds(ctx, symbols)
	}
	return map[string]models.TradeDateBounds{}, nil
}

func (m *mockPriceStore) UpsertDailyPrices(ctx context.Context, symbol string, points []models.PricePoint) (int, error) {
	if m.upsertDailyPrices != nil {
		return m.upsertDailyPrices(ctx, symbol, points)
	}
	return len(points), nil
}

func (m *mockPriceStore) GetPriceSeries(ctx context.Context, symbols []string, from, to time.Time) ([]models.SymbolSeries, error) {
	if m.getPriceSeries != nil {
		return m.getPriceSeries(ctx, symbols, from, to)
	}
	return nil, nil
}

func (m *mockPriceStore) GetDailyRows(ctx context.Context, symbols []string, from, to time.Time) ([]models.DailyRow, error) {
	if m.getDailyRows != nil {
		return m.getDailyRows(ctx, symbols, from, to)
	}
	return nil, nil
}

func (m *mockPriceStore) GetLatestSnapshots(ctx context.Context, symbols []string) (map[string]models.PriceSnapshot, error) {
	if m.getLatestSnapshots != nil {
		return m.getLatestSnapshots(ctx, symbols)
	}
	return map[string]models.PriceSnapshot{}, nil
}

func (m *mockPriceStore) GetLastTradeDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// mockWatchlistStore implements interfaces.WatchlistStore for testing.
type mockWatchlistStore struct {
	list           func(ctx context.Context, enabledOnly bool) ([]models.WatchSymbol, error)
	getBySymbols   func(ctx context.Context, symbols []string) (map[string]models.WatchSymbol, error)
	updateAutoMeta func(ctx context.Context, symbol string, meta models.QuoteMetadata, at time.Time) error
}

func (m *mockWatchlistStore) Count(ctx context.Context) (int, error) { return 0, nil }

func (m *mockWatchlistStore) List(ctx context.Context, enabledOnly bool) ([]models.WatchSymbol, error) {
	if m.list != nil {
		return m.list(ctx, enabledOnly)
	}
	return nil, nil
}

func (m *mockWatchlistStore) GetBySymbols(ctx context.Context, symbols []string) (map[string]models.WatchSymbol, error) {
	if m.getBySymbols != nil {
		return m.getBySymbols(ctx, symbols)
	}
	return map[string]models.WatchSymbol{}, nil
}

func (m *mockWatchlistStore) Upsert(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error) {
	return &models.WatchSymbol{Symbol: symbol, DisplayName: displayName, Enabled: true}, nil
}

func (m *mockWatchlistStore) Remove(ctx context.Context, symbol string) error { return nil }

func (m *mockWatchlistStore) BulkInsert(ctx context.Context, symbols []string) error { return nil }

func (m *mockWatchlistStore) Reorder(ctx context.Context, symbols []string) error { return nil }

func (m *mockWatchlistStore) UpdateAutoMeta(ctx context.Context, symbol string, meta models.QuoteMetadata, at time.Time) error {
	if m.updateAutoMeta != nil {
		return m.updateAutoMeta(ctx, symbol, meta, at)
	}
	return nil
}

// noopScheduler records ConsiderRefresh calls without launching anything.
type noopScheduler struct {
	calls []string
}

func (s *noopScheduler) ConsiderRefresh(source, symbol string, from, to time.Time) {
	s.calls = append(s.calls, source+":"+symbol)
}

func (s *noopScheduler) Drain() {}
func (s *noopScheduler) Reset() {}
