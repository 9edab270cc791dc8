package prices

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

func newTestScheduler(store *mockPriceStore, client *mockChartClient, opts ...SchedulerOption) *Scheduler {
	resolver := NewResolver(client, common.NewSilentLogger())
	return NewScheduler(store, resolver, common.NewSilentLogger(), opts...)
}

func singlePointResult(ticker string) *models.ChartResult {
	return &models.ChartResult{
		Meta: models.ChartMeta{Symbol: ticker, Currency: "USD"},
		Points: []models.PricePoint{
			{TradeDate: day(2025, time.March, 31), Close: 200, AdjClose: 200, Currency: "USD"},
		},
	}
}

func TestConsiderRefresh_FetchesAndStoresTail(t *testing.T) {
	var fetches int32
	var stored struct {
		sync.Mutex
		symbol string
		points int
	}

	store := &mockPriceStore{
		getTradeDateBounds: func(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
			return map[string]models.TradeDateBounds{
				"AAPL": {Symbol: "AAPL", MinTradeDate: day(2024, time.January, 2), MaxTradeDate: day(2025, time.March, 20)},
			}, nil
		},
		upsertDailyPrices: func(ctx context.Context, symbol string, points []models.PricePoint) (int, error) {
			stored.Lock()
			stored.symbol = symbol
			stored.points = len(points)
			stored.Unlock()
			return len(points), nil
		},
	}
	client := &mockChartClient{
		getDailyHistory: func(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
			atomic.AddInt32(&fetches, 1)
			return singlePointResult(ticker), nil
		},
	}

	s := newTestScheduler(store, client)
	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
	stored.Lock()
	defer stored.Unlock()
	if stored.symbol != "AAPL" {
		t.Errorf("stored under %q, want AAPL", stored.symbol)
	}
	if stored.points != 1 {
		t.Errorf("stored %d points, want 1", stored.points)
	}
}

func TestConsiderRefresh_CooldownSuppressesRetrigger(t *testing.T) {
	var fetches int32
	now := day(2025, time.March, 31).Add(12 * time.Hour)
	clock := func() time.Time { return now }

	store := &mockPriceStore{
		getTradeDateBounds: func(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
			return map[string]models.TradeDateBounds{
				"AAPL": {Symbol: "AAPL", MinTradeDate: day(2024, time.January, 2), MaxTradeDate: day(2025, time.March, 20)},
			}, nil
		},
	}
	client := &mockChartClient{
		getDailyHistory: func(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
			atomic.AddInt32(&fetches, 1)
			return singlePointResult(ticker), nil
		},
	}

	s := newTestScheduler(store, client, WithClock(clock))

	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()
	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetches = %d, want 1 (second trigger inside cooldown)", got)
	}

	// Past the cooldown the symbol is eligible again.
	now = now.Add(DefaultCooldown + time.Minute)
	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()

	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Errorf("fetches = %d, want 2 after cooldown elapsed", got)
	}
}

func TestConsiderRefresh_FailureStillStartsCooldown(t *testing.T) {
	var fetches int32
	now := day(2025, time.March, 31).Add(12 * time.Hour)
	clock := func() time.Time { return now }

	store := &mockPriceStore{
		getTradeDateBounds: func(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
			return map[string]models.TradeDateBounds{}, nil
		},
	}
	client := &mockChartClient{
		getDailyHistory: func(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
			atomic.AddInt32(&fetches, 1)
			return nil, context.DeadlineExceeded
		},
	}

	s := newTestScheduler(store, client, WithClock(clock))

	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()
	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()

	if got := atomic.LoadInt32(&fetches); got != 1 {
		t.Errorf("fetches = %d, want 1 (failed attempt still cools down)", got)
	}
}

func TestConsiderRefresh_SkipsWhenCovered(t *testing.T) {
	var fetches int32
	store := &mockPriceStore{
		getTradeDateBounds: func(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
			return map[string]models.TradeDateBounds{
				"AAPL": {Symbol: "AAPL", MinTradeDate: day(2024, time.January, 2), MaxTradeDate: day(2025, time.March, 31)},
			}, nil
		},
	}
	client := &mockChartClient{
		getDailyHistory: func(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
			atomic.AddInt32(&fetches, 1)
			return singlePointResult(ticker), nil
		},
	}

	s := newTestScheduler(store, client)
	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()

	if got := atomic.LoadInt32(&fetches); got != 0 {
		t.Errorf("fetches = %d, want 0 when local data covers the range", got)
	}
}

func TestConsiderRefresh_ResetClearsCooldown(t *testing.T) {
	var fetches int32
	store := &mockPriceStore{
		getTradeDateBounds: func(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
			return map[string]models.TradeDateBounds{}, nil
		},
	}
	client := &mockChartClient{
		getDailyHistory: func(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
			atomic.AddInt32(&fetches, 1)
			return singlePointResult(ticker), nil
		},
	}

	s := newTestScheduler(store, client)

	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()
	s.Reset()
	s.ConsiderRefresh("query", "AAPL", day(2025, time.March, 1), day(2025, time.March, 31))
	s.Drain()

	if got := atomic.LoadInt32(&fetches); got != 2 {
		t.Errorf("fetches = %d, want 2 after Reset", got)
	}
}
