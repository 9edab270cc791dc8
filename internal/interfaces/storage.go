package interfaces

import (
	"context"
	"time"

	"stockgrid/internal/models"
)

// PriceStore persists daily price points keyed by (symbol, trade date).
type PriceStore interface {
	// GetTradeDateBounds returns min/max stored trade dates per symbol.
	// Symbols with no stored rows are absent from the result.
	GetTradeDateBounds(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error)

	// UpsertDailyPrices writes points idempotently, last write wins per (symbol, date)
	UpsertDailyPrices(ctx context.Context, symbol string, points []models.PricePoint) (int, error)

	// GetPriceSeries returns stored series for the symbols within [from, to], ascending by date
	GetPriceSeries(ctx context.Context, symbols []string, from, to time.Time) ([]models.SymbolSeries, error)

	// GetDailyRows returns raw rows for the symbols within [from, to]
	GetDailyRows(ctx context.Context, symbols []string, from, to time.Time) ([]models.DailyRow, error)

	// GetLatestSnapshots returns the most recent stored close per symbol
	GetLatestSnapshots(ctx context.Context, symbols []string) (map[string]models.PriceSnapshot, error)

	// GetLastTradeDate returns the latest stored trade date for one symbol
	GetLastTradeDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// WatchlistStore persists the tracked symbol list.
type WatchlistStore interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, enabledOnly bool) ([]models.WatchSymbol, error)
	GetBySymbols(ctx context.Context, symbols []string) (map[string]models.WatchSymbol, error)
	Upsert(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error)
	Remove(ctx context.Context, symbol string) error
	BulkInsert(ctx context.Context, symbols []string) error
	Reorder(ctx context.Context, symbols []string) error

	// UpdateAutoMeta records an upstream metadata probe result
	UpdateAutoMeta(ctx context.Context, symbol string, meta models.QuoteMetadata, at time.Time) error
}

// JobLogStore persists daily-update job outcomes.
type JobLogStore interface {
	Create(ctx context.Context, result *models.DailyUpdateResult) error
	LastSuccessfulAt(ctx context.Context) (time.Time, bool, error)
}

// StorageManager provides access to all storage areas.
type StorageManager interface {
	Prices() PriceStore
	Watchlist() WatchlistStore
	JobLogs() JobLogStore
	Close() error
}
