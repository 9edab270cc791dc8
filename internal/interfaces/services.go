package interfaces

import (
	"context"
	"time"

	"stockgrid/internal/models"
)

// PriceService serves price history reads from the local store, hydrating and
// refreshing it opportunistically.
type PriceService interface {
	// Query returns stored series for the symbols, backfilling symbols that
	// have no local data at all before reading
	Query(ctx context.Context, symbols []string, rng models.DateRange) (*models.PriceQueryResponse, error)

	// Matrix assembles the per-symbol, per-date close matrix
	Matrix(ctx context.Context, input models.MatrixQuery) (*models.MatrixResponse, error)
}

// RefreshScheduler coordinates background tail refreshes per symbol.
type RefreshScheduler interface {
	// ConsiderRefresh fires a background tail refresh for the symbol unless one
	// is in flight or the cooldown has not elapsed. Never blocks on the upstream.
	ConsiderRefresh(source, symbol string, from, to time.Time)

	// Drain waits for all tracked background tasks. Test harnesses only.
	Drain()

	// Reset clears cooldown and in-flight state. Test harnesses only.
	Reset()
}

// UpdateService runs the scheduled full update across the watchlist.
type UpdateService interface {
	RunDailyUpdate(ctx context.Context, now time.Time) (*models.DailyUpdateResult, error)
}

// WatchlistService manages the tracked symbol list.
type WatchlistService interface {
	// EnsureDefaults seeds the configured default watchlist once, when empty
	EnsureDefaults(ctx context.Context) error

	List(ctx context.Context) (*models.WatchlistResponse, error)
	Add(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error)
	Remove(ctx context.Context, symbol string) error
	Reorder(ctx context.Context, symbols []string) error
}
