package prices

import (
	"context"
	"fmt"
	"time"

	"stockgrid/internal/clients/yahoo"
	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/models"
)

// Hydrator performs the synchronous part of cache population: when a symbol
// has no local rows at all, the read path fetches it inline so first-time
// queries return data instead of an empty series.
type Hydrator struct {
	store    interfaces.PriceStore
	resolver *Resolver
	logger   *common.Logger
}

func NewHydrator(store interfaces.PriceStore, resolver *Resolver, logger *common.Logger) *Hydrator {
	return &Hydrator{store: store, resolver: resolver, logger: logger}
}

// HydrateMissing fills every gap window for the symbol synchronously. The
// first failed window aborts the remaining ones for that symbol; the returned
// warning is already normalized and safe to embed in a response.
func (h *Hydrator) HydrateMissing(ctx context.Context, symbol string, from, to time.Time) (warning string) {
	boundsBySymbol, err := h.store.GetTradeDateBounds(ctx, []string{symbol})
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Str("symbol", symbol).Err(err).Msg("Hydration bounds lookup failed")
		}
		return ""
	}
	var bounds *models.TradeDateBounds
	if b, ok := boundsBySymbol[symbol]; ok {
		bounds = &b
	}

	for _, window := range MissingWindows(from, to, bounds) {
		history, err := h.resolver.ResolveHistory(ctx, symbol, window.FromDate, window.ToDate)
		if err != nil {
			msg := yahoo.NormalizeErrorMessage(err.Error(), yahoo.NormalizeOptions{})
			if h.logger != nil {
				h.logger.Warn().
					Str("symbol", symbol).
					Time("from", window.FromDate).
					Time("to", window.ToDate).
					Err(err).
					Msg("Hydration fetch failed")
			}
			return fmt.Sprintf("%s: failed to fetch missing historical data (%s)", symbol, msg)
		}

		if len(history.Points) == 0 {
			continue
		}

		if _, err := h.store.UpsertDailyPrices(ctx, symbol, history.Points); err != nil {
			if h.logger != nil {
				h.logger.Error().Str("symbol", symbol).Err(err).Msg("Hydration persist failed")
			}
			return fmt.Sprintf("%s: failed to store historical data", symbol)
		}
	}

	return ""
}
