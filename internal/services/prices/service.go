package prices

import (
	"context"
	"fmt"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/models"
)

// Service answers price reads from the local store. Symbols with no local
// rows are hydrated inline before reading; everything else is served as-is
// with a background tail refresh scheduled behind the response.
type Service struct {
	store     interfaces.PriceStore
	watchlist interfaces.WatchlistStore
	hydrator  *Hydrator
	resolver  *Resolver
	scheduler interfaces.RefreshScheduler
	logger    *common.Logger
	now       func() time.Time

	maxSymbols int
}

type ServiceOption func(*Service)

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMaxSymbols(max int) ServiceOption {
	return func(s *Service) {
		if max > 0 {
			s.maxSymbols = max
		}
	}
}

func NewService(
	store interfaces.PriceStore,
	watchlist interfaces.WatchlistStore,
	hydrator *Hydrator,
	resolver *Resolver,
	scheduler interfaces.RefreshScheduler,
	logger *common.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		store:      store,
		watchlist:  watchlist,
		hydrator:   hydrator,
		resolver:   resolver,
		scheduler:  scheduler,
		logger:     logger,
		now:        time.Now,
		maxSymbols: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns the stored series for each symbol within the range. Symbols
// absent from the store entirely are fetched synchronously first so a
// first-time query is not empty; cached symbols get an asynchronous tail
// refresh instead, and the response reflects whatever is stored right now.
func (s *Service) Query(ctx context.Context, symbols []string, rng models.DateRange) (*models.PriceQueryResponse, error) {
	warnings := make([]string, 0)

	boundsBySymbol, err := s.store.GetTradeDateBounds(ctx, symbols)
	if err != nil {
		return nil, err
	}

	for _, symbol := range symbols {
		if _, cached := boundsBySymbol[symbol]; cached {
			s.scheduler.ConsiderRefresh("query", symbol, rng.FromDate, rng.ToDate)
			continue
		}
		if warning := s.hydrator.HydrateMissing(ctx, symbol, rng.FromDate, rng.ToDate); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	series, err := s.store.GetPriceSeries(ctx, symbols, rng.FromDate, rng.ToDate)
	if err != nil {
		return nil, err
	}

	// Every requested symbol appears in the response, empty series included,
	// in request order.
	bySymbol := make(map[string]models.SymbolSeries, len(series))
	for _, entry := range series {
		bySymbol[entry.Symbol] = entry
	}

	ordered := make([]models.SymbolSeries, 0, len(symbols))
	for _, symbol := range symbols {
		if entry, ok := bySymbol[symbol]; ok {
			ordered = append(ordered, entry)
			continue
		}
		ordered = append(ordered, models.SymbolSeries{
			Symbol: symbol,
			Points: []models.HistoricalPoint{},
		})
		warnings = append(warnings, fmt.Sprintf("%s: no data found in selected range", symbol))
	}

	return &models.PriceQueryResponse{
		Range:    models.QueryRange{From: rng.From, To: rng.To},
		Series:   ordered,
		Warnings: dedupeWarnings(warnings),
	}, nil
}

// dedupeWarnings removes repeated warning strings preserving first-seen order.
func dedupeWarnings(warnings []string) []string {
	seen := make(map[string]struct{}, len(warnings))
	out := warnings[:0]
	for _, warning := range warnings {
		if _, dup := seen[warning]; dup {
			continue
		}
		seen[warning] = struct{}{}
		out = append(out, warning)
	}
	return out
}
