package prices

import (
	"context"
	"sort"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

const (
	// presetPullYears is how far back fixed presets pull data, so that even
	// a 90-trade-day view has margin for holidays and suspensions.
	presetPullYears = 2

	// metaRefreshInterval is how stale watchlist auto-metadata may get
	// before the matrix path re-probes the upstream for it.
	metaRefreshInterval = 7 * 24 * time.Hour

	// displayDateFormat renders a trade-date column header, e.g. "25.08.29".
	displayDateFormat = "06.01.02"
)

// Matrix assembles the per-symbol, per-trade-date close matrix. Fixed
// presets show the last N distinct trade dates found in a two-year pull
// window; the custom preset shows every trade date in the given range.
// Dates in the response run newest first.
func (s *Service) Matrix(ctx context.Context, input models.MatrixQuery) (*models.MatrixResponse, error) {
	warnings := make([]string, 0)

	symbols, watchBySymbol, err := s.matrixSymbols(ctx, input)
	if err != nil {
		return nil, err
	}

	rng, err := s.matrixRange(input)
	if err != nil {
		return nil, err
	}

	if len(symbols) == 0 {
		return &models.MatrixResponse{
			Mode:         input.Mode,
			Range:        models.MatrixRange{From: rng.From, To: rng.To, Preset: input.Preset},
			Dates:        []string{},
			DisplayDates: []string{},
			Rows:         []models.MatrixRow{},
			Warnings:     append(warnings, "no symbols available"),
		}, nil
	}

	boundsBySymbol, err := s.store.GetTradeDateBounds(ctx, symbols)
	if err != nil {
		return nil, err
	}
	for _, symbol := range symbols {
		if _, cached := boundsBySymbol[symbol]; cached {
			s.scheduler.ConsiderRefresh("matrix", symbol, rng.FromDate, rng.ToDate)
			continue
		}
		if warning := s.hydrator.HydrateMissing(ctx, symbol, rng.FromDate, rng.ToDate); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	s.refreshStaleMeta(ctx, symbols, watchBySymbol)

	rows, err := s.store.GetDailyRows(ctx, symbols, rng.FromDate, rng.ToDate)
	if err != nil {
		return nil, err
	}

	// Latest close and currency come from the newest stored row overall, not
	// the newest row inside the pulled window: a custom range in the past
	// still shows the current latest.
	snapshots, err := s.store.GetLatestSnapshots(ctx, symbols)
	if err != nil {
		return nil, err
	}

	dates := selectMatrixDates(rows, input.Preset)
	if len(dates) == 0 {
		warnings = append(warnings, "no trade-day prices found in selected range")
	}

	matrixRows := buildMatrixRows(symbols, watchBySymbol, snapshots, rows, dates)

	responseRange := models.MatrixRange{From: rng.From, To: rng.To, Preset: input.Preset}
	if len(dates) > 0 {
		// Echo the span actually shown: dates run newest first.
		responseRange.From = dates[len(dates)-1]
		responseRange.To = dates[0]
	}

	return &models.MatrixResponse{
		Mode:         input.Mode,
		Range:        responseRange,
		Dates:        dates,
		DisplayDates: displayDates(dates),
		Rows:         matrixRows,
		Warnings:     dedupeWarnings(warnings),
	}, nil
}

// matrixSymbols resolves the symbol universe for the query mode. Watchlist
// mode uses enabled watch symbols in sort order; adhoc mode parses the raw
// symbols parameter and still pulls watch records for any requested symbol
// that happens to be watched, so its name and region carry over.
func (s *Service) matrixSymbols(ctx context.Context, input models.MatrixQuery) ([]string, map[string]models.WatchSymbol, error) {
	if input.Mode == models.MatrixModeAdhoc {
		symbols, err := models.ParseSymbolList(input.Symbols, s.maxSymbols)
		if err != nil {
			return nil, nil, err
		}
		watched, err := s.watchlist.GetBySymbols(ctx, symbols)
		if err != nil {
			return nil, nil, err
		}
		return symbols, watched, nil
	}

	items, err := s.watchlist.List(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	symbols := make([]string, 0, len(items))
	bySymbol := make(map[string]models.WatchSymbol, len(items))
	for _, item := range items {
		symbols = append(symbols, item.Symbol)
		bySymbol[item.Symbol] = item
	}
	return symbols, bySymbol, nil
}

func (s *Service) matrixRange(input models.MatrixQuery) (models.DateRange, error) {
	if input.Preset == models.MatrixPresetCustom {
		if input.From == "" || input.To == "" {
			return models.DateRange{}, models.NewInputError("custom preset requires from and to")
		}
		return models.BuildDateRange(input.From, input.To, s.now())
	}

	today := common.StartOfDay(s.now())
	pullFrom := today.AddDate(-presetPullYears, 0, 0)
	return models.DateRange{
		From:     common.DateKey(pullFrom),
		To:       common.DateKey(today),
		FromDate: pullFrom,
		ToDate:   common.EndOfDay(today),
	}, nil
}

// shouldRefreshMeta reports whether a watch symbol's auto metadata needs
// another upstream probe: never probed, incomplete (a previous probe stored
// empty fields), or older than the refresh interval.
func shouldRefreshMeta(item models.WatchSymbol, now time.Time) bool {
	if item.MetaUpdatedAt == nil {
		return true
	}
	if item.AutoName == "" || item.AutoRegion == "" || item.AutoCurrency == "" {
		return true
	}
	return now.Sub(*item.MetaUpdatedAt) >= metaRefreshInterval
}

// refreshStaleMeta re-probes upstream metadata for watch symbols whose auto
// fields are stale or incomplete. Failures only log; metadata is cosmetic.
func (s *Service) refreshStaleMeta(ctx context.Context, symbols []string, watchBySymbol map[string]models.WatchSymbol) {
	now := s.now()
	for _, symbol := range symbols {
		item, ok := watchBySymbol[symbol]
		if !ok {
			continue
		}
		if !shouldRefreshMeta(item, now) {
			continue
		}

		meta, err := s.resolver.ResolveMetadata(ctx, symbol)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Metadata refresh failed")
			}
			continue
		}

		if err := s.watchlist.UpdateAutoMeta(ctx, symbol, *meta, now); err != nil {
			if s.logger != nil {
				s.logger.Error().Str("symbol", symbol).Err(err).Msg("Metadata persist failed")
			}
			continue
		}

		item.AutoName = meta.Name
		item.AutoRegion = meta.Region
		item.AutoCurrency = meta.Currency
		item.MetaUpdatedAt = &now
		watchBySymbol[symbol] = item
	}
}

// selectMatrixDates picks the trade-date columns: the distinct dates present
// in the pulled rows, trimmed to the preset's trailing count for fixed
// presets, returned newest first.
func selectMatrixDates(rows []models.DailyRow, preset models.MatrixPreset) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		seen[common.DateKey(row.TradeDate)] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if limit, ok := models.MatrixPresetDays[preset]; ok && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	// Newest first.
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

func displayDates(dates []string) []string {
	out := make([]string, 0, len(dates))
	for _, key := range dates {
		day, err := common.ParseDateKey(key)
		if err != nil {
			out = append(out, key)
			continue
		}
		out = append(out, day.Format(displayDateFormat))
	}
	return out
}

func buildMatrixRows(symbols []string, watchBySymbol map[string]models.WatchSymbol, snapshots map[string]models.PriceSnapshot, rows []models.DailyRow, dates []string) []models.MatrixRow {
	selected := make(map[string]struct{}, len(dates))
	for _, key := range dates {
		selected[key] = struct{}{}
	}

	prices := make(map[string]map[string]*float64, len(symbols))
	for _, symbol := range symbols {
		prices[symbol] = make(map[string]*float64, len(dates))
	}

	for _, row := range rows {
		cells, ok := prices[row.Symbol]
		if !ok {
			continue
		}
		key := common.DateKey(row.TradeDate)
		if _, shown := selected[key]; shown {
			closeVal := row.Close
			cells[key] = &closeVal
		}
	}

	out := make([]models.MatrixRow, 0, len(symbols))
	for _, symbol := range symbols {
		name := symbol
		region := models.InferRegionFromSymbol(symbol)
		currency := ""
		var latest *float64

		if snapshot, ok := snapshots[symbol]; ok {
			closeVal := snapshot.Close
			latest = &closeVal
			currency = snapshot.Currency
		}
		if item, ok := watchBySymbol[symbol]; ok {
			name = item.ResolvedName()
			if item.AutoRegion != "" {
				region = item.AutoRegion
			}
			if currency == "" {
				currency = item.AutoCurrency
			}
		}
		if currency == "" {
			currency = "N/A"
		}

		out = append(out, models.MatrixRow{
			Symbol:       symbol,
			Name:         name,
			Region:       region,
			Currency:     currency,
			LatestClose:  latest,
			PricesByDate: prices[symbol],
		})
	}
	return out
}
