package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

// PriceStore persists daily price rows keyed by (symbol, trade date). Trade
// dates are stored as YYYY-MM-DD text, so range scans are plain string
// comparisons.
type PriceStore struct {
	manager *Manager
}

func (s *PriceStore) GetTradeDateBounds(ctx context.Context, symbols []string) (map[string]models.TradeDateBounds, error) {
	if len(symbols) == 0 {
		return map[string]models.TradeDateBounds{}, nil
	}

	query := fmt.Sprintf(
		`SELECT symbol, MIN(trade_date), MAX(trade_date)
		 FROM daily_prices WHERE symbol IN (%s) GROUP BY symbol`,
		placeholders(len(symbols)),
	)

	rows, err := s.manager.db.QueryContext(ctx, query, toAnySlice(symbols)...)
	if err != nil {
		return nil, fmt.Errorf("query trade date bounds: %w", err)
	}
	defer rows.Close()

	bounds := make(map[string]models.TradeDateBounds)
	for rows.Next() {
		var symbol, minKey, maxKey string
		if err := rows.Scan(&symbol, &minKey, &maxKey); err != nil {
			return nil, fmt.Errorf("scan trade date bounds: %w", err)
		}
		minDate, err := common.ParseDateKey(minKey)
		if err != nil {
			return nil, fmt.Errorf("parse min trade date %q: %w", minKey, err)
		}
		maxDate, err := common.ParseDateKey(maxKey)
		if err != nil {
			return nil, fmt.Errorf("parse max trade date %q: %w", maxKey, err)
		}
		bounds[symbol] = models.TradeDateBounds{
			Symbol:       symbol,
			MinTradeDate: minDate,
			MaxTradeDate: maxDate,
		}
	}
	return bounds, rows.Err()
}

func (s *PriceStore) UpsertDailyPrices(ctx context.Context, symbol string, points []models.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	tx, err := s.manager.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_prices (symbol, trade_date, close, adj_close, currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			close = excluded.close,
			adj_close = excluded.adj_close,
			currency = excluded.currency,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	count := 0
	for _, point := range points {
		currency := point.Currency
		if currency == "" {
			currency = "N/A"
		}
		if _, err := stmt.ExecContext(ctx,
			symbol, common.DateKey(point.TradeDate), point.Close, point.AdjClose, currency, now,
		); err != nil {
			return 0, fmt.Errorf("upsert price row: %w", err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return count, nil
}

func (s *PriceStore) GetPriceSeries(ctx context.Context, symbols []string, from, to time.Time) ([]models.SymbolSeries, error) {
	dailyRows, err := s.GetDailyRows(ctx, symbols, from, to)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]*models.SymbolSeries)
	order := make([]string, 0, len(symbols))
	for _, row := range dailyRows {
		series, ok := bySymbol[row.Symbol]
		if !ok {
			series = &models.SymbolSeries{Symbol: row.Symbol, Currency: row.Currency}
			bySymbol[row.Symbol] = series
			order = append(order, row.Symbol)
		}
		series.Points = append(series.Points, models.HistoricalPoint{
			Date:     common.DateKey(row.TradeDate),
			Close:    row.Close,
			AdjClose: row.AdjClose,
		})
	}

	out := make([]models.SymbolSeries, 0, len(order))
	for _, symbol := range order {
		out = append(out, *bySymbol[symbol])
	}
	return out, nil
}

func (s *PriceStore) GetDailyRows(ctx context.Context, symbols []string, from, to time.Time) ([]models.DailyRow, error) {
	if len(symbols) == 0 {
		return []models.DailyRow{}, nil
	}

	query := fmt.Sprintf(
		`SELECT symbol, trade_date, close, adj_close, currency
		 FROM daily_prices
		 WHERE symbol IN (%s) AND trade_date >= ? AND trade_date <= ?
		 ORDER BY symbol, trade_date`,
		placeholders(len(symbols)),
	)

	args := toAnySlice(symbols)
	args = append(args, common.DateKey(from), common.DateKey(to))

	rows, err := s.manager.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily rows: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyRow, 0)
	for rows.Next() {
		var row models.DailyRow
		var dateKey string
		if err := rows.Scan(&row.Symbol, &dateKey, &row.Close, &row.AdjClose, &row.Currency); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		tradeDate, err := common.ParseDateKey(dateKey)
		if err != nil {
			return nil, fmt.Errorf("parse trade date %q: %w", dateKey, err)
		}
		row.TradeDate = tradeDate
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *PriceStore) GetLatestSnapshots(ctx context.Context, symbols []string) (map[string]models.PriceSnapshot, error) {
	if len(symbols) == 0 {
		return map[string]models.PriceSnapshot{}, nil
	}

	query := fmt.Sprintf(
		`SELECT symbol, MAX(trade_date), close, currency
		 FROM daily_prices WHERE symbol IN (%s) GROUP BY symbol`,
		placeholders(len(symbols)),
	)

	rows, err := s.manager.db.QueryContext(ctx, query, toAnySlice(symbols)...)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.PriceSnapshot)
	for rows.Next() {
		var snapshot models.PriceSnapshot
		var dateKey string
		if err := rows.Scan(&snapshot.Symbol, &dateKey, &snapshot.Close, &snapshot.Currency); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		tradeDate, err := common.ParseDateKey(dateKey)
		if err != nil {
			return nil, fmt.Errorf("parse trade date %q: %w", dateKey, err)
		}
		snapshot.TradeDate = tradeDate
		out[snapshot.Symbol] = snapshot
	}
	return out, rows.Err()
}

func (s *PriceStore) GetLastTradeDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	var dateKey sql.NullString
	err := s.manager.db.QueryRowContext(ctx,
		`SELECT MAX(trade_date) FROM daily_prices WHERE symbol = ?`, symbol,
	).Scan(&dateKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last trade date: %w", err)
	}
	if !dateKey.Valid {
		return time.Time{}, false, nil
	}

	tradeDate, err := common.ParseDateKey(dateKey.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse trade date %q: %w", dateKey.String, err)
	}
	return tradeDate, true, nil
}
