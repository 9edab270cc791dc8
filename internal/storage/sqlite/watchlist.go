package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockgrid/internal/models"
)

// WatchlistStore persists the tracked symbol list.
type WatchlistStore struct {
	manager *Manager
}

func (s *WatchlistStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.manager.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watch_symbols`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count watch symbols: %w", err)
	}
	return count, nil
}

func (s *WatchlistStore) List(ctx context.Context, enabledOnly bool) ([]models.WatchSymbol, error) {
	query := `SELECT symbol, display_name, enabled, sort_order, auto_name, auto_region,
		auto_currency, meta_updated_at, created_at, updated_at
		FROM watch_symbols`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY sort_order, symbol`

	rows, err := s.manager.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list watch symbols: %w", err)
	}
	defer rows.Close()

	out := make([]models.WatchSymbol, 0)
	for rows.Next() {
		item, err := scanWatchSymbol(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *WatchlistStore) GetBySymbols(ctx context.Context, symbols []string) (map[string]models.WatchSymbol, error) {
	if len(symbols) == 0 {
		return map[string]models.WatchSymbol{}, nil
	}

	query := fmt.Sprintf(
		`SELECT symbol, display_name, enabled, sort_order, auto_name, auto_region,
		 auto_currency, meta_updated_at, created_at, updated_at
		 FROM watch_symbols WHERE symbol IN (%s)`,
		placeholders(len(symbols)),
	)

	rows, err := s.manager.db.QueryContext(ctx, query, toAnySlice(symbols)...)
	if err != nil {
		return nil, fmt.Errorf("get watch symbols: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.WatchSymbol)
	for rows.Next() {
		item, err := scanWatchSymbol(rows)
		if err != nil {
			return nil, err
		}
		out[item.Symbol] = *item
	}
	return out, rows.Err()
}

// Upsert inserts the symbol at the end of the sort order, or re-enables an
// existing row and refreshes its display name.
func (s *WatchlistStore) Upsert(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error) {
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	now := formatTime(time.Now())

	_, err := s.manager.db.ExecContext(ctx, `
		INSERT INTO watch_symbols (symbol, display_name, enabled, sort_order, created_at, updated_at)
		VALUES (?, ?, 1, (SELECT COALESCE(MAX(sort_order), -1) + 1 FROM watch_symbols), ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			display_name = excluded.display_name,
			enabled = 1,
			updated_at = excluded.updated_at`,
		symbol, displayName, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert watch symbol: %w", err)
	}

	return s.getOne(ctx, symbol)
}

func (s *WatchlistStore) Remove(ctx context.Context, symbol string) error {
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	result, err := s.manager.db.ExecContext(ctx, `DELETE FROM watch_symbols WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("remove watch symbol: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove watch symbol: %w", err)
	}
	if affected == 0 {
		return models.NewInputError(fmt.Sprintf("symbol not in watchlist: %s", symbol))
	}
	return nil
}

func (s *WatchlistStore) BulkInsert(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	tx, err := s.manager.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for i, symbol := range symbols {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO watch_symbols (symbol, enabled, sort_order, created_at, updated_at)
			VALUES (?, 1, ?, ?, ?)
			ON CONFLICT (symbol) DO NOTHING`,
			symbol, i, now, now); err != nil {
			return fmt.Errorf("bulk insert watch symbol: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// Reorder assigns listed symbols sort order 0..n-1 and shifts everything
// else after them, preserving relative order.
func (s *WatchlistStore) Reorder(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	tx, err := s.manager.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())

	shift := fmt.Sprintf(
		`UPDATE watch_symbols SET sort_order = sort_order + ? WHERE symbol NOT IN (%s)`,
		placeholders(len(symbols)),
	)
	args := append([]any{len(symbols)}, toAnySlice(symbols)...)
	if _, err := tx.ExecContext(ctx, shift, args...); err != nil {
		return fmt.Errorf("shift sort order: %w", err)
	}

	for i, symbol := range symbols {
		if _, err := tx.ExecContext(ctx,
			`UPDATE watch_symbols SET sort_order = ?, updated_at = ? WHERE symbol = ?`,
			i, now, symbol); err != nil {
			return fmt.Errorf("reorder watch symbol: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

func (s *WatchlistStore) UpdateAutoMeta(ctx context.Context, symbol string, meta models.QuoteMetadata, at time.Time) error {
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	_, err := s.manager.db.ExecContext(ctx, `
		UPDATE watch_symbols SET
			auto_name = ?,
			auto_region = ?,
			auto_currency = ?,
			meta_updated_at = ?,
			updated_at = ?
		WHERE symbol = ?`,
		meta.Name, meta.Region, meta.Currency, formatTime(at), formatTime(time.Now()), symbol)
	if err != nil {
		return fmt.Errorf("update auto metadata: %w", err)
	}
	return nil
}

func (s *WatchlistStore) getOne(ctx context.Context, symbol string) (*models.WatchSymbol, error) {
	row := s.manager.db.QueryRowContext(ctx,
		`SELECT symbol, display_name, enabled, sort_order, auto_name, auto_region,
		 auto_currency, meta_updated_at, created_at, updated_at
		 FROM watch_symbols WHERE symbol = ?`, symbol)
	return scanWatchSymbol(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchSymbol(row rowScanner) (*models.WatchSymbol, error) {
	var item models.WatchSymbol
	var enabled int
	var metaUpdatedAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&item.Symbol, &item.DisplayName, &enabled, &item.SortOrder,
		&item.AutoName, &item.AutoRegion, &item.AutoCurrency,
		&metaUpdatedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan watch symbol: %w", err)
	}

	item.Enabled = enabled != 0

	if metaUpdatedAt.Valid {
		parsed, err := parseTime(metaUpdatedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse meta_updated_at: %w", err)
		}
		item.MetaUpdatedAt = &parsed
	}

	var err error
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &item, nil
}
