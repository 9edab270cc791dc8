// Package sqlite implements the storage layer on a single SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
)

// Manager owns the database handle and hands out the per-area stores.
// SQLite allows one writer at a time, so all stores share a write mutex.
type Manager struct {
	db     *sql.DB
	logger *common.Logger
	mu     sync.Mutex

	prices    *PriceStore
	watchlist *WatchlistStore
	jobLogs   *JobLogStore
}

// NewManager opens (or creates) the database at path and runs migrations.
func NewManager(path string, logger *common.Logger) (*Manager, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode keeps reads fast while background refreshes write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	m := &Manager{db: db, logger: logger}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	m.prices = &PriceStore{manager: m}
	m.watchlist = &WatchlistStore{manager: m}
	m.jobLogs = &JobLogStore{manager: m}

	if logger != nil {
		logger.Info().Str("path", path).Msg("SQLite storage opened")
	}
	return m, nil
}

func (m *Manager) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_prices (
			symbol     TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			close      REAL NOT NULL,
			adj_close  REAL NOT NULL,
			currency   TEXT NOT NULL DEFAULT 'N/A',
			updated_at TEXT NOT NULL,
			PRIMARY KEY (symbol, trade_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(trade_date)`,

		`CREATE TABLE IF NOT EXISTS watch_symbols (
			symbol          TEXT PRIMARY KEY,
			display_name    TEXT NOT NULL DEFAULT '',
			enabled         INTEGER NOT NULL DEFAULT 1,
			sort_order      INTEGER NOT NULL DEFAULT 0,
			auto_name       TEXT NOT NULL DEFAULT '',
			auto_region     TEXT NOT NULL DEFAULT '',
			auto_currency   TEXT NOT NULL DEFAULT '',
			meta_updated_at TEXT,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS update_job_logs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			job_date        TEXT NOT NULL,
			started_at      TEXT NOT NULL,
			ended_at        TEXT NOT NULL,
			status          TEXT NOT NULL,
			total_symbols   INTEGER NOT NULL,
			success_symbols INTEGER NOT NULL,
			failed_symbols  INTEGER NOT NULL,
			no_op_symbols   INTEGER NOT NULL DEFAULT 0,
			upserted_rows   INTEGER NOT NULL,
			message         TEXT NOT NULL,
			failures        TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_job_logs_date ON update_job_logs(job_date)`,
	}

	for _, stmt := range stmts {
		if _, err := m.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Prices() interfaces.PriceStore        { return m.prices }
func (m *Manager) Watchlist() interfaces.WatchlistStore { return m.watchlist }
func (m *Manager) JobLogs() interfaces.JobLogStore      { return m.jobLogs }

func (m *Manager) Close() error {
	return m.db.Close()
}

// Timestamps are stored as RFC 3339 text so they stay readable in the
// sqlite3 shell and sort lexicographically.
const timestampLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(timestampLayout, raw)
}

// placeholders builds "?, ?, ?" for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',', ' ')
		}
		out = append(out, '?')
	}
	return string(out)
}

func toAnySlice(symbols []string) []any {
	out := make([]any, len(symbols))
	for i, s := range symbols {
		out[i] = s
	}
	return out
}
