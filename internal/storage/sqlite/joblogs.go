package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockgrid/internal/models"
)

// JobLogStore persists daily-update run outcomes.
type JobLogStore struct {
	manager *Manager
}

func (s *JobLogStore) Create(ctx context.Context, result *models.DailyUpdateResult) error {
	failures, err := json.Marshal(result.Failures)
	if err != nil {
		return fmt.Errorf("marshal update failures: %w", err)
	}

	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()

	_, err = s.manager.db.ExecContext(ctx, `
		INSERT INTO update_job_logs (
			job_date, started_at, ended_at, status,
			total_symbols, success_symbols, failed_symbols, no_op_symbols,
			upserted_rows, message, failures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.JobDate,
		formatTime(result.StartedAt),
		formatTime(result.EndedAt),
		result.Status,
		result.TotalSymbols,
		result.SuccessSymbols,
		result.FailedSymbols,
		result.NoOpSymbols,
		result.UpsertedRows,
		result.Message,
		string(failures))
	if err != nil {
		return fmt.Errorf("insert job log: %w", err)
	}
	return nil
}

// LastSuccessfulAt returns when the latest run that refreshed data finished.
// Partial runs count: some symbols were updated.
func (s *JobLogStore) LastSuccessfulAt(ctx context.Context) (time.Time, bool, error) {
	var endedAt string
	err := s.manager.db.QueryRowContext(ctx, `
		SELECT ended_at FROM update_job_logs
		WHERE status IN (?, ?)
		ORDER BY ended_at DESC LIMIT 1`,
		models.UpdateStatusSuccess, models.UpdateStatusPartial,
	).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last successful update: %w", err)
	}

	at, err := parseTime(endedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse ended_at: %w", err)
	}
	return at, true, nil
}
