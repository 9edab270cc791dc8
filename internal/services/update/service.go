// Package update implements the scheduled full refresh of the watchlist's
// price history.
package update

import (
	"context"
	"fmt"
	"time"

	"stockgrid/internal/clients/yahoo"
	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/models"
	"stockgrid/internal/services/prices"
)

const (
	defaultLookbackYears = 2

	maxFetchAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond
)

// Service runs the daily update: for every enabled watch symbol, fetch from
// the day after its latest stored trade date up to today, and record the run
// outcome in the job log.
type Service struct {
	prices    interfaces.PriceStore
	watchlist interfaces.WatchlistStore
	jobLogs   interfaces.JobLogStore
	resolver  *prices.Resolver
	logger    *common.Logger

	lookbackYears int
	sleep         func(time.Duration)
}

type Option func(*Service)

func WithLookbackYears(years int) Option {
	return func(s *Service) {
		if years > 0 {
			s.lookbackYears = years
		}
	}
}

// WithSleep replaces the retry backoff sleep. Test harnesses only.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func NewService(
	priceStore interfaces.PriceStore,
	watchlistStore interfaces.WatchlistStore,
	jobLogs interfaces.JobLogStore,
	resolver *prices.Resolver,
	logger *common.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		prices:        priceStore,
		watchlist:     watchlistStore,
		jobLogs:       jobLogs,
		resolver:      resolver,
		logger:        logger,
		lookbackYears: defaultLookbackYears,
		sleep:         time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunDailyUpdate refreshes every enabled watch symbol and writes a job log
// entry regardless of outcome. The returned result is the same record that
// was logged.
func (s *Service) RunDailyUpdate(ctx context.Context, now time.Time) (*models.DailyUpdateResult, error) {
	startedAt := now
	today := common.StartOfDay(now)

	result := &models.DailyUpdateResult{
		JobDate:   common.DateKey(today),
		StartedAt: startedAt,
		Failures:  []models.UpdateFailure{},
	}

	items, err := s.watchlist.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch symbols: %w", err)
	}

	result.TotalSymbols = len(items)
	if len(items) == 0 {
		result.Status = models.UpdateStatusSuccess
		result.Message = "watchlist is empty; nothing to update"
		result.EndedAt = time.Now()
		s.persistResult(ctx, result)
		return result, nil
	}

	for _, item := range items {
		rows, err := s.updateSymbol(ctx, item.Symbol, today)
		if err != nil {
			result.FailedSymbols++
			result.Failures = append(result.Failures, models.UpdateFailure{
				Symbol: item.Symbol,
				Error:  yahoo.NormalizeErrorMessage(err.Error(), yahoo.NormalizeOptions{}),
			})
			if s.logger != nil {
				s.logger.Warn().Str("symbol", item.Symbol).Err(err).Msg("Daily update symbol failed")
			}
			continue
		}
		result.SuccessSymbols++
		result.UpsertedRows += rows
		if rows == 0 {
			result.NoOpSymbols++
		}
	}

	switch {
	case result.FailedSymbols == 0 && result.NoOpSymbols == result.TotalSymbols:
		result.Status = models.UpdateStatusSuccess
		result.Message = fmt.Sprintf("all %d symbols already current (no-op)", result.TotalSymbols)
	case result.FailedSymbols == 0:
		result.Status = models.UpdateStatusSuccess
		result.Message = fmt.Sprintf("updated %d symbols, %d rows", result.SuccessSymbols, result.UpsertedRows)
	case result.SuccessSymbols == 0:
		result.Status = models.UpdateStatusFailed
		result.Message = fmt.Sprintf("all %d symbols failed to update", result.FailedSymbols)
	default:
		result.Status = models.UpdateStatusPartial
		result.Message = fmt.Sprintf("updated %d of %d symbols", result.SuccessSymbols, result.TotalSymbols)
	}

	result.EndedAt = time.Now()
	s.persistResult(ctx, result)

	if s.logger != nil {
		s.logger.Info().
			Str("status", result.Status).
			Int("symbols", result.TotalSymbols).
			Int("failed", result.FailedSymbols).
			Int("noop", result.NoOpSymbols).
			Int("rows", result.UpsertedRows).
			Msg("Daily update completed")
	}
	return result, nil
}

// updateSymbol fetches the symbol's missing tail up to today. A symbol that
// is already current is a zero-row success.
func (s *Service) updateSymbol(ctx context.Context, symbol string, today time.Time) (int, error) {
	from := today.AddDate(-s.lookbackYears, 0, 0)

	last, ok, err := s.prices.GetLastTradeDate(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to read last trade date: %w", err)
	}
	if ok {
		next := common.ShiftDays(common.StartOfDay(last), 1)
		if next.After(today) {
			return 0, nil
		}
		from = next
	}

	history, err := s.fetchWithRetry(ctx, symbol, from, common.EndOfDay(today))
	if err != nil {
		return 0, err
	}
	if len(history.Points) == 0 {
		return 0, nil
	}

	rows, err := s.prices.UpsertDailyPrices(ctx, symbol, history.Points)
	if err != nil {
		return 0, fmt.Errorf("failed to store prices: %w", err)
	}
	return rows, nil
}

// fetchWithRetry retries transient upstream failures with exponential
// backoff. Not-found answers are final: no candidate resolves, and retrying
// will not change that.
func (s *Service) fetchWithRetry(ctx context.Context, symbol string, from, to time.Time) (*models.ResolvedHistory, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		history, err := s.resolver.ResolveHistory(ctx, symbol, from, to)
		if err == nil {
			return history, nil
		}
		lastErr = err

		if yahoo.IsNotFound(err) {
			break
		}
		if attempt < maxFetchAttempts {
			s.sleep(retryBaseDelay * time.Duration(1<<(attempt-1)))
		}
	}
	return nil, lastErr
}

func (s *Service) persistResult(ctx context.Context, result *models.DailyUpdateResult) {
	if err := s.jobLogs.Create(ctx, result); err != nil && s.logger != nil {
		s.logger.Error().Err(err).Msg("Failed to persist update job log")
	}
}
