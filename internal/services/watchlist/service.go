// Package watchlist manages the tracked symbol list backing watchlist-mode
// matrix queries and the scheduled daily update.
package watchlist

import (
	"context"
	"fmt"
	"sync"

	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/models"
)

// Service manages watch symbols on top of the watchlist store.
type Service struct {
	store    interfaces.WatchlistStore
	jobLogs  interfaces.JobLogStore
	logger   *common.Logger
	defaults []string

	seedMu   sync.Mutex
	seedDone bool
}

func NewService(store interfaces.WatchlistStore, jobLogs interfaces.JobLogStore, defaults []string, logger *common.Logger) *Service {
	return &Service{
		store:    store,
		jobLogs:  jobLogs,
		logger:   logger,
		defaults: defaults,
	}
}

// EnsureDefaults seeds the configured default symbols exactly once per
// process, and only when the watchlist is completely empty. An operator who
// removed every symbol on purpose still starts from the defaults on the next
// boot; that matches the bootstrap intent.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if s.seedDone {
		return nil
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count watch symbols: %w", err)
	}
	if count > 0 {
		s.seedDone = true
		return nil
	}

	symbols := make([]string, 0, len(s.defaults))
	for _, raw := range s.defaults {
		symbol, err := models.ValidateSymbol(raw)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn().Str("symbol", raw).Err(err).Msg("Skipping invalid default watch symbol")
			}
			continue
		}
		symbols = append(symbols, symbol)
	}
	if len(symbols) == 0 {
		s.seedDone = true
		return nil
	}

	if err := s.store.BulkInsert(ctx, symbols); err != nil {
		return fmt.Errorf("failed to seed default watchlist: %w", err)
	}

	if s.logger != nil {
		s.logger.Info().Int("count", len(symbols)).Msg("Seeded default watchlist")
	}
	s.seedDone = true
	return nil
}

// List returns every watch symbol, disabled ones included, plus the time of
// the last successful daily update.
func (s *Service) List(ctx context.Context) (*models.WatchlistResponse, error) {
	items, err := s.store.List(ctx, false)
	if err != nil {
		return nil, err
	}

	response := &models.WatchlistResponse{Items: items}

	at, ok, err := s.jobLogs.LastSuccessfulAt(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn().Err(err).Msg("Last update lookup failed")
		}
		return response, nil
	}
	if ok {
		response.LastSuccessfulUpdateAt = &at
	}
	return response, nil
}

// Add inserts or re-enables a watch symbol. Re-adding an existing symbol
// updates its display name and re-enables it rather than failing.
func (s *Service) Add(ctx context.Context, symbol, displayName string) (*models.WatchSymbol, error) {
	validated, err := models.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.store.Upsert(ctx, validated, displayName)
}

func (s *Service) Remove(ctx context.Context, symbol string) error {
	validated, err := models.ValidateSymbol(symbol)
	if err != nil {
		return err
	}
	return s.store.Remove(ctx, validated)
}

// Reorder assigns sort order following the given symbol sequence. Symbols
// absent from the sequence keep their relative order after the listed ones.
func (s *Service) Reorder(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return models.NewInputError("please provide at least one symbol")
	}

	validated := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, raw := range symbols {
		symbol, err := models.ValidateSymbol(raw)
		if err != nil {
			return err
		}
		if _, dup := seen[symbol]; dup {
			return models.NewInputError(fmt.Sprintf("duplicate symbol in order: %s", symbol))
		}
		seen[symbol] = struct{}{}
		validated = append(validated, symbol)
	}

	return s.store.Reorder(ctx, validated)
}
