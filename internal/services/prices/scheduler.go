package prices

import (
	"context"
	"sync"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/models"
)

// DefaultCooldown is the minimum interval between background refresh
// attempts for the same symbol, regardless of outcome.
const DefaultCooldown = 10 * time.Minute

// Scheduler coordinates background tail refreshes so that read paths stay
// fast: at most one refresh per symbol is in flight, and a symbol refreshed
// within the cooldown window is skipped even if the previous attempt failed.
type Scheduler struct {
	store    interfaces.PriceStore
	resolver *Resolver
	logger   *common.Logger

	cooldown    time.Duration
	diagnostics bool
	now         func() time.Time

	mu            sync.Mutex
	lastTriggered map[string]time.Time
	inFlight      map[string]struct{}
	wg            sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

func WithCooldown(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithDiagnostics enables per-decision debug logging. Intended for
// non-production environments.
func WithDiagnostics(enabled bool) SchedulerOption {
	return func(s *Scheduler) { s.diagnostics = enabled }
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(store interfaces.PriceStore, resolver *Resolver, logger *common.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:         store,
		resolver:      resolver,
		logger:        logger,
		cooldown:      DefaultCooldown,
		now:           time.Now,
		lastTriggered: make(map[string]time.Time),
		inFlight:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConsiderRefresh decides whether a background refresh should run for the
// symbol and launches it when needed. The decision never blocks the caller
// on network work: only the cooldown check, the in-flight check, and a local
// bounds lookup happen synchronously.
func (s *Scheduler) ConsiderRefresh(source, symbol string, from, to time.Time) {
	symbol = models.NormalizeSymbol(symbol)

	s.mu.Lock()
	if _, running := s.inFlight[symbol]; running {
		s.mu.Unlock()
		s.debug(source, symbol, "refresh already in flight")
		return
	}
	if last, ok := s.lastTriggered[symbol]; ok && s.now().Sub(last) < s.cooldown {
		s.mu.Unlock()
		s.debug(source, symbol, "within cooldown window")
		return
	}
	s.mu.Unlock()

	boundsBySymbol, err := s.store.GetTradeDateBounds(context.Background(), []string{symbol})
	if err != nil {
		if s.logger != nil {
			s.logger.Error().Str("symbol", symbol).Err(err).Msg("Refresh bounds lookup failed")
		}
		return
	}
	var bounds *models.TradeDateBounds
	if b, ok := boundsBySymbol[symbol]; ok {
		bounds = &b
	}

	window, needed := MissingTailWindow(from, to, bounds)
	if !needed {
		s.debug(source, symbol, "local data already covers requested range")
		return
	}

	// Re-check under the lock: another caller may have won the race while
	// the bounds lookup ran.
	s.mu.Lock()
	if _, running := s.inFlight[symbol]; running {
		s.mu.Unlock()
		return
	}
	if last, ok := s.lastTriggered[symbol]; ok && s.now().Sub(last) < s.cooldown {
		s.mu.Unlock()
		return
	}
	s.lastTriggered[symbol] = s.now()
	s.inFlight[symbol] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runRefresh(source, symbol, window)
}

func (s *Scheduler) runRefresh(source, symbol string, window models.RefreshWindow) {
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, symbol)
		s.mu.Unlock()
		s.wg.Done()
	}()

	// Background work outlives the originating request.
	ctx := context.Background()

	history, err := s.resolver.ResolveHistory(ctx, symbol, window.FromDate, window.ToDate)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn().
				Str("source", source).
				Str("symbol", symbol).
				Time("from", window.FromDate).
				Time("to", window.ToDate).
				Err(err).
				Msg("Background refresh failed")
		}
		return
	}

	// Rows persist under the symbol the caller asked for, so subsequent
	// lookups for the unsuffixed form hit the cache.
	if _, err := s.store.UpsertDailyPrices(ctx, symbol, history.Points); err != nil {
		if s.logger != nil {
			s.logger.Error().Str("symbol", symbol).Err(err).Msg("Background refresh persist failed")
		}
		return
	}

	if s.logger != nil {
		s.logger.Info().
			Str("source", source).
			Str("symbol", symbol).
			Str("resolved", history.ResolvedSymbol).
			Int("points", len(history.Points)).
			Msg("Background refresh completed")
	}
}

// Drain blocks until all launched refreshes finish. Used by tests and
// graceful shutdown.
func (s *Scheduler) Drain() {
	s.wg.Wait()
}

// Reset clears cooldown and in-flight state.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTriggered = make(map[string]time.Time)
	s.inFlight = make(map[string]struct{})
}

func (s *Scheduler) debug(source, symbol, reason string) {
	if !s.diagnostics || s.logger == nil {
		return
	}
	s.logger.Debug().
		Str("source", source).
		Str("symbol", symbol).
		Msg("Refresh skipped: " + reason)
}
