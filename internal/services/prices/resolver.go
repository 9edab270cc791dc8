package prices

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"stockgrid/internal/clients/yahoo"
	"stockgrid/internal/common"
	"stockgrid/internal/interfaces"
	"stockgrid/internal/models"
)

var (
	brazilPattern   = regexp.MustCompile(`^[A-Z]{4}\d+$`)
	mainlandPattern = regexp.MustCompile(`^\d{6}$`)
)

// Candidates expands a user-supplied symbol into the ordered list of tickers
// to attempt upstream. The raw symbol always comes first; exchange-suffixed
// variants follow for patterns that commonly omit their market suffix
// (Brazilian tickers like PETR4, six-digit mainland China codes). Duplicates
// are removed preserving order.
func Candidates(symbol string) []string {
	normalized := models.NormalizeSymbol(symbol)
	candidates := []string{normalized}

	switch {
	case brazilPattern.MatchString(normalized):
		candidates = append(candidates, normalized+".SA")
	case mainlandPattern.MatchString(normalized):
		candidates = append(candidates, normalized+".SZ", normalized+".SS")
	}

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Resolver tries each candidate ticker against the chart client until one
// returns data.
type Resolver struct {
	client interfaces.ChartClient
	logger *common.Logger
}

func NewResolver(client interfaces.ChartClient, logger *common.Logger) *Resolver {
	return &Resolver{client: client, logger: logger}
}

// ResolveHistory fetches daily history for the first candidate that yields
// data. A not-found response moves on to the next candidate; any other
// failure is remembered as the preferred error to surface but does not stop
// the sweep, since a later candidate may still resolve.
func (r *Resolver) ResolveHistory(ctx context.Context, symbol string, from, to time.Time) (*models.ResolvedHistory, error) {
	candidates := Candidates(symbol)

	var preferredErr error
	var notFoundErr error

	for _, candidate := range candidates {
		result, err := r.client.GetDailyHistory(ctx, candidate, from, to)
		if err == nil {
			return &models.ResolvedHistory{
				SourceSymbol:   models.NormalizeSymbol(symbol),
				ResolvedSymbol: candidate,
				Currency:       result.Meta.Currency,
				Points:         result.Points,
			}, nil
		}

		if yahoo.IsNotFound(err) {
			notFoundErr = err
			continue
		}

		if r.logger != nil {
			r.logger.Warn().
				Str("symbol", symbol).
				Str("candidate", candidate).
				Err(err).
				Msg("Candidate fetch failed")
		}
		preferredErr = err
	}

	err := preferredErr
	if err == nil {
		err = notFoundErr
	}
	if err == nil {
		err = fmt.Errorf("historical data unavailable for %s", models.NormalizeSymbol(symbol))
	}
	return nil, normalizeCandidateError(err)
}

// normalizeCandidateError sanitizes the message of the error surfaced after
// every candidate failed, so raw upstream text (HTML pages included) never
// reaches a log or warning surface unbounded. The not-found classification
// survives for callers that branch on it.
func normalizeCandidateError(err error) error {
	var fetchErr *yahoo.FetchError
	if errors.As(err, &fetchErr) {
		return &yahoo.FetchError{
			Symbol:   fetchErr.Symbol,
			Message:  yahoo.NormalizeErrorMessage(fetchErr.Message, yahoo.NormalizeOptions{}),
			Status:   fetchErr.Status,
			NotFound: fetchErr.NotFound,
		}
	}
	return errors.New(yahoo.NormalizeErrorMessage(err.Error(), yahoo.NormalizeOptions{}))
}

// ResolveMetadata probes candidates for quote metadata, falling through
// not-found responses the same way ResolveHistory does.
func (r *Resolver) ResolveMetadata(ctx context.Context, symbol string) (*models.QuoteMetadata, error) {
	candidates := Candidates(symbol)

	var lastErr error
	for _, candidate := range candidates {
		meta, err := r.client.GetQuoteMetadata(ctx, candidate)
		if err == nil {
			return meta, nil
		}
		lastErr = err
		if !yahoo.IsNotFound(err) && r.logger != nil {
			r.logger.Warn().
				Str("symbol", symbol).
				Str("candidate", candidate).
				Err(err).
				Msg("Metadata fetch failed")
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("quote metadata unavailable for %s", models.NormalizeSymbol(symbol))
	}
	return nil, normalizeCandidateError(lastErr)
}
