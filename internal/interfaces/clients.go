// Package interfaces defines service contracts for stockgrid
package interfaces

import (
	"context"
	"time"

	"stockgrid/internal/models"
)

// ChartClient provides access to the upstream chart API.
type ChartClient interface {
	// GetDailyHistory retrieves daily price points for an inclusive calendar-day window
	GetDailyHistory(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error)

	// GetQuoteMetadata probes display name, region, and currency without requiring price points
	GetQuoteMetadata(ctx context.Context, ticker string) (*models.QuoteMetadata, error)

	// ResetTransport clears the relay preference, for test isolation
	ResetTransport()
}
