package models

import "time"

// WatchSymbol is one tracked symbol. Display name and region can be
// overridden by an operator; the auto fields are filled from upstream
// metadata probes and refreshed when stale.
type WatchSymbol struct {
	Symbol        string     `json:"symbol"`
	DisplayName   string     `json:"displayName,omitempty"`
	Enabled       bool       `json:"enabled"`
	SortOrder     int        `json:"sortOrder"`
	AutoName      string     `json:"autoName,omitempty"`
	AutoRegion    string     `json:"autoRegion,omitempty"`
	AutoCurrency  string     `json:"autoCurrency,omitempty"`
	MetaUpdatedAt *time.Time `json:"metaUpdatedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ResolvedName returns the operator display name, the upstream auto name, or
// the symbol itself, in that order.
func (w *WatchSymbol) ResolvedName() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	if w.AutoName != "" {
		return w.AutoName
	}
	return w.Symbol
}

// WatchlistResponse is the payload for GET /api/admin/watchlist.
type WatchlistResponse struct {
	Items                  []WatchSymbol `json:"items"`
	LastSuccessfulUpdateAt *time.Time    `json:"lastSuccessfulUpdateAt"`
}
