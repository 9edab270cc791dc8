package models

import "time"

// PricePoint is one day's close and adjusted close for one resolved symbol.
// AdjClose equals Close when the upstream omits an adjusted series.
type PricePoint struct {
	TradeDate time.Time `json:"tradeDate"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adjClose"`
	Currency  string    `json:"currency"`
}

// TradeDateBounds is the earliest and latest trade date stored locally for a
// symbol. Absence of an entry in a bounds map means no local data at all.
type TradeDateBounds struct {
	Symbol       string
	MinTradeDate time.Time
	MaxTradeDate time.Time
}

// RefreshWindow is a contiguous inclusive calendar-day span to request from
// the upstream. Day boundaries are taken in the reference time zone.
type RefreshWindow struct {
	FromDate time.Time
	ToDate   time.Time
}

// DailyRow is one stored price row, as read back for matrix assembly.
type DailyRow struct {
	Symbol    string
	TradeDate time.Time
	Close     float64
	AdjClose  float64
	Currency  string
}

// PriceSnapshot is the most recent stored close for a symbol.
type PriceSnapshot struct {
	Symbol    string
	TradeDate time.Time
	Close     float64
	Currency  string
}

// HistoricalPoint is one series entry in a query response.
type HistoricalPoint struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}

// SymbolSeries is the stored price series for one symbol.
type SymbolSeries struct {
	Symbol   string            `json:"symbol"`
	Currency string            `json:"currency"`
	Points   []HistoricalPoint `json:"points"`
}

// PriceQueryResponse is the payload for GET /api/prices.
type PriceQueryResponse struct {
	Range    QueryRange     `json:"range"`
	Series   []SymbolSeries `json:"series"`
	Warnings []string       `json:"warnings"`
}

// QueryRange echoes the resolved date range of a query.
type QueryRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ResolvedHistory is the outcome of resolving a symbol against the upstream:
// the candidate ticker that answered plus its price points.
type ResolvedHistory struct {
	SourceSymbol   string
	ResolvedSymbol string
	Currency       string
	Points         []PricePoint
}
