package models

import "time"

// Daily update job statuses.
const (
	UpdateStatusSuccess = "success"
	UpdateStatusPartial = "partial"
	UpdateStatusFailed  = "failed"
)

// UpdateFailure records one symbol that failed during a daily update run.
type UpdateFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// DailyUpdateResult summarizes one scheduled full-update run across the
// watchlist.
type DailyUpdateResult struct {
	JobDate        string          `json:"jobDate"`
	StartedAt      time.Time       `json:"startedAt"`
	EndedAt        time.Time       `json:"endedAt"`
	Status         string          `json:"status"`
	TotalSymbols   int             `json:"totalSymbols"`
	SuccessSymbols int             `json:"successSymbols"`
	FailedSymbols  int             `json:"failedSymbols"`
	NoOpSymbols    int             `json:"noOpSymbols"`
	UpsertedRows   int             `json:"upsertedRows"`
	Message        string          `json:"message"`
	Failures       []UpdateFailure `json:"failures"`
}
