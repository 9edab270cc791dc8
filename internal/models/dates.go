package models

import (
	"time"

	"stockgrid/internal/common"
)

// DefaultLookbackYears is the range applied when a query omits "from".
const DefaultLookbackYears = 1

// maxRangeYears caps a single query's span.
const maxRangeYears = 20

// DateRange is a validated inclusive query range. FromDate and ToDate are the
// start and end instants of the range's first and last day in the reference
// zone.
type DateRange struct {
	From     string
	To       string
	FromDate time.Time
	ToDate   time.Time
}

// BuildDateRange parses optional YYYY-MM-DD from/to parameters, applying the
// default lookback when from is omitted and today when to is omitted.
func BuildDateRange(fromRaw, toRaw string, now time.Time) (DateRange, error) {
	defaultTo := common.StartOfDay(now)
	defaultFrom := defaultTo.AddDate(-DefaultLookbackYears, 0, 0)

	fromDay := defaultFrom
	if fromRaw != "" {
		parsed, err := common.ParseDateKey(fromRaw)
		if err != nil {
			return DateRange{}, NewInputError("from must be in YYYY-MM-DD format")
		}
		fromDay = parsed
	}

	toDay := defaultTo
	if toRaw != "" {
		parsed, err := common.ParseDateKey(toRaw)
		if err != nil {
			return DateRange{}, NewInputError("to must be in YYYY-MM-DD format")
		}
		toDay = parsed
	}

	if fromDay.After(toDay) {
		return DateRange{}, NewInputError("from cannot be later than to")
	}
	if fromDay.AddDate(maxRangeYears, 0, 0).Before(toDay) {
		return DateRange{}, NewInputError("date range cannot exceed 20 years")
	}

	return DateRange{
		From:     common.DateKey(fromDay),
		To:       common.DateKey(toDay),
		FromDate: fromDay,
		ToDate:   common.EndOfDay(toDay),
	}, nil
}
