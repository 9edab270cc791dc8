// Package common provides shared utilities for stockgrid
package common

import (
	"fmt"
	"time"
)

// DateKeyFormat is the canonical YYYY-MM-DD rendering of a trade date.
const DateKeyFormat = "2006-01-02"

// referenceLocation is the fixed time zone in which all trade-date keys are
// computed. Day boundaries for gap analysis and upstream windows are taken
// here, regardless of the exchange a symbol trades on.
var referenceLocation = mustLoadLocation("Asia/Shanghai")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback to a fixed CST zone if tzdata is unavailable (e.g., minimal container)
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// ReferenceLocation returns the fixed reference time zone for trade dates.
func ReferenceLocation() *time.Location {
	return referenceLocation
}

// DateKey renders a timestamp as a trade-date key in the reference zone.
func DateKey(t time.Time) string {
	return t.In(referenceLocation).Format(DateKeyFormat)
}

// ParseDateKey parses a YYYY-MM-DD key into the start of that day in the
// reference zone.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyFormat, key, referenceLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// StartOfDay truncates a timestamp to the start of its day in the reference zone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(referenceLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, referenceLocation)
}

// EndOfDay returns the last second of the timestamp's day in the reference zone.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}

// ShiftDays moves a day-start timestamp by whole calendar days in the
// reference zone.
func ShiftDays(t time.Time, days int) time.Time {
	return StartOfDay(t).AddDate(0, 0, days)
}
