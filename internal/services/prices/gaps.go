// Package prices implements the cache freshness and refresh-coordination
// engine: gap analysis against stored trade-date bounds, candidate-ticker
// resolution against the upstream, and background tail refresh scheduling.
package prices

import (
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

// NormalizeWindow guarantees a strictly non-empty window for the transport
// layer: the upstream chart query rejects a window whose start and end
// resolve to the same instant, so a degenerate window gets its end extended
// by one day.
func NormalizeWindow(w models.RefreshWindow) models.RefreshWindow {
	if w.ToDate.After(w.FromDate) {
		return w
	}
	return models.RefreshWindow{
		FromDate: w.FromDate,
		ToDate:   common.ShiftDays(w.ToDate, 1),
	}
}

// MissingTailWindow computes the window after the latest locally stored
// trade date that must be fetched to cover requestTo. Returns false when the
// local store already covers the requested end, or when the request itself is
// inverted.
func MissingTailWindow(requestFrom, requestTo time.Time, bounds *models.TradeDateBounds) (models.RefreshWindow, bool) {
	from := common.StartOfDay(requestFrom)
	to := common.StartOfDay(requestTo)

	if from.After(to) {
		return models.RefreshWindow{}, false
	}

	if bounds == nil {
		return NormalizeWindow(models.RefreshWindow{FromDate: from, ToDate: to}), true
	}

	localMax := common.StartOfDay(bounds.MaxTradeDate)
	if !localMax.Before(to) {
		return models.RefreshWindow{}, false
	}

	gapStart := common.ShiftDays(localMax, 1)
	if gapStart.After(to) {
		return models.RefreshWindow{}, false
	}

	return NormalizeWindow(models.RefreshWindow{FromDate: gapStart, ToDate: to}), true
}

// MissingWindows computes both the leading gap before the earliest stored
// date and the trailing gap after the latest one, front first. Used for
// one-shot population; steady-state refreshes only need the tail.
func MissingWindows(requestFrom, requestTo time.Time, bounds *models.TradeDateBounds) []models.RefreshWindow {
	from := common.StartOfDay(requestFrom)
	to := common.StartOfDay(requestTo)

	if from.After(to) {
		return nil
	}

	if bounds == nil {
		return []models.RefreshWindow{
			NormalizeWindow(models.RefreshWindow{FromDate: from, ToDate: to}),
		}
	}

	localMin := common.StartOfDay(bounds.MinTradeDate)
	localMax := common.StartOfDay(bounds.MaxTradeDate)

	windows := make([]models.RefreshWindow, 0, 2)

	if from.Before(localMin) {
		gapEnd := common.ShiftDays(localMin, -1)
		if !from.After(gapEnd) {
			windows = append(windows, NormalizeWindow(models.RefreshWindow{
				FromDate: from,
				ToDate:   gapEnd,
			}))
		}
	}

	if localMax.Before(to) {
		gapStart := common.ShiftDays(localMax, 1)
		if !gapStart.After(to) {
			windows = append(windows, NormalizeWindow(models.RefreshWindow{
				FromDate: gapStart,
				ToDate:   to,
			}))
		}
	}

	return windows
}
