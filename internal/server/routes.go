package server

import "net/http"

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Prices
	mux.HandleFunc("/api/prices", s.handlePriceQuery)
	mux.HandleFunc("/api/prices/matrix", s.handleMatrix)

	// Scheduled update trigger
	mux.HandleFunc("/api/internal/update-daily", s.handleDailyUpdate)

	// Watchlist administration
	mux.HandleFunc("/api/admin/watchlist", s.handleWatchlist)
	mux.HandleFunc("/api/admin/watchlist/reorder", s.handleWatchlistReorder)
	mux.HandleFunc("/api/admin/watchlist/", s.handleWatchlistSymbol)
}
