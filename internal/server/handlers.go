package server

import (
	"net/http"
	"time"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
		"version": common.GetVersion(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handlePriceQuery handles GET /api/prices?symbols=AAPL,0700.HK&from=...&to=...
func (s *Server) handlePriceQuery(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()

	symbols, err := models.ParseSymbolList(query.Get("symbols"), s.app.Config.Query.GetMaxSymbols())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	rng, err := models.BuildDateRange(query.Get("from"), query.Get("to"), time.Now())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	response, err := s.app.PriceService.Query(r.Context(), symbols, rng)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, response)
}

// handleMatrix handles GET /api/prices/matrix.
func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()

	mode, err := models.ParseMatrixMode(query.Get("mode"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	preset, err := models.ParseMatrixPreset(query.Get("preset"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	input := models.MatrixQuery{
		Mode:    mode,
		Preset:  preset,
		From:    query.Get("from"),
		To:      query.Get("to"),
		Symbols: query.Get("symbols"),
	}

	response, err := s.app.PriceService.Matrix(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, response)
}
