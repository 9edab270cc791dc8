package server

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// handleDailyUpdate handles POST /api/internal/update-daily. When an update
// token is configured, the X-Update-Token header must match it.
func (s *Server) handleDailyUpdate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if token := s.app.Config.Update.Token; token != "" {
		provided := r.Header.Get("X-Update-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			WriteError(w, http.StatusUnauthorized, "Invalid update token")
			return
		}
	}

	result, err := s.app.UpdateService.RunDailyUpdate(r.Context(), time.Now())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleWatchlist handles GET and POST /api/admin/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		response, err := s.app.WatchlistService.List(r.Context())
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req struct {
			Symbol      string `json:"symbol"`
			DisplayName string `json:"displayName"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}

		item, err := s.app.WatchlistService.Add(r.Context(), req.Symbol, req.DisplayName)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, item)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleWatchlistReorder handles PUT /api/admin/watchlist/reorder.
func (s *Server) handleWatchlistReorder(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}

	var req struct {
		Symbols []string `json:"symbols"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.app.WatchlistService.Reorder(r.Context(), req.Symbols); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWatchlistSymbol handles DELETE /api/admin/watchlist/{symbol}.
func (s *Server) handleWatchlistSymbol(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	symbol := PathParam(r, "/api/admin/watchlist/", "")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	if err := s.app.WatchlistService.Remove(r.Context(), symbol); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
