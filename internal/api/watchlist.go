package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockpulse/portfolio-engine/internal/auth"
)

type watchRequest struct {
	Symbol string `json:"symbol"`
}

// listWatchlist handles GET /api/v1/watchlist
func (s *server) listWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Watchlist.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// addWatchlist handles POST /api/v1/watchlist
func (s *server) addWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, reasonInvalidInput, "invalid request body", http.StatusBadRequest)
		return
	}
	item, err := s.Watchlist.Add(r.Context(), auth.UserID(r.Context()), req.Symbol)
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// removeWatchlist handles DELETE /api/v1/watchlist/{symbol}
func (s *server) removeWatchlist(w http.ResponseWriter, r *http.Request) {
	err := s.Watchlist.Remove(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
