package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stockpulse/portfolio-engine/internal/model"
)

// Machine-checkable error reasons.
const (
	reasonInvalidInput         = "invalid_input"
	reasonInsufficientPosition = "insufficient_position"
	reasonNotFound             = "not_found"
	reasonUpstreamUnavailable  = "upstream_unavailable"
	reasonInternal             = "internal"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, reason, message string, status int) {
	writeJSON(w, status, errorBody{Error: reason, Message: message})
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, reasonNotFound, message, http.StatusNotFound)
}

// writeErr maps a service error to its status and reason. Errors outside the
// taxonomy are logged and reported without detail.
func writeErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, reasonInvalidInput, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrInsufficientPosition):
		writeError(w, reasonInsufficientPosition, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrNotFound):
		notFound(w, err.Error())
	case errors.Is(err, model.ErrUpstreamUnavailable):
		logger.Warn("upstream unavailable", "err", err)
		writeError(w, reasonUpstreamUnavailable, "market data provider unavailable", http.StatusServiceUnavailable)
	default:
		logger.Error("request failed", "err", err)
		writeError(w, reasonInternal, "internal error", http.StatusInternalServerError)
	}
}

// decode reads a JSON request body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
