package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tripflow-ai/itinerary-platform/internal/ledger"
	"github.com/tripflow-ai/itinerary-platform/internal/service"
	"github.com/tripflow-ai/itinerary-platform/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service-level failures onto HTTP statuses. The
// insufficient-balance class keeps its own status so clients can route to
// a top-up flow instead of a generic retry.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "trip not found")
	case errors.Is(err, service.ErrOperationInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTripNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
