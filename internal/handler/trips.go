// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tripflow-ai/itinerary-platform/internal/middleware"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/service"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
)

// TripHandler handles trip CRUD and feasibility endpoints.
type TripHandler struct {
	service *service.TripService
	logger  *logger.Logger
}

// NewTripHandler creates a new trip handler.
func NewTripHandler(svc *service.TripService, log *logger.Logger) *TripHandler {
	return &TripHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/trips. The trip is returned immediately in
// the generating state; generation completes asynchronously.
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var input model.TripInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTripInput(input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.service.Create(ctx, userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, trip)
}

// List handles GET /api/v1/trips
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

// Get handles GET /api/v1/trips/:id
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	if err := middleware.ValidateTripID(tripID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.service.Get(r.Context(), tripID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// Delete handles DELETE /api/v1/trips/:id
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	if err := middleware.ValidateTripID(tripID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), tripID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages handles GET /api/v1/trips/:id/messages with optional
// ?after_sequence=N for resuming.
func (h *TripHandler) Messages(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	if err := middleware.ValidateTripID(tripID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil {
			afterSequence = seq
		}
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	resp, err := h.service.Messages(r.Context(), tripID, afterSequence, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type feasibilityRequest struct {
	Modification string `json:"modification"`
}

// Feasibility handles POST /api/v1/trips/:id/feasibility
func (h *TripHandler) Feasibility(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	if err := middleware.ValidateTripID(tripID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req feasibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.CheckFeasibility(r.Context(), tripID, req.Modification)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
