package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tripflow-ai/itinerary-platform/internal/explore"
	"github.com/tripflow-ai/itinerary-platform/internal/middleware"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/service"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
)

// ExploreHandler exposes the attraction explorer pipeline.
type ExploreHandler struct {
	service *service.TripService
	logger  *logger.Logger
}

// NewExploreHandler creates a new explore handler.
func NewExploreHandler(svc *service.TripService, log *logger.Logger) *ExploreHandler {
	return &ExploreHandler{
		service: svc,
		logger:  log,
	}
}

type searchRequest struct {
	Tab   string `json:"tab"`
	Query string `json:"query"`
}

type moreRequest struct {
	Tab string `json:"tab"`
}

func (h *ExploreHandler) session(w http.ResponseWriter, r *http.Request) (*explore.Session, model.ExploreTab, bool) {
	tripID := chi.URLParam(r, "id")
	if err := middleware.ValidateTripID(tripID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}

	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = string(model.TabAttraction)
	}
	if err := middleware.ValidateExploreTab(tab); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}

	sess, err := h.service.ExploreSession(r.Context(), tripID)
	if err != nil {
		writeServiceError(w, err)
		return nil, "", false
	}
	return sess, model.ExploreTab(tab), true
}

// Activate handles GET /api/v1/trips/:id/explore?tab=. A tab that has
// never been searched gets an automatic first search; otherwise the
// previously fetched results are returned untouched.
func (h *ExploreHandler) Activate(w http.ResponseWriter, r *http.Request) {
	sess, tab, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, err := sess.EnsureSearched(r.Context(), tab); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.TabState(tab))
}

// Search handles POST /api/v1/trips/:id/explore/search
func (h *ExploreHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Tab == "" {
		req.Tab = string(model.TabAttraction)
	}
	if err := middleware.ValidateExploreTab(req.Tab); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tab := model.ExploreTab(req.Tab)
	if _, err := sess.Search(r.Context(), tab, req.Query); err != nil {
		// A foreground search failure does surface to the user.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.TabState(tab))
}

// More handles POST /api/v1/trips/:id/explore/more
func (h *ExploreHandler) More(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}

	var req moreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateExploreTab(req.Tab); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tab := model.ExploreTab(req.Tab)
	if _, err := sess.LoadMore(r.Context(), tab); err != nil {
		if errors.Is(err, explore.ErrNotSearched) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.TabState(tab))
}
