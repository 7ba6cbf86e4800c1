package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tripflow-ai/itinerary-platform/internal/middleware"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/service"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
	"github.com/tripflow-ai/itinerary-platform/pkg/metrics"
)

// ChatHandler streams chat refinement turns over SSE.
type ChatHandler struct {
	service *service.TripService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.TripService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Send handles POST /api/v1/trips/:id/chat. The response is an SSE
// stream: "thought" events carry the growing thought text, one final
// "update" event carries the response text and the merged itinerary (if
// the turn produced one), then "done".
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tripID := chi.URLParam(r, "id")

	if err := middleware.ValidateTripID(tripID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	// Thought callbacks and the heartbeat ticker both write to the
	// stream, so writes are serialized.
	var mu sync.Mutex
	send := func(event string, data interface{}) {
		mu.Lock()
		defer mu.Unlock()
		sendSSEEvent(w, flusher, event, data)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				send("heartbeat", &model.HeartbeatEvent{Timestamp: t})
			}
		}
	}()

	result, err := h.service.Update(ctx, middleware.GetUserID(ctx), tripID, req.Text, func(thought string) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		send("thought", &model.ThoughtEvent{Thought: thought})
	})

	if err != nil {
		h.logger.Error("chat update failed", zap.String("trip_id", tripID), zap.Error(err))
		send("error", &model.ErrorEvent{
			Code:    "update_error",
			Message: err.Error(),
		})
		return
	}

	send("update", &model.TripUpdateEvent{
		ResponseText: result.ResponseText,
		Data:         result.UpdatedData,
	})
	send("done", map[string]bool{"success": true})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
