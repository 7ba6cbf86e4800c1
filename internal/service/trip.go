// Package service provides business logic for the trip planning platform.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripflow-ai/itinerary-platform/internal/classify"
	"github.com/tripflow-ai/itinerary-platform/internal/explore"
	"github.com/tripflow-ai/itinerary-platform/internal/journal"
	"github.com/tripflow-ai/itinerary-platform/internal/ledger"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/provider"
	"github.com/tripflow-ai/itinerary-platform/internal/store"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
	"github.com/tripflow-ai/itinerary-platform/pkg/metrics"
)

// ErrOperationInFlight rejects a second concurrent generate/update for
// the same trip id.
var ErrOperationInFlight = errors.New("an operation for this trip is already in progress")

// ErrTripNotReady is returned when a refinement is attempted before the
// itinerary has been generated.
var ErrTripNotReady = errors.New("trip has no itinerary yet")

// historyWindow caps how many of the most recent chat turns are sent to
// the planner on a refinement turn.
const historyWindow = 50

// TripService orchestrates trip generation and refinement. The trip
// collection is the only shared mutable state; every write is a
// whole-trip replacement through the injected store.
type TripService struct {
	store      store.TripStore
	planner    provider.Planner
	ledger     ledger.Ledger
	transcript journal.Transcript
	classifier classify.Classifier
	logger     *logger.Logger

	generationTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
	sessions map[string]*explore.Session

	newTripID func() string
}

// NewTripService creates a new trip service.
func NewTripService(
	st store.TripStore,
	planner provider.Planner,
	ldg ledger.Ledger,
	transcript journal.Transcript,
	log *logger.Logger,
) *TripService {
	return &TripService{
		store:             st,
		planner:           planner,
		ledger:            ldg,
		transcript:        transcript,
		classifier:        classify.NewKeywordClassifier(),
		logger:            log,
		generationTimeout: 5 * time.Minute,
		inFlight:          make(map[string]struct{}),
		sessions:          make(map[string]*explore.Session),
		newTripID:         func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// SetGenerationTimeout overrides the default deadline applied to a
// single itinerary generation.
func (s *TripService) SetGenerationTimeout(d time.Duration) {
	if d > 0 {
		s.generationTimeout = d
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic
// tests. It should not be used in production code.
func (s *TripService) SetNewTripIDForTest(fn func() string) {
	if fn != nil {
		s.newTripID = fn
	}
}

// acquire marks a trip id as having a generate/update in flight.
func (s *TripService) acquire(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return ErrOperationInFlight
	}
	s.inFlight[id] = struct{}{}
	return nil
}

func (s *TripService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// Create stores a new trip in the generating state and starts the
// asynchronous generation. The returned trip reaches status complete or
// error exactly once.
func (s *TripService) Create(ctx context.Context, userID string, input model.TripInput) (*model.Trip, error) {
	trip := &model.Trip{
		ID:        s.newTripID(),
		Title:     tripTitle(input),
		CreatedAt: time.Now(),
		Status:    model.StatusGenerating,
		Input:     input,
	}
	if err := s.store.Save(ctx, trip); err != nil {
		return nil, fmt.Errorf("save trip: %w", err)
	}

	if err := s.acquire(trip.ID); err != nil {
		return nil, err
	}

	go s.generate(userID, *trip)

	return trip, nil
}

// generate runs in the background; every failure is converted into trip
// state, never propagated.
func (s *TripService) generate(userID string, trip model.Trip) {
	defer s.release(trip.ID)

	ctx, cancel := context.WithTimeout(context.Background(), s.generationTimeout)
	defer cancel()

	if err := s.ledger.Charge(ctx, userID, ledger.ActionGenerate); err != nil {
		s.finishGeneration(ctx, trip, nil, 0, err)
		return
	}

	start := time.Now()
	data, err := s.planner.GenerateTrip(ctx, trip.Input)
	elapsed := time.Since(start)

	if err != nil {
		if rerr := s.ledger.Refund(ctx, userID, ledger.ActionGenerate); rerr != nil {
			s.logger.Warn("refund after failed generation failed",
				zap.String("trip_id", trip.ID), zap.Error(rerr))
		}
	}

	s.finishGeneration(ctx, trip, data, elapsed, err)
}

// finishGeneration records the terminal generation state, unless the
// trip was deleted while generation was running.
func (s *TripService) finishGeneration(ctx context.Context, trip model.Trip, data *model.TripData, elapsed time.Duration, genErr error) {
	if _, err := s.store.Get(ctx, trip.ID); errors.Is(err, store.ErrNotFound) {
		// Deleted mid-generation; the result is no longer relevant.
		return
	}

	if genErr != nil {
		trip.Status = model.StatusError
		trip.Error = genErr.Error()
		metrics.TripGenerationsTotal.WithLabelValues(generationOutcome(genErr)).Inc()
		s.logger.Error("trip generation failed", zap.String("trip_id", trip.ID), zap.Error(genErr))
	} else {
		s.tagStops(data)
		trip.Status = model.StatusComplete
		trip.Data = data
		trip.GenerationTimeMs = elapsed.Milliseconds()
		metrics.TripGenerationsTotal.WithLabelValues("success").Inc()
		metrics.TripGenerationDuration.Observe(elapsed.Seconds())
		s.logger.Info("trip generated",
			zap.String("trip_id", trip.ID),
			zap.Int("days", len(data.Days)),
			zap.Duration("elapsed", elapsed))
	}

	if err := s.store.Save(context.WithoutCancel(ctx), &trip); err != nil {
		s.logger.Error("failed to save generated trip", zap.String("trip_id", trip.ID), zap.Error(err))
	}
}

func generationOutcome(err error) string {
	if errors.Is(err, ledger.ErrInsufficientBalance) {
		return "insufficient_balance"
	}
	return "error"
}

// Get returns one trip.
func (s *TripService) Get(ctx context.Context, id string) (*model.Trip, error) {
	return s.store.Get(ctx, id)
}

// List returns all trips, newest first.
func (s *TripService) List(ctx context.Context) ([]model.Trip, error) {
	return s.store.List(ctx)
}

// Delete removes a trip and tears down its explorer session. A
// generation finishing afterwards finds the trip gone and drops its
// result.
func (s *TripService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		sess.Close()
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return nil
}

// Update runs one chat refinement turn: the turn is charged against the
// user's balance, the user message is journaled, the planner streams its
// response through onThought, and a structured patch, if any, is merged
// and saved by whole-trip replacement.
func (s *TripService) Update(ctx context.Context, userID, tripID, text string, onThought stream.ThoughtFunc) (*provider.UpdateResult, error) {
	trip, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != model.StatusComplete || trip.Data == nil {
		return nil, ErrTripNotReady
	}

	if err := s.acquire(tripID); err != nil {
		return nil, err
	}
	defer s.release(tripID)

	// A rejected charge leaves the transcript untouched.
	if err := s.ledger.Charge(ctx, userID, ledger.ActionUpdate); err != nil {
		return nil, err
	}

	s.appendMessage(ctx, tripID, model.RoleUser, text)

	// The planner sees the newest turns, including the one just
	// journaled, when the transcript outgrows the history window.
	history, err := s.transcript.Tail(ctx, tripID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("replay transcript: %w", err)
	}

	result, err := s.planner.UpdateTrip(ctx, trip.Data, history, onThought)
	if err != nil {
		if rerr := s.ledger.Refund(ctx, userID, ledger.ActionUpdate); rerr != nil {
			s.logger.Warn("refund after failed update failed",
				zap.String("trip_id", tripID), zap.Error(rerr))
		}
		// The conversation survives a failed turn.
		s.appendMessage(ctx, tripID, model.RoleModel,
			"Sorry, I ran into a problem applying that change. Your itinerary is unchanged; please try again.")
		return nil, err
	}

	if result.UpdatedData != nil {
		s.tagStops(result.UpdatedData)
		trip.Data = result.UpdatedData
		if err := s.store.Save(ctx, trip); err != nil {
			return nil, fmt.Errorf("save updated trip: %w", err)
		}
	}

	s.appendMessage(ctx, tripID, model.RoleModel, result.ResponseText)

	return result, nil
}

func (s *TripService) appendMessage(ctx context.Context, tripID string, role model.Role, text string) {
	_, err := s.transcript.Append(ctx, &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TripID:    tripID,
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to journal message", zap.String("trip_id", tripID), zap.Error(err))
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()
}

// Messages replays a trip's transcript.
func (s *TripService) Messages(ctx context.Context, tripID string, afterSequence uint64, limit int) (*model.ListMessagesResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	messages, lastSeq, hasMore, err := s.transcript.Replay(ctx, tripID, afterSequence, limit)
	if err != nil {
		return nil, fmt.Errorf("replay transcript: %w", err)
	}
	return &model.ListMessagesResponse{
		Messages:     messages,
		HasMore:      hasMore,
		LastSequence: lastSeq,
	}, nil
}

// CheckFeasibility assesses a proposed modification. A failed check
// degrades to "assume feasible" rather than blocking the user's edit.
func (s *TripService) CheckFeasibility(ctx context.Context, tripID, modification string) (*model.FeasibilityResult, error) {
	trip, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}

	res, err := s.planner.CheckFeasibility(ctx, trip.Data, modification)
	if err != nil {
		s.logger.Warn("feasibility check failed, assuming feasible",
			zap.String("trip_id", tripID), zap.Error(err))
		return &model.FeasibilityResult{Feasible: true, RiskLevel: model.RiskLow}, nil
	}
	return res, nil
}

// ExploreSession returns the explorer session for a trip, creating it on
// first use. The session reads committed stop names fresh on every
// exclusion computation.
func (s *TripService) ExploreSession(ctx context.Context, tripID string) (*explore.Session, error) {
	trip, err := s.store.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[tripID]; ok {
		return sess, nil
	}

	sess := explore.NewSession(
		s.planner,
		trip.Input.Destination,
		trip.Input.Interests,
		trip.Input.Language,
		func() []string {
			t, err := s.store.Get(context.Background(), tripID)
			if err != nil || t.Data == nil {
				return nil
			}
			return t.Data.StopNames()
		},
		s.logger,
	)
	s.sessions[tripID] = sess
	return sess, nil
}

// tagStops backfills the category on stops the backend left untagged.
func (s *TripService) tagStops(data *model.TripData) {
	for di := range data.Days {
		for si := range data.Days[di].Stops {
			stop := &data.Days[di].Stops[si]
			if stop.Type == "" {
				stop.Type = s.classifier.Classify(*stop)
			}
		}
	}
}

func tripTitle(input model.TripInput) string {
	if input.Destination == "" {
		return "New trip"
	}
	if input.DateRange == "" {
		return input.Destination
	}
	return input.Destination + " · " + input.DateRange
}
