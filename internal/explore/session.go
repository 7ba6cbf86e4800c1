// Package explore implements the attraction explorer's recommendation
// pipeline: a visible results list plus a per-tab background prefetch
// buffer that masks network latency for "load more".
package explore

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/provider"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
	"github.com/tripflow-ai/itinerary-platform/pkg/metrics"
)

const (
	// bufferTarget is the prefetch depth a tab tries to stay above.
	bufferTarget = 24
	// batchSize is how many items one "load more" reveals.
	batchSize = 12
)

// ErrNotSearched is returned by LoadMore before the first search on a tab.
var ErrNotSearched = errors.New("explore: tab has not been searched yet")

// ErrSessionClosed is returned once the session has been torn down.
var ErrSessionClosed = errors.New("explore: session closed")

// errSuperseded aborts a pending load-more when a new search resets the tab.
var errSuperseded = errors.New("explore: superseded by a new search")

// StopNamesFunc supplies the names already committed to the itinerary.
type StopNamesFunc func() []string

// Session holds the explorer state for one trip. Each tab keeps its own
// visible list and prefetch buffer; switching tabs never clears either.
type Session struct {
	mu        sync.Mutex
	planner   provider.Planner
	logger    *logger.Logger
	location  string
	interests string
	language  string
	tripStops StopNamesFunc
	tabs      map[model.ExploreTab]*tabState
	closed    bool
}

type tabState struct {
	query       string
	searched    bool
	generation  int // bumped by Search; stale refill results are dropped
	visible     []model.AttractionRecommendation
	buffer      []model.AttractionRecommendation
	prefetching bool
	waiters     []chan error
}

// NewSession creates an explorer session for one trip.
func NewSession(planner provider.Planner, location, interests, language string, tripStops StopNamesFunc, log *logger.Logger) *Session {
	return &Session{
		planner:   planner,
		logger:    log,
		location:  location,
		interests: interests,
		language:  language,
		tripStops: tripStops,
		tabs: map[model.ExploreTab]*tabState{
			model.TabAttraction: {},
			model.TabFood:       {},
		},
	}
}

// State is a snapshot of one tab for rendering.
type State struct {
	Visible    []model.AttractionRecommendation `json:"visible"`
	BufferSize int                              `json:"bufferSize"`
	Waiting    bool                             `json:"waiting"`
}

// TabState returns a snapshot of the given tab.
func (s *Session) TabState(tab model.ExploreTab) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tab(tab)
	return State{
		Visible:    append([]model.AttractionRecommendation(nil), t.visible...),
		BufferSize: len(t.buffer),
		Waiting:    len(t.waiters) > 0,
	}
}

// Search clears the tab and fetches a fresh visible list, excluding only
// the places already committed to the itinerary. It is a foreground call:
// failures surface to the caller.
func (s *Session) Search(ctx context.Context, tab model.ExploreTab, query string) ([]model.AttractionRecommendation, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	t := s.tab(tab)
	t.generation++
	gen := t.generation
	t.query = query
	t.searched = true
	t.visible = nil
	t.buffer = nil
	// Any in-flight refill belongs to the previous generation and will be
	// dropped on arrival, so it no longer counts as in flight.
	t.prefetching = false
	s.failWaitersLocked(t, errSuperseded)
	s.mu.Unlock()

	recs, err := s.fetch(ctx, tab, query, lo.Uniq(s.tripStops()))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if gen != t.generation {
		return nil, errSuperseded
	}
	t.visible = recs
	s.observeDepth(tab, t)
	s.maybeRefillLocked(tab, t)
	return append([]model.AttractionRecommendation(nil), t.visible...), nil
}

// EnsureSearched triggers the automatic first search when a tab is
// activated with no results yet.
func (s *Session) EnsureSearched(ctx context.Context, tab model.ExploreTab) ([]model.AttractionRecommendation, error) {
	s.mu.Lock()
	t := s.tab(tab)
	searched := t.searched
	query := t.query
	visible := append([]model.AttractionRecommendation(nil), t.visible...)
	s.mu.Unlock()

	if searched {
		return visible, nil
	}
	return s.Search(ctx, tab, query)
}

// LoadMore reveals the next batch. With a non-empty buffer it completes
// immediately with no fetch; with an empty buffer it waits for the next
// refill to land and is fulfilled from it.
func (s *Session) LoadMore(ctx context.Context, tab model.ExploreTab) ([]model.AttractionRecommendation, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	t := s.tab(tab)
	if !t.searched {
		s.mu.Unlock()
		return nil, ErrNotSearched
	}

	if len(t.buffer) > 0 {
		s.moveBatchLocked(tab, t)
		out := append([]model.AttractionRecommendation(nil), t.visible...)
		s.maybeRefillLocked(tab, t)
		s.mu.Unlock()
		return out, nil
	}

	// Buffer exhausted: wait for the in-flight (or newly started) refill.
	wait := make(chan error, 1)
	t.waiters = append(t.waiters, wait)
	if !t.prefetching {
		s.startRefillLocked(tab, t)
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-wait:
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.moveBatchLocked(tab, t)
	out := append([]model.AttractionRecommendation(nil), t.visible...)
	s.maybeRefillLocked(tab, t)
	return out, nil
}

// Close tears down the session; in-flight results are ignored on arrival.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.tabs {
		s.failWaitersLocked(t, ErrSessionClosed)
	}
}

func (s *Session) tab(tab model.ExploreTab) *tabState {
	t, ok := s.tabs[tab]
	if !ok {
		t = &tabState{}
		s.tabs[tab] = t
	}
	return t
}

// moveBatchLocked moves up to batchSize items from the buffer front to
// the end of the visible list.
func (s *Session) moveBatchLocked(tab model.ExploreTab, t *tabState) {
	n := batchSize
	if n > len(t.buffer) {
		n = len(t.buffer)
	}
	t.visible = append(t.visible, t.buffer[:n]...)
	t.buffer = append([]model.AttractionRecommendation(nil), t.buffer[n:]...)
	s.observeDepth(tab, t)
}

// maybeRefillLocked starts a background refill when the buffer has
// dropped under target, nothing is already in flight, and there are
// visible results to extend.
func (s *Session) maybeRefillLocked(tab model.ExploreTab, t *tabState) {
	if s.closed || !t.searched || t.prefetching {
		return
	}
	if len(t.visible) == 0 || len(t.buffer) >= bufferTarget {
		return
	}
	s.startRefillLocked(tab, t)
}

func (s *Session) startRefillLocked(tab model.ExploreTab, t *tabState) {
	t.prefetching = true
	gen := t.generation
	query := t.query

	// Exclude everything already seen this session: committed stops,
	// visible items, and buffered items.
	exclude := lo.Uniq(append(append(s.tripStops(),
		recommendationNames(t.visible)...),
		recommendationNames(t.buffer)...))

	metrics.ExplorePrefetchesTotal.WithLabelValues(string(tab)).Inc()

	go func() {
		recs, err := s.fetch(context.Background(), tab, query, exclude)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || gen != t.generation {
			return
		}
		t.prefetching = false

		if err != nil {
			// Best effort in the background; a waiting load-more was
			// user-initiated, so it gets the error.
			if len(t.waiters) > 0 {
				s.failWaitersLocked(t, err)
			} else {
				s.logger.Debug("background refill failed", zap.String("tab", string(tab)), zap.Error(err))
				metrics.ExplorePrefetchFailuresTotal.WithLabelValues(string(tab)).Inc()
			}
			return
		}

		t.buffer = append(t.buffer, recs...)
		s.observeDepth(tab, t)
		for _, w := range t.waiters {
			w <- nil
		}
		t.waiters = nil
	}()
}

func (s *Session) failWaitersLocked(t *tabState, err error) {
	for _, w := range t.waiters {
		w <- err
	}
	t.waiters = nil
}

func (s *Session) fetch(ctx context.Context, tab model.ExploreTab, query string, exclude []string) ([]model.AttractionRecommendation, error) {
	interests := s.interests
	if query != "" {
		interests = query
	}
	return s.planner.GetRecommendations(ctx, provider.RecommendationRequest{
		Location:  s.location,
		Interests: interests,
		Tab:       tab,
		Exclude:   exclude,
		Language:  s.language,
	})
}

func (s *Session) observeDepth(tab model.ExploreTab, t *tabState) {
	metrics.ExploreBufferDepth.WithLabelValues(string(tab)).Set(float64(len(t.buffer)))
}

func recommendationNames(recs []model.AttractionRecommendation) []string {
	return lo.Map(recs, func(r model.AttractionRecommendation, _ int) string { return r.Name })
}
