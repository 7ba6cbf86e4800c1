package explore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/provider"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
)

type fakeResult struct {
	recs []model.AttractionRecommendation
	err  error
}

// fakePlanner serves queued recommendation results, then auto-generated
// batches. A non-nil gate blocks every fetch until a token is sent.
type fakePlanner struct {
	mu    sync.Mutex
	calls []provider.RecommendationRequest
	queue []fakeResult
	gate  chan struct{}
}

func (f *fakePlanner) GetRecommendations(ctx context.Context, req provider.RecommendationRequest) ([]model.AttractionRecommendation, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.queue) > 0 {
		r := f.queue[0]
		f.queue = f.queue[1:]
		return r.recs, r.err
	}
	return namedRecs(fmt.Sprintf("auto%d", len(f.calls)), bufferTarget), nil
}

func (f *fakePlanner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakePlanner) call(i int) provider.RecommendationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakePlanner) GenerateTrip(ctx context.Context, input model.TripInput) (*model.TripData, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlanner) UpdateTrip(ctx context.Context, current *model.TripData, history []model.Message, onThought stream.ThoughtFunc) (*provider.UpdateResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlanner) CheckFeasibility(ctx context.Context, current *model.TripData, modification string) (*model.FeasibilityResult, error) {
	return nil, errors.New("not implemented")
}

func namedRecs(prefix string, n int) []model.AttractionRecommendation {
	recs := make([]model.AttractionRecommendation, n)
	for i := range recs {
		recs[i] = model.AttractionRecommendation{Name: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return recs
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestSession(fake *fakePlanner, tripStops []string) *Session {
	return NewSession(fake, "Trondheim", "history, seafood", "en", func() []string {
		return append([]string(nil), tripStops...)
	}, logger.NewNop())
}

func TestSearchPopulatesVisibleAndPrefetches(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{queue: []fakeResult{{recs: namedRecs("seen", 12)}}}
	s := newTestSession(fake, []string{"Nidaros Cathedral"})

	recs, err := s.Search(context.Background(), model.TabAttraction, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 12 {
		t.Fatalf("visible = %d, want 12", len(recs))
	}

	// The first fetch excludes only the committed itinerary stops.
	if got := fake.call(0).Exclude; !reflect.DeepEqual(got, []string{"Nidaros Cathedral"}) {
		t.Errorf("search exclude = %v", got)
	}

	// A background refill follows because the buffer is under target.
	waitFor(t, "refill", func() bool { return s.TabState(model.TabAttraction).BufferSize >= bufferTarget })
	if n := fake.callCount(); n != 2 {
		t.Errorf("fetch count = %d, want 2", n)
	}
}

func TestLoadMoreFromBufferIsImmediate(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{}
	s := newTestSession(fake, nil)

	s.mu.Lock()
	tb := s.tabs[model.TabFood]
	tb.searched = true
	tb.visible = namedRecs("vis", 12)
	tb.buffer = namedRecs("buf", 36)
	s.mu.Unlock()

	recs, err := s.LoadMore(context.Background(), model.TabFood)
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if len(recs) != 24 {
		t.Fatalf("visible = %d, want 24", len(recs))
	}
	if recs[12].Name != "buf-0" || recs[23].Name != "buf-11" {
		t.Errorf("batch not taken from buffer front: %v ... %v", recs[12].Name, recs[23].Name)
	}
	st := s.TabState(model.TabFood)
	if st.BufferSize != 24 {
		t.Errorf("buffer = %d, want 24", st.BufferSize)
	}
	if n := fake.callCount(); n != 0 {
		t.Errorf("LoadMore with a full buffer fetched %d times", n)
	}
}

func TestLoadMoreWaitsForRefill(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{
		gate:  make(chan struct{}),
		queue: []fakeResult{{recs: namedRecs("late", 20)}},
	}
	t.Cleanup(func() { close(fake.gate) })
	s := newTestSession(fake, nil)

	s.mu.Lock()
	tb := s.tabs[model.TabAttraction]
	tb.searched = true
	tb.visible = namedRecs("vis", 12)
	s.mu.Unlock()

	type outcome struct {
		recs []model.AttractionRecommendation
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		recs, err := s.LoadMore(context.Background(), model.TabAttraction)
		done <- outcome{recs, err}
	}()

	waitFor(t, "waiter registered", func() bool { return s.TabState(model.TabAttraction).Waiting })
	fake.gate <- struct{}{}

	got := <-done
	if got.err != nil {
		t.Fatalf("LoadMore: %v", got.err)
	}
	if len(got.recs) != 24 {
		t.Errorf("visible = %d, want 24", len(got.recs))
	}
	if st := s.TabState(model.TabAttraction); st.BufferSize != 8 {
		t.Errorf("buffer = %d, want 8", st.BufferSize)
	}
}

func TestLoadMoreBeforeSearch(t *testing.T) {
	t.Parallel()

	s := newTestSession(&fakePlanner{}, nil)
	if _, err := s.LoadMore(context.Background(), model.TabAttraction); !errors.Is(err, ErrNotSearched) {
		t.Errorf("err = %v, want ErrNotSearched", err)
	}
}

func TestRefillExcludesEverythingSeen(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{}
	s := newTestSession(fake, []string{"Castle", "Shared"})

	s.mu.Lock()
	tb := s.tabs[model.TabAttraction]
	tb.searched = true
	tb.query = "viewpoints"
	tb.visible = []model.AttractionRecommendation{{Name: "Shared"}, {Name: "Bridge"}}
	tb.buffer = []model.AttractionRecommendation{{Name: "Bridge"}, {Name: "Tower"}}
	s.startRefillLocked(model.TabAttraction, tb)
	s.mu.Unlock()

	waitFor(t, "refill call", func() bool { return fake.callCount() == 1 })

	req := fake.call(0)
	got := append([]string(nil), req.Exclude...)
	sort.Strings(got)
	want := []string{"Bridge", "Castle", "Shared", "Tower"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("exclude = %v, want %v", got, want)
	}
	if req.Interests != "viewpoints" {
		t.Errorf("interests = %q, want the tab query", req.Interests)
	}
}

func TestSingleRefillInFlight(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{gate: make(chan struct{})}
	s := newTestSession(fake, nil)

	s.mu.Lock()
	tb := s.tabs[model.TabAttraction]
	tb.searched = true
	tb.visible = namedRecs("vis", 12)
	s.maybeRefillLocked(model.TabAttraction, tb)
	s.maybeRefillLocked(model.TabAttraction, tb)
	prefetching := tb.prefetching
	s.mu.Unlock()

	if !prefetching {
		t.Fatal("refill did not start")
	}
	fake.gate <- struct{}{}
	waitFor(t, "refill done", func() bool {
		return s.TabState(model.TabAttraction).BufferSize == bufferTarget
	})
	if n := fake.callCount(); n != 1 {
		t.Errorf("fetch count = %d, want 1", n)
	}
}

func TestBackgroundRefillFailureIsSilent(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{queue: []fakeResult{
		{recs: namedRecs("seen", 12)},
		{err: errors.New("backend down")},
	}}
	s := newTestSession(fake, nil)

	if _, err := s.Search(context.Background(), model.TabFood, ""); err != nil {
		t.Fatalf("Search: %v", err)
	}

	// The automatic refill fails; the visible list must be untouched and
	// the failure swallowed.
	waitFor(t, "failed refill to settle", func() bool { return fake.callCount() == 2 })
	waitFor(t, "prefetch flag clear", func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.tabs[model.TabFood].prefetching
	})
	st := s.TabState(model.TabFood)
	if len(st.Visible) != 12 || st.BufferSize != 0 {
		t.Fatalf("state after silent failure: visible=%d buffer=%d", len(st.Visible), st.BufferSize)
	}

	// The next load-more retries and succeeds.
	recs, err := s.LoadMore(context.Background(), model.TabFood)
	if err != nil {
		t.Fatalf("LoadMore after failed refill: %v", err)
	}
	if len(recs) != 24 {
		t.Errorf("visible = %d, want 24", len(recs))
	}
}

func TestSearchSupersedesPendingLoadMore(t *testing.T) {
	t.Parallel()

	fake := &fakePlanner{gate: make(chan struct{})}
	s := newTestSession(fake, nil)

	s.mu.Lock()
	tb := s.tabs[model.TabAttraction]
	tb.searched = true
	tb.visible = namedRecs("vis", 12)
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.LoadMore(context.Background(), model.TabAttraction)
		errCh <- err
	}()
	waitFor(t, "waiter registered", func() bool { return s.TabState(model.TabAttraction).Waiting })

	// A new search aborts the pending load-more before fetching anything,
	// so the waiter fails while every fetch is still gated.
	searchDone := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), model.TabAttraction, "castles")
		searchDone <- err
	}()
	if err := <-errCh; !errors.Is(err, errSuperseded) {
		t.Errorf("pending LoadMore err = %v, want errSuperseded", err)
	}

	close(fake.gate)
	if err := <-searchDone; err != nil {
		t.Fatalf("Search: %v", err)
	}
}

func TestClosedSession(t *testing.T) {
	t.Parallel()

	s := newTestSession(&fakePlanner{}, nil)
	s.Close()
	if _, err := s.Search(context.Background(), model.TabAttraction, ""); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Search err = %v, want ErrSessionClosed", err)
	}
	if _, err := s.LoadMore(context.Background(), model.TabAttraction); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("LoadMore err = %v, want ErrSessionClosed", err)
	}
}
