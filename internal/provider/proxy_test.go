package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tripflow-ai/itinerary-platform/internal/merge"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
)

func TestProxyGenerateTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var input model.TripInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Errorf("decode input: %v", err)
		}
		if input.Destination != "Porto" {
			t.Errorf("destination = %q", input.Destination)
		}
		json.NewEncoder(w).Encode(model.TripData{
			TripMeta: model.TripMeta{DayCount: 1},
			Days:     []model.TripDay{{Day: 1, Stops: []model.TripStop{{Name: "Ribeira"}}}},
		})
	}))
	defer srv.Close()

	p := NewProxyPlanner(srv.URL, logger.NewNop())
	data, err := p.GenerateTrip(context.Background(), model.TripInput{Destination: "Porto"})
	if err != nil {
		t.Fatalf("GenerateTrip: %v", err)
	}
	if len(data.Days) != 1 || data.Days[0].Stops[0].Name != "Ribeira" {
		t.Errorf("itinerary = %+v", data)
	}
}

func TestProxyGenerateTripRejectsEmptyItinerary(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.TripData{})
	}))
	defer srv.Close()

	p := NewProxyPlanner(srv.URL, logger.NewNop())
	if _, err := p.GenerateTrip(context.Background(), model.TripInput{}); err == nil {
		t.Fatal("empty itinerary accepted")
	}
}

func TestProxyGenerateTripRejectsMissingMeta(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"days":[{"day":1,"stops":[{"name":"Ribeira"}]}]}`)
	}))
	defer srv.Close()

	p := NewProxyPlanner(srv.URL, logger.NewNop())
	if _, err := p.GenerateTrip(context.Background(), model.TripInput{}); !errors.Is(err, merge.ErrMissingItineraryFields) {
		t.Errorf("err = %v, want ErrMissingItineraryFields", err)
	}
}

func TestProxyUpdateTripStreams(t *testing.T) {
	t.Parallel()

	frames := []stream.Frame{
		{Type: stream.FrameContent, Chunk: "Shuffled day one."},
		{Type: stream.FrameContent, Chunk: `___UPDATE_JSON___{"risks":["strike on Friday"]}`},
		{Type: stream.FrameDone},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, f := range frames {
			payload, _ := json.Marshal(f)
			fmt.Fprintf(w, "data: %s\n", payload)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	p := NewProxyPlanner(srv.URL, logger.NewNop())
	var last string
	res, err := p.UpdateTrip(context.Background(), &model.TripData{
		Days: []model.TripDay{{Day: 1, Stops: []model.TripStop{{Name: "Ribeira"}}}},
	}, nil, func(s string) { last = s })
	if err != nil {
		t.Fatalf("UpdateTrip: %v", err)
	}
	if res.ResponseText != "Shuffled day one." || last != "Shuffled day one." {
		t.Errorf("thought = %q, last callback = %q", res.ResponseText, last)
	}
	if res.UpdatedData == nil || len(res.UpdatedData.Risks) != 1 {
		t.Fatalf("patch not merged: %+v", res.UpdatedData)
	}
	if len(res.UpdatedData.Days) != 1 {
		t.Errorf("days changed by risks-only patch: %+v", res.UpdatedData.Days)
	}
}

func TestProxyUpdateTripErrorFrame(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"content\",\"chunk\":\"partial\"}\n")
		fmt.Fprint(w, "data: {\"type\":\"error\",\"message\":\"upstream overloaded\"}\n")
	}))
	defer srv.Close()

	p := NewProxyPlanner(srv.URL, logger.NewNop())
	_, err := p.UpdateTrip(context.Background(), nil, nil, nil)
	var perr *stream.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *stream.ProtocolError", err)
	}
	if perr.Message != "upstream overloaded" {
		t.Errorf("message = %q", perr.Message)
	}
}

func TestProxyNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProxyPlanner(srv.URL, logger.NewNop())
	if _, err := p.GetRecommendations(context.Background(), RecommendationRequest{}); err == nil {
		t.Fatal("non-200 response accepted")
	}
}
