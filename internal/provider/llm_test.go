package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tripflow-ai/itinerary-platform/internal/llm"
	"github.com/tripflow-ai/itinerary-platform/internal/merge"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
)

// fakeClient returns canned content. Streaming responses are delivered
// in small deltas to exercise chunk-boundary handling.
type fakeClient struct {
	content     string
	err         error
	completions int
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.completions++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, Model: "fake"}, nil
}

func (f *fakeClient) CompleteStream(ctx context.Context, req *llm.CompletionRequest, callback llm.StreamCallback) (*llm.CompletionResponse, error) {
	f.completions++
	if f.err != nil {
		return nil, f.err
	}
	rest := f.content
	i := 0
	for len(rest) > 0 {
		n := 5
		if n > len(rest) {
			n = len(rest)
		}
		if err := callback(rest[:n], i); err != nil {
			return nil, err
		}
		rest = rest[n:]
		i++
	}
	return &llm.CompletionResponse{Content: f.content, Model: "fake"}, nil
}

func (f *fakeClient) Name() string { return "fake" }

func baseTrip() *model.TripData {
	return &model.TripData{
		TripMeta: model.TripMeta{DayCount: 2},
		Days: []model.TripDay{
			{Day: 1, Stops: []model.TripStop{{Name: "Alfama"}}},
			{Day: 2, Stops: []model.TripStop{{Name: "Belém"}}},
		},
	}
}

func TestGenerateTrip(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: "Here it is:\n```json\n" +
		`{"tripMeta":{"dayCount":2},"days":[{"day":1,"stops":[{"name":"Alfama"}]},{"day":2,"stops":[]}]}` +
		"\n```"}
	p := NewLLMPlanner(client, logger.NewNop())

	data, err := p.GenerateTrip(context.Background(), model.TripInput{Destination: "Lisbon"})
	if err != nil {
		t.Fatalf("GenerateTrip: %v", err)
	}
	if len(data.Days) != 2 || data.Days[0].Stops[0].Name != "Alfama" {
		t.Errorf("unexpected itinerary: %+v", data)
	}
}

func TestGenerateTripRejectsIncompleteResponse(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: `{"days":[{"day":1,"stops":[]}]}`}
	p := NewLLMPlanner(client, logger.NewNop())

	if _, err := p.GenerateTrip(context.Background(), model.TripInput{}); !errors.Is(err, merge.ErrMissingItineraryFields) {
		t.Errorf("err = %v, want ErrMissingItineraryFields", err)
	}
}

func TestUpdateTripMergesPatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: "Moved Belém to the morning." +
		`___UPDATE_JSON___{"days":[{"day":2,"stops":[{"name":"Belém (morning)"}]}]}`}
	p := NewLLMPlanner(client, logger.NewNop())

	var thoughts []string
	res, err := p.UpdateTrip(context.Background(), baseTrip(), []model.Message{
		{Role: model.RoleUser, Text: "move Belém earlier"},
	}, func(s string) { thoughts = append(thoughts, s) })
	if err != nil {
		t.Fatalf("UpdateTrip: %v", err)
	}
	if res.ResponseText != "Moved Belém to the morning." {
		t.Errorf("response text = %q", res.ResponseText)
	}
	if res.UpdatedData == nil {
		t.Fatal("UpdatedData = nil")
	}
	if res.UpdatedData.Days[1].Stops[0].Name != "Belém (morning)" {
		t.Errorf("day 2 not replaced: %+v", res.UpdatedData.Days[1])
	}
	if res.UpdatedData.Days[0].Stops[0].Name != "Alfama" {
		t.Errorf("day 1 changed: %+v", res.UpdatedData.Days[0])
	}
	if len(thoughts) == 0 || thoughts[len(thoughts)-1] != "Moved Belém to the morning." {
		t.Errorf("thought callbacks = %v", thoughts)
	}
}

func TestUpdateTripConversationOnly(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: "Your current plan already covers that, nothing to change."}
	p := NewLLMPlanner(client, logger.NewNop())

	res, err := p.UpdateTrip(context.Background(), baseTrip(), nil, nil)
	if err != nil {
		t.Fatalf("UpdateTrip: %v", err)
	}
	if res.UpdatedData != nil {
		t.Error("conversation-only turn produced a data update")
	}
	if !strings.Contains(res.ResponseText, "nothing to change") {
		t.Errorf("response text = %q", res.ResponseText)
	}
}

func TestUpdateTripDiscardsMalformedPatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: "Trying...___UPDATE_JSON___{not valid json"}
	p := NewLLMPlanner(client, logger.NewNop())

	res, err := p.UpdateTrip(context.Background(), baseTrip(), nil, nil)
	if err != nil {
		t.Fatalf("UpdateTrip: %v", err)
	}
	if res.UpdatedData != nil {
		t.Error("malformed patch was applied")
	}
	if res.ResponseText != "Trying..." {
		t.Errorf("response text = %q", res.ResponseText)
	}
}

func TestGetRecommendationsFiltersAndCaches(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: "```json\n" +
		`[{"name":"Castelo de São Jorge"},{"name":"Alfama"},{"name":"LX Factory"}]` +
		"\n```"}
	p := NewLLMPlanner(client, logger.NewNop())

	req := RecommendationRequest{
		Location: "Lisbon",
		Tab:      model.TabAttraction,
		Exclude:  []string{"Alfama"},
	}
	recs, err := p.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2 after exclusion", len(recs))
	}
	for _, r := range recs {
		if r.Name == "Alfama" {
			t.Error("excluded place returned")
		}
	}

	// Identical request is served from cache.
	if _, err := p.GetRecommendations(context.Background(), req); err != nil {
		t.Fatalf("cached GetRecommendations: %v", err)
	}
	if client.completions != 1 {
		t.Errorf("completions = %d, want 1", client.completions)
	}

	// A different exclusion set misses the cache.
	req.Exclude = nil
	if _, err := p.GetRecommendations(context.Background(), req); err != nil {
		t.Fatalf("GetRecommendations: %v", err)
	}
	if client.completions != 2 {
		t.Errorf("completions = %d, want 2", client.completions)
	}
}

func TestCheckFeasibility(t *testing.T) {
	t.Parallel()

	client := &fakeClient{content: `{"feasible":false,"riskLevel":"high","issues":["last ferry leaves 17:00"],"suggestions":["start a day earlier"]}`}
	p := NewLLMPlanner(client, logger.NewNop())

	res, err := p.CheckFeasibility(context.Background(), baseTrip(), "add Sintra as a day trip")
	if err != nil {
		t.Fatalf("CheckFeasibility: %v", err)
	}
	if res.Feasible || res.RiskLevel != model.RiskHigh || len(res.Issues) != 1 {
		t.Errorf("result = %+v", res)
	}
}
