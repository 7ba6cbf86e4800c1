// Package provider defines the AI planning capability interface and its
// transport implementations. Transports differ only in how they obtain
// the generated text; interpretation (sentinel split, patch merge, JSON
// extraction) is shared through internal/stream and internal/merge.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tripflow-ai/itinerary-platform/internal/merge"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
)

// RecommendationRequest describes one recommendation fetch.
type RecommendationRequest struct {
	Location  string           `json:"location"`
	Interests string           `json:"interests"`
	Tab       model.ExploreTab `json:"category"`
	Exclude   []string         `json:"exclude"`
	Language  string           `json:"language"`
}

// UpdateResult is the outcome of one chat refinement turn. UpdatedData is
// nil when the model responded with plain conversation only.
type UpdateResult struct {
	ResponseText string
	UpdatedData  *model.TripData
}

// Planner is the capability interface over AI backends. Implementations
// must be swappable without changing any caller.
type Planner interface {
	// GenerateTrip produces a complete itinerary. No partial results are
	// exposed; the caller awaits a full itinerary or a failure.
	GenerateTrip(ctx context.Context, input model.TripInput) (*model.TripData, error)

	// UpdateTrip drives one refinement turn. onThought observes the
	// growing thought text and may be nil.
	UpdateTrip(ctx context.Context, current *model.TripData, history []model.Message, onThought stream.ThoughtFunc) (*UpdateResult, error)

	// GetRecommendations fetches place suggestions for the explorer.
	GetRecommendations(ctx context.Context, req RecommendationRequest) ([]model.AttractionRecommendation, error)

	// CheckFeasibility assesses a proposed modification.
	CheckFeasibility(ctx context.Context, current *model.TripData, modification string) (*model.FeasibilityResult, error)
}

// finishUpdate converts a decoded stream result into an UpdateResult by
// applying the patch, if any, to the current itinerary. A patch that
// fails to parse is discarded: the thought text still reaches the user
// and the itinerary is left untouched, never partially merged.
func finishUpdate(current *model.TripData, res *stream.Result) *UpdateResult {
	out := &UpdateResult{ResponseText: res.ThoughtText}
	if !res.HasUpdate() || current == nil {
		return out
	}
	merged, err := merge.Apply(*current, []byte(res.RawJSONBuffer))
	if err != nil {
		return out
	}
	out.UpdatedData = &merged
	return out
}

// parseRecommendations extracts a JSON array of recommendations from
// generated text, tolerating code fences and surrounding commentary.
func parseRecommendations(text string) ([]model.AttractionRecommendation, error) {
	text = stream.StripCodeFence(text)
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end < start {
		return nil, errors.New("no JSON array found in recommendations response")
	}
	var recs []model.AttractionRecommendation
	if err := json.Unmarshal([]byte(text[start:end+1]), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// parseFeasibility extracts a FeasibilityResult from generated text.
func parseFeasibility(text string) (*model.FeasibilityResult, error) {
	obj, err := merge.ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var res model.FeasibilityResult
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
