package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tripflow-ai/itinerary-platform/internal/merge"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
)

// ProxyPlanner is the proxied transport: a backend server performs the
// LLM calls and this planner consumes its HTTP responses. Update
// responses arrive as the streamed wire format and go through the same
// decoder as the direct transport.
type ProxyPlanner struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewProxyPlanner creates a planner backed by a proxy server.
func NewProxyPlanner(baseURL string, log *logger.Logger) *ProxyPlanner {
	return &ProxyPlanner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  log,
	}
}

func (p *ProxyPlanner) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// GenerateTrip asks the proxy for a complete itinerary.
func (p *ProxyPlanner) GenerateTrip(ctx context.Context, input model.TripInput) (*model.TripData, error) {
	resp, err := p.post(ctx, "/api/ai/generate", input)
	if err != nil {
		return nil, fmt.Errorf("generate trip: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("generate trip: %w", err)
	}
	// Same mandatory-field rules as the direct transport: an itinerary
	// without tripMeta or days is a failed generation.
	data, err := merge.ParseTripData(string(body))
	if err != nil {
		return nil, fmt.Errorf("generate trip: %w", err)
	}
	return data, nil
}

type proxyUpdateRequest struct {
	Current  *model.TripData `json:"current"`
	Messages []model.Message `json:"messages"`
}

// UpdateTrip streams one refinement turn from the proxy.
func (p *ProxyPlanner) UpdateTrip(ctx context.Context, current *model.TripData, history []model.Message, onThought stream.ThoughtFunc) (*UpdateResult, error) {
	resp, err := p.post(ctx, "/api/ai/update", proxyUpdateRequest{Current: current, Messages: history})
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	defer resp.Body.Close()

	res, err := stream.Decode(ctx, resp.Body, onThought)
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	return finishUpdate(current, res), nil
}

// GetRecommendations fetches place suggestions from the proxy.
func (p *ProxyPlanner) GetRecommendations(ctx context.Context, req RecommendationRequest) ([]model.AttractionRecommendation, error) {
	resp, err := p.post(ctx, "/api/ai/recommendations", req)
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	defer resp.Body.Close()

	var recs []model.AttractionRecommendation
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	return recs, nil
}

type proxyFeasibilityRequest struct {
	Current      *model.TripData `json:"current"`
	Modification string          `json:"modification"`
}

// CheckFeasibility asks the proxy to assess a proposed modification.
func (p *ProxyPlanner) CheckFeasibility(ctx context.Context, current *model.TripData, modification string) (*model.FeasibilityResult, error) {
	resp, err := p.post(ctx, "/api/ai/feasibility", proxyFeasibilityRequest{Current: current, Modification: modification})
	if err != nil {
		return nil, fmt.Errorf("check feasibility: %w", err)
	}
	defer resp.Body.Close()

	var res model.FeasibilityResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("check feasibility: %w", err)
	}
	return &res, nil
}
