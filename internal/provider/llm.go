package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tripflow-ai/itinerary-platform/internal/llm"
	"github.com/tripflow-ai/itinerary-platform/internal/merge"
	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/prompt"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
	"github.com/tripflow-ai/itinerary-platform/pkg/logger"
	"github.com/tripflow-ai/itinerary-platform/pkg/metrics"
)

const recommendationCacheTTL = 10 * time.Minute

// LLMPlanner is the direct-call transport: it talks to a generation
// backend through an llm.Client and interprets the output itself.
type LLMPlanner struct {
	client llm.Client
	cache  *gocache.Cache
	logger *logger.Logger
}

// NewLLMPlanner creates a planner over the given LLM client.
func NewLLMPlanner(client llm.Client, log *logger.Logger) *LLMPlanner {
	return &LLMPlanner{
		client: client,
		cache:  gocache.New(recommendationCacheTTL, 2*recommendationCacheTTL),
		logger: log,
	}
}

// GenerateTrip produces a complete itinerary from the user preferences.
func (p *LLMPlanner) GenerateTrip(ctx context.Context, input model.TripInput) (*model.TripData, error) {
	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		System:    prompt.GenerateSystem(),
		Messages:  []llm.ChatMessage{{Role: "user", Content: prompt.Generate(input)}},
		MaxTokens: 8192,
	})
	if err != nil {
		return nil, fmt.Errorf("generate trip: %w", err)
	}

	metrics.RecordLLMCall(p.client.Name(), "generate", resp.TokensIn, resp.TokensOut)

	data, err := merge.ParseTripData(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("generate trip: %w", err)
	}
	return data, nil
}

// UpdateTrip streams one refinement turn through the shared decoder and
// merges any trailing patch into the current itinerary.
func (p *LLMPlanner) UpdateTrip(ctx context.Context, current *model.TripData, history []model.Message, onThought stream.ThoughtFunc) (*UpdateResult, error) {
	messages := make([]llm.ChatMessage, len(history))
	for i, msg := range history {
		messages[i] = llm.ChatMessage{Role: string(msg.Role), Content: msg.Text}
	}

	dec := stream.NewDecoder(onThought)
	resp, err := p.client.CompleteStream(ctx, &llm.CompletionRequest{
		System:    prompt.UpdateSystem(current),
		Messages:  messages,
		MaxTokens: 8192,
		Stream:    true,
	}, func(delta string, _ int) error {
		dec.AppendContent(delta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}

	metrics.RecordLLMCall(p.client.Name(), "update", resp.TokensIn, resp.TokensOut)

	res, err := dec.Close()
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	return finishUpdate(current, res), nil
}

// GetRecommendations fetches place suggestions, caching identical
// requests for a short while.
func (p *LLMPlanner) GetRecommendations(ctx context.Context, req RecommendationRequest) ([]model.AttractionRecommendation, error) {
	key := recommendationCacheKey(req)
	if cached, ok := p.cache.Get(key); ok {
		return cached.([]model.AttractionRecommendation), nil
	}

	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{{
			Role:    "user",
			Content: prompt.Recommendations(req.Location, req.Interests, req.Tab, req.Exclude, req.Language),
		}},
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}

	metrics.RecordLLMCall(p.client.Name(), "recommend", resp.TokensIn, resp.TokensOut)

	recs, err := parseRecommendations(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}

	// The backend is told the exclusions but does not always honor them.
	excluded := lo.SliceToMap(req.Exclude, func(n string) (string, struct{}) { return n, struct{}{} })
	recs = lo.Filter(recs, func(r model.AttractionRecommendation, _ int) bool {
		_, seen := excluded[r.Name]
		return !seen
	})

	p.cache.Set(key, recs, gocache.DefaultExpiration)
	return recs, nil
}

// CheckFeasibility assesses a proposed modification.
func (p *LLMPlanner) CheckFeasibility(ctx context.Context, current *model.TripData, modification string) (*model.FeasibilityResult, error) {
	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{{
			Role:    "user",
			Content: prompt.Feasibility(current, modification),
		}},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("check feasibility: %w", err)
	}

	metrics.RecordLLMCall(p.client.Name(), "feasibility", resp.TokensIn, resp.TokensOut)

	res, err := parseFeasibility(resp.Content)
	if err != nil {
		p.logger.Warn("unparseable feasibility response", zap.Error(err))
		return nil, fmt.Errorf("check feasibility: %w", err)
	}
	return res, nil
}

func recommendationCacheKey(req RecommendationRequest) string {
	exclude := append([]string(nil), req.Exclude...)
	sort.Strings(exclude)
	h := sha256.Sum256([]byte(strings.Join([]string{
		req.Location, req.Interests, string(req.Tab), req.Language, strings.Join(exclude, "\x00"),
	}, "\x01")))
	return hex.EncodeToString(h[:])
}
