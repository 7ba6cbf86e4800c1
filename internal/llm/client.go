// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"fmt"
)

// StreamCallback is called for each text delta during streaming.
type StreamCallback func(delta string, index int) error

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// ChatMessage represents a chat message for the LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface over text-generation backends. The platform
// treats generation as an opaque capability; everything above this
// interface is backend-agnostic.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream sends a streaming completion request, invoking the
	// callback per delta in arrival order.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the backend name.
	Name() string
}

// Provider is the type of LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	// ProviderLocal is an OpenAI-compatible local inference server.
	ProviderLocal Provider = "local"
)

// NewClient creates an LLM client for the given backend. baseURL is only
// used by the local provider.
func NewClient(provider Provider, apiKey, baseURL string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	case ProviderLocal:
		return NewLocalClient(apiKey, baseURL)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
