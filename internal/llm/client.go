// Package llm provides completion clients for the supported providers.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodfoods/reservation-platform/internal/model"
)

// ErrEmptyResponse is returned when a provider answers without any choice.
var ErrEmptyResponse = errors.New("completion returned no choices")

// ToolChoice controls whether the model may request tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// CompletionRequest represents a completion request. Messages carry the whole
// conversation, including system, tool call and tool result messages.
type CompletionRequest struct {
	Model       string
	Messages    []model.Message
	Tools       []ToolDefinition
	ToolChoice  ToolChoice
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	ToolCalls  []model.ToolCall
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey, defaultModel string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, defaultModel)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, defaultModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

func toolArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
