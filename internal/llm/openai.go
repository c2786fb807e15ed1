package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/goodfoods/reservation-platform/internal/model"
)

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client       ChatClient
	defaultModel string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, defaultModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return NewOpenAIClientWith(openai.NewClient(apiKey), defaultModel), nil
}

// NewOpenAIClientWith wraps an existing chat client.
func NewOpenAIClientWith(client ChatClient, defaultModel string) *OpenAIClient {
	if defaultModel == "" {
		defaultModel = openai.GPT4o
	}
	return &OpenAIClient{
		client:       client,
		defaultModel: defaultModel,
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
	}
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	request := openai.ChatCompletionRequest{
		Model:       modelID,
		Messages:    encodeOpenAIMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if len(req.Tools) > 0 {
		request.Tools = encodeOpenAITools(req.Tools)
		if req.ToolChoice == ToolChoiceNone {
			request.ToolChoice = "none"
		} else {
			request.ToolChoice = "auto"
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	out := &CompletionResponse{
		Content:    choice.Message.Content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: string(choice.FinishReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	for _, call := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: []byte(call.Function.Arguments),
		})
	}

	return out, nil
}

func encodeOpenAIMessages(msgs []model.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		m := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		switch msg.Role {
		case model.RoleAssistant:
			for _, call := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(toolArguments(call.Arguments)),
					},
				})
			}
		case model.RoleTool:
			m.ToolCallID = msg.ToolCallID
			m.Name = msg.Name
		}
		out = append(out, m)
	}
	return out
}

func encodeOpenAITools(defs []ToolDefinition) []openai.Tool {
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema,
			},
		})
	}
	return tools
}
