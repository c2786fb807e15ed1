package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/goodfoods/reservation-platform/internal/model"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	defaultAnthropicMaxTokens = 1024
)

// MessagesClient is the subset of the Anthropic SDK used here. It is
// satisfied by *anthropic.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	messages     MessagesClient
	defaultModel string
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey, defaultModel string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClientWith(&client.Messages, defaultModel), nil
}

// NewAnthropicClientWith wraps an existing messages client.
func NewAnthropicClientWith(messages MessagesClient, defaultModel string) *AnthropicClient {
	if defaultModel == "" {
		defaultModel = defaultAnthropicModel
	}
	return &AnthropicClient{
		messages:     messages,
		defaultModel: defaultModel,
	}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		defaultAnthropicModel,
		"claude-haiku-4-5",
		"claude-opus-4-1",
	}
}

// Complete sends a completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	messages, system := encodeAnthropicMessages(req.Messages)
	if len(messages) == 0 {
		return nil, errors.New("anthropic: at least one user message is required")
	}

	params := anthropic.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  messages,
		Model:     anthropic.Model(modelID),
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := encodeAnthropicTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
		if req.ToolChoice == ToolChoiceNone {
			none := anthropic.NewToolChoiceNoneParam()
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &none}
		}
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	out := &CompletionResponse{
		Model:      string(resp.Model),
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			args, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("anthropic: encode %s input: %w", block.Name, err)
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	return out, nil
}

// encodeAnthropicMessages splits system text from the conversation and folds
// consecutive tool results into one user turn. Assistant messages before the
// first user message are dropped because the API requires a user turn first.
func encodeAnthropicMessages(msgs []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case model.RoleTool:
			pendingResults = append(pendingResults,
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
		case model.RoleUser:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case model.RoleAssistant:
			flush()
			if len(out) == 0 {
				continue
			}
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, toolArguments(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()

	return out, system
}

func encodeAnthropicTools(defs []ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		var schema map[string]any
		if err := json.Unmarshal(def.Schema, &schema); err != nil {
			return nil, fmt.Errorf("decode %s schema: %w", def.Name, err)
		}
		u := anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{ExtraFields: schema}, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = anthropic.String(def.Description)
		}
		tools = append(tools, u)
	}
	return tools, nil
}
