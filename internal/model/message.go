package model

import (
	"encoding/json"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a structured tool invocation requested by the completion service.
// Arguments stay raw until the dispatcher decodes them for a specific tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message represents a single entry of a session's conversation state.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Assistant messages that request tools carry the calls.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Tool messages reference the call they answer.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Visible reports whether the message is shown to the end user.
func (m Message) Visible() bool {
	switch m.Role {
	case RoleSystem, RoleTool:
		return false
	case RoleAssistant:
		return m.Content != "" && len(m.ToolCalls) == 0
	default:
		return true
	}
}

// SendMessageRequest is the request to send a user message to a session.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// TurnResponse is the response after a completed dialogue turn.
type TurnResponse struct {
	SessionID  string       `json:"session_id"`
	Reply      string       `json:"reply"`
	State      SessionState `json:"state"`
	ToolRounds int          `json:"tool_rounds"`
}

// ToolCallEvent is streamed when the model requests a tool.
type ToolCallEvent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultEvent is streamed after a tool call has been dispatched.
type ToolResultEvent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// StateEvent is streamed on every orchestrator state transition.
type StateEvent struct {
	State SessionState `json:"state"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
