// Package model defines data structures for the reservation platform.
package model

import (
	"time"
)

// SessionState is the dialogue state of a session.
type SessionState string

const (
	StateAwaitingInput     SessionState = "awaiting_input"
	StateCompletionPending SessionState = "completion_pending"
	StateToolRound         SessionState = "tool_round"
	StateDirectResponse    SessionState = "direct_response"
	StateAborted           SessionState = "aborted"
)

// SessionSnapshot is the externally visible view of a dialogue session.
type SessionSnapshot struct {
	ID        string       `json:"session_id"`
	State     SessionState `json:"state"`
	Messages  []Message    `json:"messages"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
