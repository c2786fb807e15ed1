package model

import (
	"time"
)

// EventType represents the type of session event.
type EventType string

const (
	EventTypeCreated    EventType = "created"
	EventTypeReset      EventType = "reset"
	EventTypeUpstream   EventType = "upstream_error"
	EventTypeSimulation EventType = "function_simulation"
	EventTypeTimeout    EventType = "timeout"
	EventTypeCancelled  EventType = "cancelled"
)

// SessionEvent represents a lifecycle event in a dialogue session.
type SessionEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
