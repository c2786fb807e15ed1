// Package service runs dialogue sessions: the session registry and the
// turn orchestrator that mediates between the completion service and tools.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionAborted  = errors.New("session aborted, reset required")
	ErrTurnInProgress  = errors.New("a turn is already in progress for this session")
	ErrEmptyMessage    = errors.New("message content is required")
)

// EventPublisher receives session messages and lifecycle events.
type EventPublisher interface {
	PublishMessage(ctx context.Context, sessionID string, msg model.Message) error
	PublishEvent(ctx context.Context, event *model.SessionEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(context.Context, string, model.Message) error { return nil }
func (nopPublisher) PublishEvent(context.Context, *model.SessionEvent) error     { return nil }

// Session is one conversation. Turns are serialized by the turn lock;
// mu guards the conversation state itself.
type Session struct {
	ID string

	turn sync.Mutex

	mu        sync.RWMutex
	state     model.SessionState
	messages  []model.Message
	reason    string
	createdAt time.Time
	updatedAt time.Time
}

func newSession(seed []model.Message) *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		createdAt: now,
	}
	s.reseed(seed, now)
	return s
}

func (s *Session) reseed(seed []model.Message, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = seed
	s.state = model.StateAwaitingInput
	s.reason = ""
	s.updatedAt = now
}

// State returns the current dialogue state.
func (s *Session) State() model.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AbortReason returns why the session was aborted, if it was.
func (s *Session) AbortReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// History returns a copy of every message, including system and tool messages.
func (s *Session) History() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Snapshot returns the externally visible view of the session.
func (s *Session) Snapshot() *model.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := make([]model.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Visible() {
			visible = append(visible, m)
		}
	}
	return &model.SessionSnapshot{
		ID:        s.ID,
		State:     s.state,
		Messages:  visible,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) append(msgs ...model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	s.updatedAt = time.Now()
}

func (s *Session) setState(state model.SessionState, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.reason = reason
	s.updatedAt = time.Now()
}

// SessionService handles session lifecycle.
type SessionService struct {
	prompt    *Prompt
	publisher EventPublisher
	logger    *logger.Logger

	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionService creates a session registry. A nil publisher disables
// event publication.
func NewSessionService(prompt *Prompt, publisher EventPublisher, log *logger.Logger) *SessionService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &SessionService{
		prompt:    prompt,
		publisher: publisher,
		logger:    log,
		sessions:  make(map[string]*Session),
	}
}

// Create starts a new seeded session.
func (s *SessionService) Create(ctx context.Context) (*Session, error) {
	sess := newSession(s.prompt.Seed())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	s.logger.Info("session created", zap.String("session_id", sess.ID))
	s.publish(ctx, sess.ID, model.EventTypeCreated, "")

	return sess, nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Reset reseeds a session and clears any abort. It fails while a turn runs.
func (s *SessionService) Reset(ctx context.Context, id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if !sess.turn.TryLock() {
		return nil, ErrTurnInProgress
	}
	defer sess.turn.Unlock()

	sess.reseed(s.prompt.Seed(), time.Now())

	s.logger.Info("session reset", zap.String("session_id", id))
	s.publish(ctx, id, model.EventTypeReset, "")

	return sess, nil
}

// Delete removes a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	metrics.SessionsActive.Dec()
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) publish(ctx context.Context, sessionID string, typ model.EventType, reason string) {
	err := s.publisher.PublishEvent(ctx, &model.SessionEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Type:      typ,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to publish session event",
			zap.String("session_id", sessionID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}
