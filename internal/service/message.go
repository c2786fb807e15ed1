package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/llm"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/internal/tools"
	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
	"github.com/goodfoods/reservation-platform/pkg/tracing"
)

var (
	// ErrUpstream marks a failed completion or an interrupted tool round.
	ErrUpstream = errors.New("upstream service failure")
	// ErrFunctionSimulation marks a reply that wrote a tool call as text.
	ErrFunctionSimulation = errors.New("function simulation detected")
	// ErrTurnCancelled marks a turn dropped because its caller went away.
	ErrTurnCancelled = errors.New("turn cancelled")
)

// Dispatcher runs tool calls for the orchestrator.
type Dispatcher interface {
	Definitions() []tools.Definition
	Dispatch(ctx context.Context, call model.ToolCall) (tools.Result, error)
}

// EventKind identifies a turn event.
type EventKind string

const (
	EventState      EventKind = "state"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
)

// TurnEvent reports progress within a turn.
type TurnEvent struct {
	Kind       EventKind
	State      model.SessionState
	ToolCall   *model.ToolCallEvent
	ToolResult *model.ToolResultEvent
}

// Observer receives turn events. It is called synchronously from the turn.
type Observer func(TurnEvent)

// OrchestratorConfig tunes the turn loop.
type OrchestratorConfig struct {
	Model         string
	MaxTokens     int
	MaxToolRounds int
	TurnTimeout   time.Duration
}

// Orchestrator runs dialogue turns.
type Orchestrator struct {
	llm        llm.Client
	dispatcher Dispatcher
	detector   *SimulationDetector
	publisher  EventPublisher
	config     OrchestratorConfig
	logger     *logger.Logger
}

// NewOrchestrator creates a turn orchestrator. A nil publisher disables
// event publication.
func NewOrchestrator(client llm.Client, dispatcher Dispatcher, publisher EventPublisher, cfg OrchestratorConfig, log *logger.Logger) *Orchestrator {
	if cfg.MaxToolRounds < 1 {
		cfg.MaxToolRounds = 1
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}

	names := make([]string, 0, 2)
	for _, def := range dispatcher.Definitions() {
		names = append(names, def.Name)
	}

	return &Orchestrator{
		llm:        client,
		dispatcher: dispatcher,
		detector:   NewSimulationDetector(names...),
		publisher:  publisher,
		config:     cfg,
		logger:     log,
	}
}

// Turn processes one user message. Only one turn may run per session; the
// session must not be aborted. Completion failures, turn timeouts and
// simulated tool calls abort the session until it is reset. A cancelled ctx
// ends the turn with ErrTurnCancelled and leaves the session awaiting input.
func (o *Orchestrator) Turn(ctx context.Context, sess *Session, text string, observe Observer) (*model.TurnResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if !sess.turn.TryLock() {
		metrics.RecordTurn("busy")
		return nil, ErrTurnInProgress
	}
	defer sess.turn.Unlock()

	if sess.State() == model.StateAborted {
		metrics.RecordTurn("rejected")
		return nil, ErrSessionAborted
	}

	if observe == nil {
		observe = func(TurnEvent) {}
	}
	if o.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.TurnTimeout)
		defer cancel()
	}

	ctx, span := tracing.Tracer("service").Start(ctx, "service.Turn")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sess.ID))

	log := o.logger.WithSession(sess.ID, logger.CorrelationID(ctx))

	t := &turn{
		o:       o,
		sess:    sess,
		observe: observe,
		log:     log,
	}

	t.append(ctx, model.Message{Role: model.RoleUser, Content: text, CreatedAt: time.Now()})

	resp, err := t.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("tool_rounds", resp.ToolRounds))
	return resp, nil
}

type turn struct {
	o       *Orchestrator
	sess    *Session
	observe Observer
	log     *logger.Logger
}

func (t *turn) run(ctx context.Context) (*model.TurnResponse, error) {
	defs := t.o.dispatcher.Definitions()
	toolDefs := make([]llm.ToolDefinition, 0, len(defs))
	for _, def := range defs {
		toolDefs = append(toolDefs, llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Schema:      def.Schema,
		})
	}

	rounds := 0
	choice := llm.ToolChoiceAuto

	for {
		t.transition(model.StateCompletionPending)

		resp, err := t.o.llm.Complete(ctx, &llm.CompletionRequest{
			Model:      t.o.config.Model,
			Messages:   t.sess.History(),
			Tools:      toolDefs,
			ToolChoice: choice,
			MaxTokens:  t.o.config.MaxTokens,
		})
		if err != nil {
			return nil, t.abort(ctx, err)
		}

		if len(resp.ToolCalls) == 0 || choice == llm.ToolChoiceNone {
			if len(resp.ToolCalls) > 0 {
				t.log.Warn("ignoring tool calls from a tools-disabled completion", zap.Int("tool_calls", len(resp.ToolCalls)))
			}
			return t.reply(ctx, resp.Content, rounds)
		}

		rounds++
		t.transition(model.StateToolRound)
		t.log.Info("tool round", zap.Int("round", rounds), zap.Int("tool_calls", len(resp.ToolCalls)))

		msgs, err := t.dispatch(ctx, resp)
		if err != nil {
			return nil, t.abort(ctx, err)
		}
		t.append(ctx, msgs...)

		if rounds >= t.o.config.MaxToolRounds {
			choice = llm.ToolChoiceNone
		}
	}
}

// dispatch runs every call in order and returns the assistant message that
// requested them followed by one tool message per call. Nothing is appended
// here so an interrupted round leaves the conversation untouched.
func (t *turn) dispatch(ctx context.Context, resp *llm.CompletionResponse) ([]model.Message, error) {
	msgs := make([]model.Message, 0, len(resp.ToolCalls)+1)
	msgs = append(msgs, model.Message{
		Role:      model.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		CreatedAt: time.Now(),
	})

	for _, call := range resp.ToolCalls {
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		t.observe(TurnEvent{Kind: EventToolCall, ToolCall: &model.ToolCallEvent{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
		}})

		res, err := t.o.dispatcher.Dispatch(ctx, call)
		if err != nil {
			return nil, err
		}

		t.observe(TurnEvent{Kind: EventToolResult, ToolResult: &model.ToolResultEvent{
			ID:      res.CallID,
			Name:    res.Name,
			Content: res.Content,
			IsError: res.IsError,
		}})

		msgs = append(msgs, model.Message{
			Role:       model.RoleTool,
			Content:    res.Content,
			ToolCallID: call.ID,
			Name:       call.Name,
			IsError:    res.IsError,
			CreatedAt:  time.Now(),
		})
	}

	// Calls given a fresh id above must carry it on the assistant message too.
	calls := make([]model.ToolCall, len(resp.ToolCalls))
	for i := range resp.ToolCalls {
		calls[i] = resp.ToolCalls[i]
		calls[i].ID = msgs[i+1].ToolCallID
	}
	msgs[0].ToolCalls = calls

	return msgs, nil
}

func (t *turn) reply(ctx context.Context, content string, rounds int) (*model.TurnResponse, error) {
	t.transition(model.StateDirectResponse)

	if t.o.detector.Detect(content) {
		t.log.Warn("function simulation detected", zap.String("reply_prefix", prefix(content, 100)))
		t.sess.setState(model.StateAborted, ErrFunctionSimulation.Error())
		t.observe(TurnEvent{Kind: EventState, State: model.StateAborted})
		t.o.event(ctx, t.sess.ID, model.EventTypeSimulation, prefix(content, 200), t.log)
		metrics.RecordTurn("simulation")
		return nil, ErrFunctionSimulation
	}

	t.append(ctx, model.Message{Role: model.RoleAssistant, Content: content, CreatedAt: time.Now()})
	t.transition(model.StateAwaitingInput)

	outcome := "direct"
	if rounds > 0 {
		outcome = "tool"
	}
	metrics.RecordTurn(outcome)
	t.log.Info("turn completed", zap.Int("tool_rounds", rounds))

	return &model.TurnResponse{
		SessionID:  t.sess.ID,
		Reply:      content,
		State:      model.StateAwaitingInput,
		ToolRounds: rounds,
	}, nil
}

func (t *turn) abort(ctx context.Context, cause error) error {
	// A caller that goes away ends the turn only. The session keeps the user
	// message and accepts the next one.
	cancelled := errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
	if cancelled && !errors.Is(cause, context.DeadlineExceeded) {
		t.log.Warn("turn cancelled", zap.Error(cause))
		t.transition(model.StateAwaitingInput)
		t.o.event(context.WithoutCancel(ctx), t.sess.ID, model.EventTypeCancelled, cause.Error(), t.log)
		metrics.RecordTurn("cancelled")
		return fmt.Errorf("%w: %w", ErrTurnCancelled, cause)
	}

	typ := model.EventTypeUpstream
	outcome := "upstream_error"
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		typ = model.EventTypeTimeout
		outcome = "timeout"
	}

	t.log.Error("turn aborted", zap.String("type", string(typ)), zap.Error(cause))
	t.sess.setState(model.StateAborted, cause.Error())
	t.observe(TurnEvent{Kind: EventState, State: model.StateAborted})
	// ctx may already be done; the event is still worth recording.
	t.o.event(context.WithoutCancel(ctx), t.sess.ID, typ, cause.Error(), t.log)
	metrics.RecordTurn(outcome)

	return fmt.Errorf("%w: %w", ErrUpstream, cause)
}

func (t *turn) transition(state model.SessionState) {
	t.sess.setState(state, "")
	t.observe(TurnEvent{Kind: EventState, State: state})
}

func (t *turn) append(ctx context.Context, msgs ...model.Message) {
	t.sess.append(msgs...)
	for _, m := range msgs {
		if err := t.o.publisher.PublishMessage(ctx, t.sess.ID, m); err != nil {
			t.log.Warn("failed to publish message", zap.String("role", string(m.Role)), zap.Error(err))
		}
	}
}

func (o *Orchestrator) event(ctx context.Context, sessionID string, typ model.EventType, reason string, log *logger.Logger) {
	err := o.publisher.PublishEvent(ctx, &model.SessionEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Type:      typ,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Warn("failed to publish session event", zap.String("type", string(typ)), zap.Error(err))
	}
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
