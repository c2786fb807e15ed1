package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goodfoods/reservation-platform/internal/llm"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/internal/tools"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	errs      []error
	requests  []*llm.CompletionRequest
	block     chan struct{}
}

func (s *scriptedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.responses) {
		return nil, errors.New("no scripted response")
	}
	return s.responses[i], nil
}

func (s *scriptedLLM) Name() string     { return "scripted" }
func (s *scriptedLLM) Models() []string { return nil }

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []model.ToolCall
	err   error
}

func (f *fakeDispatcher) Definitions() []tools.Definition {
	return tools.Definitions()
}

func (f *fakeDispatcher) Dispatch(_ context.Context, call model.ToolCall) (tools.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.err != nil {
		return tools.Result{}, f.err
	}
	return tools.Result{
		CallID:  call.ID,
		Name:    call.Name,
		Content: `{"result":"` + call.Name + `"}`,
	}, nil
}

type recordingEvents struct {
	mu       sync.Mutex
	messages []model.Message
	events   []*model.SessionEvent
}

func (r *recordingEvents) PublishMessage(_ context.Context, _ string, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingEvents) PublishEvent(_ context.Context, event *model.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func fixedPrompt() *Prompt {
	p := DefaultPrompt()
	p.Now = func() time.Time { return time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC) }
	return p
}

func newHarness(t *testing.T, client llm.Client, dispatcher Dispatcher, rounds int) (*SessionService, *Orchestrator, *recordingEvents, *Session) {
	t.Helper()
	events := &recordingEvents{}
	sessions := NewSessionService(fixedPrompt(), events, logger.Nop())
	orch := NewOrchestrator(client, dispatcher, events, OrchestratorConfig{
		Model:         "test-model",
		MaxTokens:     256,
		MaxToolRounds: rounds,
		TurnTimeout:   time.Second,
	}, logger.Nop())

	sess, err := sessions.Create(context.Background())
	require.NoError(t, err)
	return sessions, orch, events, sess
}

func searchCall(id string) model.ToolCall {
	return model.ToolCall{
		ID:        id,
		Name:      tools.LookupDiningOptions,
		Arguments: json.RawMessage(`{"location":"Indiranagar"}`),
	}
}

func TestTurnDirectReply(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{{Content: "Which area would you like?"}}}
	_, orch, events, sess := newHarness(t, client, &fakeDispatcher{}, 1)

	var states []model.SessionState
	resp, err := orch.Turn(context.Background(), sess, "I want dinner", func(ev TurnEvent) {
		if ev.Kind == EventState {
			states = append(states, ev.State)
		}
	})
	require.NoError(t, err)
	require.Equal(t, "Which area would you like?", resp.Reply)
	require.Equal(t, model.StateAwaitingInput, resp.State)
	require.Zero(t, resp.ToolRounds)
	require.Equal(t, []model.SessionState{
		model.StateCompletionPending,
		model.StateDirectResponse,
		model.StateAwaitingInput,
	}, states)

	require.Len(t, client.requests, 1)
	require.Equal(t, llm.ToolChoiceAuto, client.requests[0].ToolChoice)
	require.Len(t, client.requests[0].Tools, 2)
	require.Equal(t, "test-model", client.requests[0].Model)

	history := sess.History()
	require.Len(t, history, 4)
	require.Equal(t, model.RoleUser, history[2].Role)
	require.Equal(t, model.RoleAssistant, history[3].Role)
	require.Len(t, events.messages, 2)
}

func TestTurnToolRoundThenFollowUpWithoutTools(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{ToolCalls: []model.ToolCall{searchCall("call_1"), searchCall("call_2")}},
		{Content: "Here are two places in Indiranagar."},
	}}
	dispatcher := &fakeDispatcher{}
	_, orch, _, sess := newHarness(t, client, dispatcher, 1)

	var kinds []EventKind
	resp, err := orch.Turn(context.Background(), sess, "Somewhere in Indiranagar", func(ev TurnEvent) {
		if ev.Kind != EventState {
			kinds = append(kinds, ev.Kind)
		}
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.ToolRounds)
	require.Equal(t, "Here are two places in Indiranagar.", resp.Reply)
	require.Equal(t, []EventKind{EventToolCall, EventToolResult, EventToolCall, EventToolResult}, kinds)

	require.Len(t, client.requests, 2)
	require.Equal(t, llm.ToolChoiceNone, client.requests[1].ToolChoice)

	// The follow-up sees the assistant call message and one result per call, in order.
	followUp := client.requests[1].Messages
	require.Len(t, followUp, 6)
	require.Len(t, followUp[3].ToolCalls, 2)
	require.Equal(t, "call_1", followUp[4].ToolCallID)
	require.Equal(t, "call_2", followUp[5].ToolCallID)
	require.Equal(t, model.RoleTool, followUp[5].Role)

	snap := sess.Snapshot()
	require.Len(t, snap.Messages, 3)
	require.Equal(t, "Here are two places in Indiranagar.", snap.Messages[2].Content)
}

func TestTurnBoundsToolRounds(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{ToolCalls: []model.ToolCall{searchCall("a")}},
		{ToolCalls: []model.ToolCall{searchCall("b")}},
		{Content: "Done."},
	}}
	dispatcher := &fakeDispatcher{}
	_, orch, _, sess := newHarness(t, client, dispatcher, 2)

	resp, err := orch.Turn(context.Background(), sess, "find me a table", nil)
	require.NoError(t, err)
	require.Equal(t, 2, resp.ToolRounds)
	require.Len(t, dispatcher.calls, 2)
	require.Equal(t, llm.ToolChoiceAuto, client.requests[1].ToolChoice)
	require.Equal(t, llm.ToolChoiceNone, client.requests[2].ToolChoice)
}

func TestTurnIgnoresToolCallsWhenToolsDisabled(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{ToolCalls: []model.ToolCall{searchCall("a")}},
		{Content: "Let me know.", ToolCalls: []model.ToolCall{searchCall("b")}},
	}}
	dispatcher := &fakeDispatcher{}
	_, orch, _, sess := newHarness(t, client, dispatcher, 1)

	resp, err := orch.Turn(context.Background(), sess, "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "Let me know.", resp.Reply)
	require.Len(t, dispatcher.calls, 1)
}

func TestTurnAssignsMissingCallIDs(t *testing.T) {
	call := searchCall("")
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{ToolCalls: []model.ToolCall{call}},
		{Content: "ok"},
	}}
	_, orch, _, sess := newHarness(t, client, &fakeDispatcher{}, 1)

	_, err := orch.Turn(context.Background(), sess, "hi", nil)
	require.NoError(t, err)

	history := sess.History()
	id := history[3].ToolCalls[0].ID
	require.NotEmpty(t, id)
	require.Equal(t, id, history[4].ToolCallID)
}

func TestTurnSimulationAbortsSession(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{Content: `Sure! confirm_table_booking(restaurant_id="r001")`},
	}}
	sessions, orch, events, sess := newHarness(t, client, &fakeDispatcher{}, 1)

	_, err := orch.Turn(context.Background(), sess, "book it", nil)
	require.ErrorIs(t, err, ErrFunctionSimulation)
	require.Equal(t, model.StateAborted, sess.State())
	require.Contains(t, events.types(), model.EventTypeSimulation)

	// The simulated reply never reaches the conversation.
	history := sess.History()
	require.Len(t, history, 3)
	require.Equal(t, model.RoleUser, history[2].Role)

	_, err = orch.Turn(context.Background(), sess, "hello?", nil)
	require.ErrorIs(t, err, ErrSessionAborted)

	_, err = sessions.Reset(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateAwaitingInput, sess.State())
	require.Len(t, sess.History(), 2)
}

func TestTurnUpstreamFailureAborts(t *testing.T) {
	client := &scriptedLLM{errs: []error{errors.New("502 bad gateway")}}
	_, orch, events, sess := newHarness(t, client, &fakeDispatcher{}, 1)

	_, err := orch.Turn(context.Background(), sess, "hi", nil)
	require.ErrorIs(t, err, ErrUpstream)
	require.Equal(t, model.StateAborted, sess.State())
	require.Contains(t, sess.AbortReason(), "502")
	require.Contains(t, events.types(), model.EventTypeUpstream)
}

func TestTurnDispatchFailureLeavesNoPartialRound(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{ToolCalls: []model.ToolCall{searchCall("a")}},
	}}
	dispatcher := &fakeDispatcher{err: errors.New("connection reset")}
	_, orch, events, sess := newHarness(t, client, dispatcher, 1)

	_, err := orch.Turn(context.Background(), sess, "hi", nil)
	require.ErrorIs(t, err, ErrUpstream)
	require.Equal(t, model.StateAborted, sess.State())
	require.Len(t, sess.History(), 3)
	require.Contains(t, events.types(), model.EventTypeUpstream)
}

func TestTurnCancelledDuringToolRoundKeepsSessionOpen(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{ToolCalls: []model.ToolCall{searchCall("a")}},
		{Content: "Where would you like to eat?"},
	}}
	dispatcher := &fakeDispatcher{err: context.Canceled}
	_, orch, events, sess := newHarness(t, client, dispatcher, 1)

	_, err := orch.Turn(context.Background(), sess, "hi", nil)
	require.ErrorIs(t, err, ErrTurnCancelled)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrUpstream)
	require.Equal(t, model.StateAwaitingInput, sess.State())
	require.Empty(t, sess.AbortReason())
	require.Contains(t, events.types(), model.EventTypeCancelled)
	require.NotContains(t, events.types(), model.EventTypeTimeout)

	// Only the user message was kept; the tool round was dropped whole.
	history := sess.History()
	require.Len(t, history, 3)
	require.Equal(t, model.RoleUser, history[2].Role)

	resp, err := orch.Turn(context.Background(), sess, "hi again", nil)
	require.NoError(t, err)
	require.Equal(t, "Where would you like to eat?", resp.Reply)
	require.Equal(t, model.StateAwaitingInput, sess.State())
}

func TestTurnCallerCancelDuringCompletion(t *testing.T) {
	client := &scriptedLLM{block: make(chan struct{})}
	_, orch, events, sess := newHarness(t, client, &fakeDispatcher{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Turn(ctx, sess, "hi", nil)
	require.ErrorIs(t, err, ErrTurnCancelled)
	require.Equal(t, model.StateAwaitingInput, sess.State())
	require.Len(t, sess.History(), 3)
	require.NotContains(t, events.types(), model.EventTypeUpstream)
}

func TestTurnTimeout(t *testing.T) {
	client := &scriptedLLM{block: make(chan struct{})}
	events := &recordingEvents{}
	sessions := NewSessionService(fixedPrompt(), events, logger.Nop())
	orch := NewOrchestrator(client, &fakeDispatcher{}, events, OrchestratorConfig{
		TurnTimeout: 20 * time.Millisecond,
	}, logger.Nop())
	sess, err := sessions.Create(context.Background())
	require.NoError(t, err)

	_, err = orch.Turn(context.Background(), sess, "hi", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, model.StateAborted, sess.State())
}

func TestTurnRejectsConcurrentTurn(t *testing.T) {
	client := &scriptedLLM{
		block:     make(chan struct{}),
		responses: []*llm.CompletionResponse{{Content: "first"}},
	}
	sessions, orch, _, sess := newHarness(t, client, &fakeDispatcher{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := orch.Turn(context.Background(), sess, "one", nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return sess.State() == model.StateCompletionPending
	}, time.Second, time.Millisecond)

	_, err := orch.Turn(context.Background(), sess, "two", nil)
	require.ErrorIs(t, err, ErrTurnInProgress)

	_, err = sessions.Reset(context.Background(), sess.ID)
	require.ErrorIs(t, err, ErrTurnInProgress)

	close(client.block)
	require.NoError(t, <-done)
}

func TestTurnRejectsEmptyMessage(t *testing.T) {
	_, orch, _, sess := newHarness(t, &scriptedLLM{}, &fakeDispatcher{}, 1)

	_, err := orch.Turn(context.Background(), sess, "   ", nil)
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.Len(t, sess.History(), 2)
}
