package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/middleware"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/internal/service"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
)

// Stream handles POST /api/v1/sessions/{sessionID}/stream
// It runs one turn and streams state transitions and tool activity as
// server-sent events, finishing with the reply or an error.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	resp, err := h.orchestrator.Turn(r.Context(), sess, req.Content, func(ev service.TurnEvent) {
		switch ev.Kind {
		case service.EventState:
			sendSSEEvent(w, flusher, "state", &model.StateEvent{State: ev.State})
		case service.EventToolCall:
			sendSSEEvent(w, flusher, "tool_call", ev.ToolCall)
		case service.EventToolResult:
			sendSSEEvent(w, flusher, "tool_result", ev.ToolResult)
		}
	})
	if err != nil {
		_, body := turnError(err)
		h.logger.Warn("streamed turn failed", zap.String("session_id", sess.ID), zap.Error(err))
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    body.Code,
			Message: body.Error,
		})
		sendSSEEvent(w, flusher, "done", map[string]bool{"success": false})
		return
	}

	sendSSEEvent(w, flusher, "message", resp)
	sendSSEEvent(w, flusher, "done", map[string]bool{"success": true})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
