package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/middleware"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/internal/service"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

// TranscriptReader replays published session messages.
type TranscriptReader interface {
	SessionMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

// SessionHandler handles dialogue session endpoints.
type SessionHandler struct {
	sessions     *service.SessionService
	orchestrator *service.Orchestrator
	transcripts  TranscriptReader
	logger       *logger.Logger
}

// NewSessionHandler creates a new session handler. transcripts may be nil
// when NATS publishing is disabled.
func NewSessionHandler(
	sessions *service.SessionService,
	orchestrator *service.Orchestrator,
	transcripts TranscriptReader,
	log *logger.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
		transcripts:  transcripts,
		logger:       log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// Get handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// Send handles POST /api/v1/sessions/{sessionID}/messages
func (h *SessionHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	resp, err := h.orchestrator.Turn(r.Context(), sess, req.Content, nil)
	if err != nil {
		status, body := turnError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("turn failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Reset handles POST /api/v1/sessions/{sessionID}/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Reset(r.Context(), id)
	if err != nil {
		status, body := turnError(err)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// Delete handles DELETE /api/v1/sessions/{sessionID}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Transcript handles GET /api/v1/sessions/{sessionID}/transcript
// Supports ?limit=N, default 100.
func (h *SessionHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	if h.transcripts == nil {
		writeError(w, http.StatusNotImplemented, "transcripts are not enabled")
		return
	}

	id := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	messages, err := h.transcripts.SessionMessages(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to read transcript", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   messages,
	})
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// turnError maps service errors onto HTTP statuses and error bodies.
func turnError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: "session_not_found"}
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "empty_message"}
	case errors.Is(err, service.ErrTurnInProgress):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "turn_in_progress"}
	case errors.Is(err, service.ErrSessionAborted):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "session_aborted", Message: service.RestartMessage}
	case errors.Is(err, service.ErrFunctionSimulation):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "function_simulation", Message: service.RestartMessage}
	case errors.Is(err, service.ErrTurnCancelled):
		return http.StatusRequestTimeout, errorResponse{Error: err.Error(), Code: "turn_cancelled"}
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, errorResponse{Error: "completion service failure", Code: "upstream_error", Message: service.RestartMessage}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "internal"}
	}
}
