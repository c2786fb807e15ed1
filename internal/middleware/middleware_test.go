package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/goodfoods/reservation-platform/pkg/logger"
)

func TestLoggingPropagatesCorrelationID(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(Logging(logger.Nop()))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationHeader, "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "corr-1", seen)
	require.Equal(t, "corr-1", rec.Header().Get(CorrelationHeader))
}

func TestLoggingGeneratesCorrelationID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logging(logger.Nop()))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, rec.Header().Get(CorrelationHeader))
}

func TestSessionRateLimit(t *testing.T) {
	r := chi.NewRouter()
	r.With(SessionRateLimit(2, time.Minute)).Post("/sessions/{sessionID}/messages", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	post := func(id string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/messages", nil))
		return rec.Code
	}

	require.Equal(t, http.StatusOK, post("a"))
	require.Equal(t, http.StatusOK, post("a"))
	require.Equal(t, http.StatusTooManyRequests, post("a"))
	require.Equal(t, http.StatusOK, post("b"))
}

func TestToolRateLimitExemptsLoopback(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Peer)
	r.Use(chimiddleware.RealIP)
	r.Use(ToolRateLimit(1, time.Minute))
	r.Post("/restaurants/search", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(remote string, header map[string]string) int {
		req := httptest.NewRequest(http.MethodPost, "/restaurants/search", nil)
		req.RemoteAddr = remote
		for k, v := range header {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for range 5 {
		require.Equal(t, http.StatusOK, send("127.0.0.1:5555", nil))
		require.Equal(t, http.StatusOK, send("[::1]:5555", nil))
	}

	require.Equal(t, http.StatusOK, send("192.0.2.1:1234", nil))
	require.Equal(t, http.StatusTooManyRequests, send("192.0.2.1:1234", nil))

	// A forwarded loopback address does not earn the exemption.
	spoofed := map[string]string{"X-Real-IP": "127.0.0.1"}
	require.Equal(t, http.StatusOK, send("198.51.100.7:1234", spoofed))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.7:1234", spoofed))
}

func TestValidateMessageContent(t *testing.T) {
	require.NoError(t, ValidateMessageContent("Table for two tonight"))
	require.Error(t, ValidateMessageContent("  \n"))
	require.Error(t, ValidateMessageContent(strings.Repeat("a", MaxMessageLength+1)))
	require.Error(t, ValidateMessageContent(string([]byte{0xff, 0xfe})))
}

func TestValidateSessionID(t *testing.T) {
	require.NoError(t, ValidateSessionID(uuid.NewString()))
	require.Error(t, ValidateSessionID("not-a-uuid"))
}
