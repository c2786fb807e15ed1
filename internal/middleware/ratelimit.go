package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// RateLimit limits requests per client IP.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded),
	)
}

type peerKey struct{}

// Peer records the connection's remote address before proxy headers can
// rewrite it. Mount it ahead of chi's RealIP.
func Peer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ToolRateLimit limits tool API requests per client IP. Loopback peers are
// exempt: an in-host dialogue service configured with TOOL_BACKEND_URL issues
// every user's tool calls from one address.
func ToolRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	limit := RateLimit(requestLimit, windowLength)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loopbackPeer(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func loopbackPeer(r *http.Request) bool {
	addr, ok := r.Context().Value(peerKey{}).(string)
	if !ok {
		addr = r.RemoteAddr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip, err := netip.ParseAddr(host)
	return err == nil && ip.IsLoopback()
}

// SessionRateLimit limits requests per session. It must be mounted on a
// route that binds the sessionID parameter.
func SessionRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id := chi.URLParam(r, "sessionID"); id != "" {
				return "session:" + id, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

func limitExceeded(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded","retry_after":60}`))
}
