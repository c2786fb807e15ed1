// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
	"github.com/goodfoods/reservation-platform/pkg/tracing"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Flush keeps server-sent event streams working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging creates request logging middleware. The correlation id comes from
// the request header, then chi's request id, then a fresh UUID, and is stored
// on the request context for session loggers.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(CorrelationHeader)
			if correlationID == "" {
				correlationID = chimiddleware.GetReqID(r.Context())
			}
			if correlationID == "" {
				correlationID = uuid.NewString()
			}

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			wrapped.Header().Set(CorrelationHeader, correlationID)

			r = r.WithContext(logger.ContextWithCorrelationID(r.Context(), correlationID))

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			log.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Int64("bytes", wrapped.written),
				zap.Duration("duration", duration),
				zap.String("correlation_id", correlationID),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)

			metrics.RecordRequest(r.Method, routePattern(r), strconv.Itoa(wrapped.statusCode), duration.Seconds())
		})
	}
}

// Tracing starts a server span per request.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.Tracer("http").Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", routePattern(r)),
			attribute.Int("http.status_code", wrapped.statusCode),
		)
		if wrapped.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		}
	})
}

// routePattern keeps metric cardinality bounded by labelling with the chi
// route instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
