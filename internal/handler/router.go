package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goodfoods/reservation-platform/internal/middleware"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

// RouterConfig holds the request limits applied by the router.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Health       *HealthHandler
	Restaurants  *RestaurantHandler
	Reservations *ReservationHandler
	Sessions     *SessionHandler
}

// NewRouter builds the API router.
func NewRouter(h Handlers, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Peer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Tracing)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Tool backend API, also served to remote dialogue services.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ToolRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/restaurants/search", h.Restaurants.Search)
		r.Post("/reservations", h.Reservations.Create)
	})

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/", h.Sessions.Create)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.Sessions.Get)
			r.Delete("/", h.Sessions.Delete)
			r.Post("/reset", h.Sessions.Reset)
			r.Get("/transcript", h.Sessions.Transcript)

			r.Group(func(r chi.Router) {
				r.Use(middleware.SessionRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
				r.Post("/messages", h.Sessions.Send)
				r.Post("/stream", h.Sessions.Stream)
			})
		})
	})

	return r
}
