package handler

import (
	"errors"
	"net/http"

	"github.com/goodfoods/reservation-platform/internal/catalog"
	natsclient "github.com/goodfoods/reservation-platform/internal/nats"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func() error
}

// CatalogCheck fails when no restaurants are loaded.
func CatalogCheck(store *catalog.Store) ReadinessCheck {
	return ReadinessCheck{Name: "catalog", Check: func() error {
		if store == nil || store.Len() == 0 {
			return errors.New("no restaurants loaded")
		}
		return nil
	}}
}

// NATSCheck fails while the event publisher is disconnected.
func NATSCheck(client *natsclient.Client) ReadinessCheck {
	return ReadinessCheck{Name: "nats", Check: client.Status}
}

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	checks []ReadinessCheck
}

func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready. Every check must pass.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	status, ready := http.StatusOK, "ready"
	results := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(); err != nil {
			status, ready = http.StatusServiceUnavailable, "not ready"
			results[c.Name] = err.Error()
			continue
		}
		results[c.Name] = "ok"
	}

	writeJSON(w, status, map[string]any{
		"status": ready,
		"checks": results,
	})
}
