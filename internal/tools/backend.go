package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goodfoods/reservation-platform/internal/booking"
	"github.com/goodfoods/reservation-platform/internal/matching"
	"github.com/goodfoods/reservation-platform/internal/model"
)

// Backend executes decoded tool requests.
type Backend interface {
	LookupDiningOptions(ctx context.Context, criteria model.SearchCriteria) (*model.SearchResponse, error)
	ConfirmTableBooking(ctx context.Context, req model.ReservationRequest) (*model.ReservationResponse, error)
}

// LocalBackend runs tools against the in-process engines.
type LocalBackend struct {
	engine        *matching.Engine
	bookings      *booking.Service
	capacityDebug bool
}

// NewLocalBackend creates a backend over the matching engine and booking service.
func NewLocalBackend(engine *matching.Engine, bookings *booking.Service, capacityDebug bool) *LocalBackend {
	return &LocalBackend{
		engine:        engine,
		bookings:      bookings,
		capacityDebug: capacityDebug,
	}
}

// LookupDiningOptions searches the catalog.
func (b *LocalBackend) LookupDiningOptions(_ context.Context, criteria model.SearchCriteria) (*model.SearchResponse, error) {
	return b.engine.Search(criteria), nil
}

// ConfirmTableBooking commits a reservation. Validation and capacity
// failures are returned as data; only a failed commit is an error.
func (b *LocalBackend) ConfirmTableBooking(ctx context.Context, req model.ReservationRequest) (*model.ReservationResponse, error) {
	resp, err := b.bookings.Reserve(ctx, req, b.capacityDebug)
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// HTTPBackend runs tools by calling the reservation REST API.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend for the API rooted at baseURL.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// LookupDiningOptions calls POST /restaurants/search.
func (b *HTTPBackend) LookupDiningOptions(ctx context.Context, criteria model.SearchCriteria) (*model.SearchResponse, error) {
	var out model.SearchResponse
	if err := b.post(ctx, "/restaurants/search", criteria, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmTableBooking calls POST /reservations. A 400 carries a structured
// rejection and is decoded like a success.
func (b *HTTPBackend) ConfirmTableBooking(ctx context.Context, req model.ReservationRequest) (*model.ReservationResponse, error) {
	var out model.ReservationResponse
	if err := b.post(ctx, "/reservations", req, &out, http.StatusOK, http.StatusBadRequest); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, in, out any, accept ...int) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	accepted := false
	for _, code := range accept {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
