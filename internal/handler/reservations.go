package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/booking"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

// ReservationHandler commits reservations.
type ReservationHandler struct {
	bookings      *booking.Service
	capacityDebug bool
	logger        *logger.Logger
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(bookings *booking.Service, capacityDebug bool, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		bookings:      bookings,
		capacityDebug: capacityDebug,
		logger:        log,
	}
}

// Create handles POST /reservations. Rejected reservations are answered
// with 400 and the full response body so callers can read the reason.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ReservationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.bookings.Reserve(r.Context(), req, h.capacityDebug)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, booking.ErrPersistence):
		h.logger.Error("failed to persist reservation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist reservation")
	case resp != nil:
		writeJSON(w, http.StatusBadRequest, resp)
	default:
		h.logger.Error("reservation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reservation failed")
	}
}
