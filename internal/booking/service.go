// Package booking validates reservation requests, enforces slot capacity and
// commits orders to the shared order table.
package booking

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/catalog"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
	"github.com/goodfoods/reservation-platform/pkg/tracing"
)

var (
	// ErrValidation marks a request with missing or placeholder fields.
	ErrValidation = errors.New("reservation validation failed")
	// ErrCapacityExceeded marks a request the slot cannot seat.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrPersistence marks a commit whose durable write failed. Nothing is booked.
	ErrPersistence = errors.New("failed to persist order")
)

const (
	msgValidationFailed    = "Information validation failed"
	msgCapacityExceeded    = "Capacity exceeded. Please choose a different time slot or reduce party size."
	msgCapacityExceededDbg = "Capacity exceeded. Please choose a different time or reduce party size."
	msgConfirmed           = "Reservation confirmed"
)

// OrderPublisher is notified after an order is durably committed.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, order model.Order) error
}

// Service runs the validate, capacity and commit sequence.
type Service struct {
	store     *OrderStore
	capacity  *CapacityChecker
	publisher OrderPublisher
	logger    *logger.Logger
}

// NewService creates a booking service.
func NewService(catalogStore *catalog.Store, store *OrderStore, log *logger.Logger) *Service {
	metrics.OrdersCommitted.Set(float64(store.Len()))
	return &Service{
		store:    store,
		capacity: NewCapacityChecker(catalogStore),
		logger:   log,
	}
}

// SetPublisher registers a publisher for confirmed orders.
func (s *Service) SetPublisher(p OrderPublisher) {
	s.publisher = p
}

// CheckCapacity returns the current snapshot for a slot.
func (s *Service) CheckCapacity(restaurantID string, partySize int, date, time string) model.CapacitySnapshot {
	var snap model.CapacitySnapshot
	s.store.Read(func(v View) {
		snap = s.capacity.Check(v, restaurantID, partySize, date, time)
	})
	return snap
}

// WithinCapacity reports whether a slot can seat the party.
func (s *Service) WithinCapacity(restaurantID string, partySize int, date, time string) bool {
	return s.CheckCapacity(restaurantID, partySize, date, time).IsWithinCapacity
}

// Reserve validates, checks capacity and commits a reservation under the
// store's writer lock.
//
// Validation and capacity failures return a populated error response together
// with an error wrapping ErrValidation or ErrCapacityExceeded. A failed
// durable write returns a nil response and an error wrapping ErrPersistence.
func (s *Service) Reserve(ctx context.Context, req model.ReservationRequest, debug bool) (*model.ReservationResponse, error) {
	ctx, span := tracing.Tracer("booking").Start(ctx, "booking.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("restaurant_id", req.RestaurantID),
		attribute.Int("party_size", req.PartySize),
	)

	log := s.logger.With(
		zap.String("restaurant_id", req.RestaurantID),
		zap.String("reservation_date", req.ReservationDate),
		zap.String("reservation_time", req.ReservationTime),
		zap.Int("party_size", req.PartySize),
	)

	var resp *model.ReservationResponse
	var outcome error

	order, err := s.store.Transact(func(v View) (*model.Order, error) {
		review := Validate(req)
		if review.Status == model.ValidationInvalid {
			resp = &model.ReservationResponse{
				Status:            model.ReservationError,
				Message:           msgValidationFailed,
				MissingFields:     review.MissingFields,
				PlaceholderFields: review.PlaceholderFields,
			}
			outcome = ErrValidation
			return nil, nil
		}

		snap := s.capacity.Check(v, req.RestaurantID, req.PartySize, req.ReservationDate, req.ReservationTime)
		if !snap.IsWithinCapacity {
			resp = &model.ReservationResponse{
				Status:  model.ReservationError,
				Message: msgCapacityExceeded,
			}
			if debug {
				resp.Message = msgCapacityExceededDbg
				resp.CapacityDetails = &snap
			}
			outcome = ErrCapacityExceeded
			return nil, nil
		}

		return &model.Order{
			OrderID:         fmt.Sprintf("ord%03d", v.Len()+1),
			RestaurantID:    req.RestaurantID,
			OrdererName:     req.OrdererName,
			OrdererContact:  req.OrdererContact,
			PartySize:       req.PartySize,
			ReservationDate: req.ReservationDate,
			ReservationTime: req.ReservationTime,
			Status:          model.OrderStatusConfirmed,
		}, nil
	})

	switch {
	case err != nil:
		log.Error("failed to commit order", zap.Error(err))
		metrics.RecordReservation("persist_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	case errors.Is(outcome, ErrValidation):
		log.Info("reservation rejected by validation",
			zap.Strings("missing_fields", resp.MissingFields),
			zap.Strings("placeholder_fields", resp.PlaceholderFields),
		)
		metrics.RecordReservation("invalid")
		return resp, fmt.Errorf("%w: missing %v, placeholder %v", ErrValidation, resp.MissingFields, resp.PlaceholderFields)
	case errors.Is(outcome, ErrCapacityExceeded):
		log.Info("reservation rejected by capacity")
		metrics.RecordReservation("capacity_exceeded")
		return resp, fmt.Errorf("%w: restaurant %s cannot seat %d", ErrCapacityExceeded, req.RestaurantID, req.PartySize)
	}

	metrics.RecordReservation("success")
	metrics.OrdersCommitted.Set(float64(s.store.Len()))
	log.Info("order confirmed", zap.String("order_id", order.OrderID))
	span.SetAttributes(attribute.String("order_id", order.OrderID))

	if s.publisher != nil {
		if err := s.publisher.PublishOrder(ctx, *order); err != nil {
			log.Warn("failed to publish order", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}

	return &model.ReservationResponse{
		Status:  model.ReservationSuccess,
		Message: msgConfirmed,
		Order:   order,
	}, nil
}

