package model

// ReservationRequest is a candidate reservation submitted for commit.
type ReservationRequest struct {
	RestaurantID    string `json:"restaurant_id"`
	OrdererName     string `json:"orderer_name"`
	OrdererContact  string `json:"orderer_contact"`
	PartySize       int    `json:"party_size"`
	ReservationDate string `json:"reservation_date"`
	ReservationTime string `json:"reservation_time"`
}

// OrderStatus is the lifecycle status of an order. Orders are never
// modified after creation, so confirmed is the only status.
type OrderStatus string

const OrderStatusConfirmed OrderStatus = "confirmed"

// Order is a committed reservation.
type Order struct {
	OrderID         string      `json:"order_id"`
	RestaurantID    string      `json:"restaurant_id"`
	OrdererName     string      `json:"orderer_name"`
	OrdererContact  string      `json:"orderer_contact"`
	PartySize       int         `json:"party_size"`
	ReservationDate string      `json:"reservation_date"`
	ReservationTime string      `json:"reservation_time"`
	Status          OrderStatus `json:"status"`
}

// ValidationStatus is the outcome of reviewing a reservation request.
type ValidationStatus string

const (
	ValidationComplete ValidationStatus = "complete"
	ValidationInvalid  ValidationStatus = "invalid"
)

// Validation lists the problems found in a reservation request.
type Validation struct {
	Status            ValidationStatus `json:"status"`
	MissingFields     []string         `json:"missing_fields,omitempty"`
	PlaceholderFields []string         `json:"placeholder_fields,omitempty"`
}

// CapacitySnapshot describes slot usage for a restaurant, date and time.
type CapacitySnapshot struct {
	IsWithinCapacity   bool   `json:"is_within_capacity"`
	RestaurantID       string `json:"restaurant_id"`
	MaxCapacity        int    `json:"max_capacity"`
	CurrentTotal       int    `json:"current_total"`
	RequestedPartySize int    `json:"requested_party_size"`
	AvailableCapacity  int    `json:"available_capacity"`
}

// ReservationStatus is the outcome category of a reservation attempt.
type ReservationStatus string

const (
	ReservationSuccess ReservationStatus = "success"
	ReservationError   ReservationStatus = "error"
)

// ReservationResponse is the result of a reservation attempt.
type ReservationResponse struct {
	Status            ReservationStatus `json:"status"`
	Message           string            `json:"message"`
	Order             *Order            `json:"order,omitempty"`
	MissingFields     []string          `json:"missing_fields,omitempty"`
	PlaceholderFields []string          `json:"placeholder_fields,omitempty"`
	CapacityDetails   *CapacitySnapshot `json:"capacity_details,omitempty"`
}
