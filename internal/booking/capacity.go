package booking

import (
	"github.com/goodfoods/reservation-platform/internal/catalog"
	"github.com/goodfoods/reservation-platform/internal/model"
)

// CapacityChecker evaluates slot capacity against the catalog.
type CapacityChecker struct {
	catalog *catalog.Store
}

// NewCapacityChecker creates a checker backed by the given catalog.
func NewCapacityChecker(store *catalog.Store) *CapacityChecker {
	return &CapacityChecker{catalog: store}
}

// Check computes the slot snapshot for a request. An unknown restaurant has
// zero seating capacity and is never within capacity.
func (c *CapacityChecker) Check(v View, restaurantID string, partySize int, date, time string) model.CapacitySnapshot {
	maxCapacity := 0
	known := false
	if r, ok := c.catalog.Get(restaurantID); ok {
		maxCapacity = r.MaxSeatingCapacity
		known = true
	}

	current := v.SlotTotal(restaurantID, date, time)

	return model.CapacitySnapshot{
		IsWithinCapacity:   known && current+partySize <= maxCapacity,
		RestaurantID:       restaurantID,
		MaxCapacity:        maxCapacity,
		CurrentTotal:       current,
		RequestedPartySize: partySize,
		AvailableCapacity:  maxCapacity - current,
	}
}
