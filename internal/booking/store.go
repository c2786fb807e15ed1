package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

// View is read access to the order table while the store lock is held.
type View interface {
	Len() int
	SlotTotal(restaurantID, date, time string) int
}

// OrderStore is the shared, durable order table. All mutation goes through
// Transact, which holds a single writer lock across read, append and persist.
type OrderStore struct {
	mu     sync.Mutex
	orders []model.Order
	path   string
}

// NewOrderStore creates a store seeded with orders. An empty path keeps the
// table in memory only.
func NewOrderStore(path string, orders []model.Order) *OrderStore {
	s := &OrderStore{
		orders: make([]model.Order, len(orders)),
		path:   path,
	}
	copy(s.orders, orders)
	return s
}

// OpenOrderStore loads the bookings file. A missing file yields an empty table
// that is created on first commit.
func OpenOrderStore(path string, log *logger.Logger) (*OrderStore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("bookings file not found, starting with empty order table", zap.String("path", path))
		return NewOrderStore(path, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}

	var orders []model.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	log.Info("bookings loaded", zap.String("path", path), zap.Int("orders", len(orders)))
	return NewOrderStore(path, orders), nil
}

// Len returns the number of committed orders.
func (s *OrderStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Orders returns a copy of the committed orders.
func (s *OrderStore) Orders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Read runs fn with a consistent view of the table.
func (s *OrderStore) Read(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(table(s.orders))
}

// Transact runs fn with exclusive access to the table. When fn returns an
// order it is appended and the whole table is persisted. If persisting fails
// the append is undone and the error wraps ErrPersistence.
func (s *OrderStore) Transact(fn func(View) (*model.Order, error)) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := fn(table(s.orders))
	if err != nil || order == nil {
		return nil, err
	}

	s.orders = append(s.orders, *order)
	if err := s.persistLocked(); err != nil {
		s.orders = s.orders[:len(s.orders)-1]
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return order, nil
}

// persistLocked rewrites the whole bookings file through a temp file and
// rename so readers never observe a truncated table.
func (s *OrderStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.orders, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bookings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write bookings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync bookings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close bookings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace bookings: %w", err)
	}

	return nil
}

type table []model.Order

func (t table) Len() int {
	return len(t)
}

// SlotTotal sums party sizes for an exact (restaurant, date, time) slot.
func (t table) SlotTotal(restaurantID, date, time string) int {
	total := 0
	for _, o := range t {
		if o.RestaurantID == restaurantID && o.ReservationDate == date && o.ReservationTime == time {
			total += o.PartySize
		}
	}
	return total
}
