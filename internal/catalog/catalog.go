// Package catalog holds the read-only restaurant catalog.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

// Store is an immutable, ordered collection of restaurants. It is safe for
// concurrent use because nothing mutates it after construction.
type Store struct {
	restaurants []model.Restaurant
	byID        map[string]int
}

// New builds a store from restaurants in catalog order.
func New(restaurants []model.Restaurant) (*Store, error) {
	s := &Store{
		restaurants: make([]model.Restaurant, len(restaurants)),
		byID:        make(map[string]int, len(restaurants)),
	}
	copy(s.restaurants, restaurants)

	for i, r := range s.restaurants {
		if r.ID == "" {
			return nil, fmt.Errorf("restaurant at index %d has no restaurant_id", i)
		}
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate restaurant_id %q", r.ID)
		}
		s.byID[r.ID] = i
	}

	return s, nil
}

// Decode reads a JSON array of restaurants.
func Decode(r io.Reader) (*Store, error) {
	var restaurants []model.Restaurant
	if err := json.NewDecoder(r).Decode(&restaurants); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(restaurants)
}

// Load reads the catalog file once. A missing file yields an empty catalog.
func Load(path string, log *logger.Logger) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Error("catalog file not found, starting with empty catalog", zap.String("path", path))
		return New(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, err
	}

	log.Info("catalog loaded", zap.String("path", path), zap.Int("restaurants", s.Len()))
	return s, nil
}

// Len returns the number of restaurants.
func (s *Store) Len() int {
	return len(s.restaurants)
}

// All returns the restaurants in catalog order. Callers must not modify
// the returned slice.
func (s *Store) All() []model.Restaurant {
	return s.restaurants
}

// First returns up to n restaurants in catalog order.
func (s *Store) First(n int) []model.Restaurant {
	if n > len(s.restaurants) {
		n = len(s.restaurants)
	}
	if n < 0 {
		n = 0
	}
	return s.restaurants[:n]
}

// Get looks a restaurant up by id.
func (s *Store) Get(id string) (model.Restaurant, bool) {
	i, ok := s.byID[id]
	if !ok {
		return model.Restaurant{}, false
	}
	return s.restaurants[i], true
}
