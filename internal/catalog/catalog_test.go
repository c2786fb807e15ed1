package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

const sampleCatalog = `[
  {"restaurant_id": "r001", "name": "GoodFoods MG Road", "location": {"address": "12 MG Road", "landmark": "Near Metro"},
   "cuisine": ["Italian", "Mediterranean"], "operating_hours": {"open": "11:00", "close": "23:00"},
   "operating_days": ["Monday", "Tuesday"], "phone": "080-1111", "restaurant_max_seating_capacity": 10, "max_booking_party_size": 6},
  {"restaurant_id": "r002", "name": "GoodFoods Indiranagar", "location": {"address": "100ft Road", "landmark": "Indiranagar"},
   "cuisine": ["Asian"], "operating_hours": {"open": "12:00", "close": "24:00"},
   "operating_days": ["Friday"], "phone": "080-2222", "restaurant_max_seating_capacity": 40, "max_booking_party_size": 8}
]`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	r, ok := s.Get("r002")
	require.True(t, ok)
	require.Equal(t, "GoodFoods Indiranagar", r.Name)
	require.Equal(t, 40, r.MaxSeatingCapacity)

	_, ok = s.Get("missing")
	require.False(t, ok)
}

func TestFirstClampsToSize(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, s.First(10), 2)
	require.Len(t, s.First(1), 1)
	require.Equal(t, "r001", s.First(1)[0].ID)
	require.Empty(t, s.First(-1))
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]model.Restaurant{{ID: "r1"}, {ID: "r1"}})
	require.ErrorContains(t, err, "duplicate")

	_, err = New([]model.Restaurant{{Name: "nameless"}})
	require.ErrorContains(t, err, "no restaurant_id")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restaurants.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	s, err := Load(path, logger.Nop())
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	empty, err := Load(filepath.Join(dir, "nope.json"), logger.Nop())
	require.NoError(t, err)
	require.Zero(t, empty.Len())
}
