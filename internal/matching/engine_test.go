package matching

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/goodfoods/reservation-platform/internal/catalog"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
)

var (
	areas    = []string{"Koramangala", "MG Road", "Indiranagar", "Whitefield", "HSR Layout", "Brigade Road"}
	cuisines = [][]string{
		{"Italian", "Mediterranean"},
		{"North Indian", "South Indian"},
		{"Asian", "Chinese"},
		{"Continental"},
		{"American", "Steakhouse"},
		{"Japanese", "Thai"},
	}
)

// testCatalog builds n deterministic restaurants r001..rNNN.
func testCatalog(t testing.TB, n int) *catalog.Store {
	t.Helper()
	restaurants := make([]model.Restaurant, n)
	for i := 0; i < n; i++ {
		restaurants[i] = model.Restaurant{
			ID:   fmt.Sprintf("r%03d", i+1),
			Name: fmt.Sprintf("GoodFoods %s %d", areas[i%len(areas)], i+1),
			Location: model.Location{
				Address:  fmt.Sprintf("%d Main Street, %s", i+1, areas[i%len(areas)]),
				Landmark: fmt.Sprintf("Near %s Metro", areas[(i+1)%len(areas)]),
			},
			Cuisine:             cuisines[i%len(cuisines)],
			OperatingHours:      model.OperatingHours{Open: fmt.Sprintf("%02d:00", 10+i%3), Close: "23:00"},
			OperatingDays:       []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}[:1+i%5],
			Phone:               fmt.Sprintf("080-%04d", i+1),
			MaxSeatingCapacity:  30 + 10*(i%10),
			MaxBookingPartySize: 6 + 2*(i%8),
		}
	}
	store, err := catalog.New(restaurants)
	require.NoError(t, err)
	return store
}

func newEngine(t testing.TB, n int) *Engine {
	return NewEngine(testCatalog(t, n), DefaultLimit, logger.Nop())
}

func TestSearchEmptyCriteria(t *testing.T) {
	e := newEngine(t, 12)

	resp := e.Search(model.SearchCriteria{})
	require.Equal(t, model.SearchStatusEmpty, resp.Status)
	require.Len(t, resp.Restaurants, 10)
	require.Equal(t, "r001", resp.Restaurants[0].ID)
	require.Zero(t, resp.Restaurants[0].MatchCount)
}

func TestSearchFalsyFieldsCountAsEmpty(t *testing.T) {
	e := newEngine(t, 3)

	resp := e.Search(model.SearchCriteria{
		Cuisine:            model.CuisineKeyword(""),
		OperatingHours:     &model.OperatingHours{},
		MaxSeatingCapacity: model.AtLeast(0),
	})
	require.Equal(t, model.SearchStatusEmpty, resp.Status)
	require.Len(t, resp.Restaurants, 3)
}

func TestSearchCuisineList(t *testing.T) {
	store, err := catalog.New([]model.Restaurant{
		{ID: "r001", Name: "One", Cuisine: []string{"Italian"}},
		{ID: "r002", Name: "Two", Cuisine: []string{"Asian", "Thai"}},
		{ID: "r003", Name: "Three", Cuisine: []string{"Continental"}},
	})
	require.NoError(t, err)
	e := NewEngine(store, DefaultLimit, logger.Nop())

	var criteria model.SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"cuisine": ["Asian"]}`), &criteria))

	resp := e.Search(criteria)
	require.Equal(t, model.SearchStatusMatchesFound, resp.Status)
	require.Len(t, resp.Restaurants, 1)
	require.Equal(t, "r002", resp.Restaurants[0].ID)
	require.Equal(t, 1, resp.Restaurants[0].MatchCount)
	require.Equal(t, []string{model.FieldCuisine}, resp.Restaurants[0].MatchedFields)

	// List entries compare case-insensitively.
	resp = e.Search(model.SearchCriteria{Cuisine: model.CuisineList("asian", "CONTINENTAL")})
	require.Equal(t, model.SearchStatusMatchesFound, resp.Status)
	require.Len(t, resp.Restaurants, 2)
	require.Equal(t, "r002", resp.Restaurants[0].ID)
	require.Equal(t, "r003", resp.Restaurants[1].ID)
}

func TestSearchCuisineKeywordIsSubstring(t *testing.T) {
	e := newEngine(t, 6)

	resp := e.Search(model.SearchCriteria{Cuisine: model.CuisineKeyword("indian")})
	require.Equal(t, model.SearchStatusMatchesFound, resp.Status)
	require.Len(t, resp.Restaurants, 1)
	require.Equal(t, "r002", resp.Restaurants[0].ID)
}

func TestSearchLocationMatchesAddressOrLandmark(t *testing.T) {
	e := newEngine(t, 6)

	// r002's address and r001's landmark both mention MG Road.
	resp := e.Search(model.SearchCriteria{Location: "mg road"})
	require.Equal(t, model.SearchStatusMatchesFound, resp.Status)
	ids := []string{}
	for _, r := range resp.Restaurants {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"r001", "r002"}, ids)
}

func TestSearchOperatingHoursAllOrNothing(t *testing.T) {
	store, err := catalog.New([]model.Restaurant{
		{ID: "r001", Name: "A", Cuisine: []string{"Asian"}, OperatingHours: model.OperatingHours{Open: "11:00", Close: "23:00"}},
		{ID: "r002", Name: "B", Cuisine: []string{"Asian"}, OperatingHours: model.OperatingHours{Open: "11:00", Close: "22:00"}},
	})
	require.NoError(t, err)
	e := NewEngine(store, DefaultLimit, logger.Nop())

	results := e.Rank(model.SearchCriteria{
		Cuisine:        model.CuisineKeyword("asian"),
		OperatingHours: &model.OperatingHours{Open: "11:00", Close: "23:00"},
	})
	require.Len(t, results, 2)
	require.Equal(t, "r001", results[0].Restaurant.ID)
	require.Equal(t, 2, results[0].MatchCount)
	// A partial mismatch adds nothing but does not veto.
	require.Equal(t, "r002", results[1].Restaurant.ID)
	require.Equal(t, []string{model.FieldCuisine}, results[1].MatchedFields)
}

func TestSearchCapacityThreshold(t *testing.T) {
	e := newEngine(t, 10)

	results := e.Rank(model.SearchCriteria{MaxSeatingCapacity: model.AtLeast(100)})
	require.Len(t, results, 3)
	for _, r := range results {
		require.GreaterOrEqual(t, r.Restaurant.MaxSeatingCapacity, 100)
	}
}

func TestSearchNonNumericThresholdIsSkipped(t *testing.T) {
	e := newEngine(t, 4)

	var criteria model.SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"max_booking_party_size": "lots"}`), &criteria))
	require.False(t, criteria.IsEmpty())

	resp := e.Search(criteria)
	require.Equal(t, model.SearchStatusNoMatches, resp.Status)
	require.Len(t, resp.Restaurants, 4)
}

func TestSearchNumericStringThreshold(t *testing.T) {
	e := newEngine(t, 4)

	var criteria model.SearchCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"max_booking_party_size": " 10 "}`), &criteria))

	results := e.Rank(criteria)
	require.Len(t, results, 2)
	require.Equal(t, "r003", results[0].Restaurant.ID)
}

func TestSearchGateFieldVetoes(t *testing.T) {
	e := newEngine(t, 6)
	target := e.catalog.All()[2]

	results := e.Rank(model.SearchCriteria{Name: target.Name, Location: "Whitefield"})
	require.Len(t, results, 1)
	require.Equal(t, target.ID, results[0].Restaurant.ID)

	// A matching gate field also counts toward the score.
	results = e.Rank(model.SearchCriteria{Name: target.Name})
	require.Len(t, results, 1)
	require.Equal(t, 1, results[0].MatchCount)
	require.Equal(t, []string{model.FieldName}, results[0].MatchedFields)

	// Matching everything else does not rescue a vetoed entry.
	results = e.Rank(model.SearchCriteria{Phone: "000", Cuisine: model.CuisineKeyword("italian")})
	require.Empty(t, results)
}

func TestSearchNoMatchesFallsBack(t *testing.T) {
	e := newEngine(t, 12)

	resp := e.Search(model.SearchCriteria{Location: "Mysore"})
	require.Equal(t, model.SearchStatusNoMatches, resp.Status)
	require.Len(t, resp.Restaurants, 10)
}

func TestRankPropertyOrderedAndStable(t *testing.T) {
	e := newEngine(t, 30)
	index := map[string]int{}
	for i, r := range e.catalog.All() {
		index[r.ID] = i
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("match counts are non-increasing and ties keep catalog order", prop.ForAll(
		func(location, cuisine, day string, seats, party int) bool {
			criteria := model.SearchCriteria{
				Location:      location,
				Cuisine:       model.CuisineKeyword(cuisine),
				OperatingDays: day,
			}
			if seats > 0 {
				criteria.MaxSeatingCapacity = model.AtLeast(seats)
			}
			if party > 0 {
				criteria.MaxBookingPartySize = model.AtLeast(party)
			}

			results := e.Rank(criteria)
			for i := 1; i < len(results); i++ {
				prev, cur := results[i-1], results[i]
				if prev.MatchCount < cur.MatchCount {
					return false
				}
				if prev.MatchCount == cur.MatchCount && index[prev.Restaurant.ID] > index[cur.Restaurant.ID] {
					return false
				}
				if cur.MatchCount != len(cur.MatchedFields) || cur.MatchCount == 0 {
					return false
				}
			}
			return true
		},
		gen.OneConstOf("", "Koramangala", "mg road", "metro", "Mysore"),
		gen.OneConstOf("", "asian", "Indian", "thai", "Greek"),
		gen.OneConstOf("", "monday", "Friday", "sun"),
		gen.IntRange(0, 130),
		gen.IntRange(0, 22),
	))

	properties.TestingRun(t)
}

func TestEmptyCriteriaPropertyReturnsFirstN(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("empty criteria returns min(10, catalog size) entries", prop.ForAll(
		func(n int) bool {
			resp := newEngine(t, n).Search(model.SearchCriteria{})
			want := n
			if want > DefaultLimit {
				want = DefaultLimit
			}
			return resp.Status == model.SearchStatusEmpty && len(resp.Restaurants) == want
		},
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
