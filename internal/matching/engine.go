// Package matching scores and ranks catalog restaurants against partial
// search criteria.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goodfoods/reservation-platform/internal/catalog"
	"github.com/goodfoods/reservation-platform/internal/model"
	"github.com/goodfoods/reservation-platform/pkg/logger"
	"github.com/goodfoods/reservation-platform/pkg/metrics"
)

// DefaultLimit is the number of catalog entries returned when a search has
// no criteria or nothing matches.
const DefaultLimit = 10

const (
	emptyMessage   = "Since the query was empty, here are some top most preferred options. Collect additional info from user to match."
	noMatchMessage = "No matching restaurants found. Here are some top most preferred options. Collect additional info from user to match."
)

// Result is the score of one restaurant against a query.
type Result struct {
	Restaurant    model.Restaurant
	MatchCount    int
	MatchedFields []string
}

// Engine ranks catalog entries. It holds no mutable state.
type Engine struct {
	catalog *catalog.Store
	limit   int
	logger  *logger.Logger
}

// NewEngine creates a matching engine over the catalog.
func NewEngine(store *catalog.Store, limit int, log *logger.Logger) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{
		catalog: store,
		limit:   limit,
		logger:  log,
	}
}

// Search runs criteria against the catalog and shapes the response.
func (e *Engine) Search(criteria model.SearchCriteria) *model.SearchResponse {
	if criteria.IsEmpty() {
		e.logger.Debug("empty search criteria, returning top restaurants")
		metrics.SearchesTotal.WithLabelValues(string(model.SearchStatusEmpty)).Inc()
		return &model.SearchResponse{
			Status:      model.SearchStatusEmpty,
			Message:     emptyMessage,
			Restaurants: plain(e.catalog.First(e.limit)),
		}
	}

	results := e.Rank(criteria)
	if len(results) == 0 {
		e.logger.Debug("no restaurants matched, returning top restaurants")
		metrics.SearchesTotal.WithLabelValues(string(model.SearchStatusNoMatches)).Inc()
		return &model.SearchResponse{
			Status:      model.SearchStatusNoMatches,
			Message:     noMatchMessage,
			Restaurants: plain(e.catalog.First(e.limit)),
		}
	}

	matches := make([]model.RestaurantMatch, len(results))
	for i, r := range results {
		matches[i] = model.RestaurantMatch{
			Restaurant:    r.Restaurant,
			MatchedFields: r.MatchedFields,
			MatchCount:    r.MatchCount,
		}
	}

	e.logger.Debug("restaurants matched", zap.Int("matches", len(matches)))
	metrics.SearchesTotal.WithLabelValues(string(model.SearchStatusMatchesFound)).Inc()
	return &model.SearchResponse{
		Status:      model.SearchStatusMatchesFound,
		Message:     fmt.Sprintf("Found %d restaurants matching your criteria.", len(matches)),
		Restaurants: matches,
	}
}

// Rank scores every catalog entry and returns those with at least one
// matched field, ordered by match count descending. Ties keep catalog order.
func (e *Engine) Rank(criteria model.SearchCriteria) []Result {
	if t := criteria.MaxSeatingCapacity; t != nil && !t.IsZero() && !t.Valid {
		e.logger.Info("skipping non-numeric capacity criterion",
			zap.String("field", model.FieldMaxSeatingCapacity), zap.String("value", t.Raw))
	}
	if t := criteria.MaxBookingPartySize; t != nil && !t.IsZero() && !t.Valid {
		e.logger.Info("skipping non-numeric capacity criterion",
			zap.String("field", model.FieldMaxBookingPartySize), zap.String("value", t.Raw))
	}

	var results []Result
	for _, r := range e.catalog.All() {
		fields, vetoed := score(r, criteria)
		if vetoed || len(fields) == 0 {
			continue
		}
		results = append(results, Result{
			Restaurant:    r,
			MatchCount:    len(fields),
			MatchedFields: fields,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchCount > results[j].MatchCount
	})
	return results
}

// score evaluates every supplied criterion independently. Scored fields add
// to the match; gate fields (name, phone) veto the entry on mismatch and
// also add one point when they match.
func score(r model.Restaurant, c model.SearchCriteria) (fields []string, vetoed bool) {
	if c.Name != "" {
		if r.Name != c.Name {
			return nil, true
		}
		fields = append(fields, model.FieldName)
	}
	if c.Location != "" && matchLocation(r.Location, c.Location) {
		fields = append(fields, model.FieldLocation)
	}
	if !c.Cuisine.IsZero() && matchCuisine(r.Cuisine, c.Cuisine) {
		fields = append(fields, model.FieldCuisine)
	}
	if h := c.OperatingHours; h != nil && (h.Open != "" || h.Close != "") && matchHours(r.OperatingHours, *h) {
		fields = append(fields, model.FieldOperatingHours)
	}
	if c.Phone != "" {
		if r.Phone != c.Phone {
			return nil, true
		}
		fields = append(fields, model.FieldPhone)
	}
	if atLeast(r.MaxSeatingCapacity, c.MaxSeatingCapacity) {
		fields = append(fields, model.FieldMaxSeatingCapacity)
	}
	if atLeast(r.MaxBookingPartySize, c.MaxBookingPartySize) {
		fields = append(fields, model.FieldMaxBookingPartySize)
	}
	if c.OperatingDays != "" && containsFold(r.OperatingDays, c.OperatingDays) {
		fields = append(fields, model.FieldOperatingDays)
	}
	return fields, false
}

func matchLocation(loc model.Location, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(loc.Address), q) ||
		strings.Contains(strings.ToLower(loc.Landmark), q)
}

func matchCuisine(cuisines []string, q *model.CuisineQuery) bool {
	if !q.List {
		return containsFold(cuisines, q.Values[0])
	}
	for _, want := range q.Values {
		for _, have := range cuisines {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// matchHours requires every supplied sub-field to match exactly.
func matchHours(have, want model.OperatingHours) bool {
	if want.Open != "" && have.Open != want.Open {
		return false
	}
	if want.Close != "" && have.Close != want.Close {
		return false
	}
	return true
}

func atLeast(capacity int, t *model.Threshold) bool {
	if t.IsZero() || !t.Valid {
		return false
	}
	return capacity >= t.Value
}

// containsFold reports whether needle is a case-insensitive substring of any value.
func containsFold(values []string, needle string) bool {
	n := strings.ToLower(needle)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), n) {
			return true
		}
	}
	return false
}

func plain(restaurants []model.Restaurant) []model.RestaurantMatch {
	out := make([]model.RestaurantMatch, len(restaurants))
	for i, r := range restaurants {
		out[i] = model.RestaurantMatch{Restaurant: r}
	}
	return out
}
