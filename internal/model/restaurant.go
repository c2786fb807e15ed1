package model

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Location describes where a restaurant is.
type Location struct {
	Address  string `json:"address"`
	Landmark string `json:"landmark"`
}

// OperatingHours holds opening and closing times in HH:MM.
type OperatingHours struct {
	Open  string `json:"open,omitempty"`
	Close string `json:"close,omitempty"`
}

// Restaurant is an immutable catalog record.
type Restaurant struct {
	ID                  string         `json:"restaurant_id"`
	Name                string         `json:"name"`
	Location            Location       `json:"location"`
	Cuisine             []string       `json:"cuisine"`
	OperatingHours      OperatingHours `json:"operating_hours"`
	OperatingDays       []string       `json:"operating_days"`
	Phone               string         `json:"phone"`
	MaxSeatingCapacity  int            `json:"restaurant_max_seating_capacity"`
	MaxBookingPartySize int            `json:"max_booking_party_size"`
}

// Search criteria field names, as they appear on the wire and in matched_fields.
const (
	FieldName                = "name"
	FieldLocation            = "location"
	FieldCuisine             = "cuisine"
	FieldOperatingHours      = "operating_hours"
	FieldOperatingDays       = "operating_days"
	FieldPhone               = "phone"
	FieldMaxSeatingCapacity  = "restaurant_max_seating_capacity"
	FieldMaxBookingPartySize = "max_booking_party_size"
)

// CuisineQuery is either a single cuisine keyword or a list of cuisines.
type CuisineQuery struct {
	Values []string
	List   bool
}

// CuisineKeyword builds a single-keyword cuisine query.
func CuisineKeyword(s string) *CuisineQuery {
	return &CuisineQuery{Values: []string{s}}
}

// CuisineList builds a list cuisine query.
func CuisineList(values ...string) *CuisineQuery {
	return &CuisineQuery{Values: values, List: true}
}

// UnmarshalJSON accepts a string or an array of strings.
func (c *CuisineQuery) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		c.Values = []string{single}
		c.List = false
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("cuisine must be a string or a list of strings")
	}
	c.Values = list
	c.List = true
	return nil
}

// MarshalJSON mirrors the shape the query was decoded from.
func (c CuisineQuery) MarshalJSON() ([]byte, error) {
	if c.List {
		return json.Marshal(c.Values)
	}
	if len(c.Values) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(c.Values[0])
}

// IsZero reports whether the query carries no usable value.
func (c *CuisineQuery) IsZero() bool {
	if c == nil || len(c.Values) == 0 {
		return true
	}
	return !c.List && c.Values[0] == ""
}

// Threshold is a requested minimum capacity. Numeric strings are accepted;
// anything that is not an integer is kept in Raw with Valid unset.
type Threshold struct {
	Value int
	Raw   string
	Valid bool
}

// AtLeast builds a valid threshold.
func AtLeast(n int) *Threshold {
	return &Threshold{Value: n, Raw: strconv.Itoa(n), Valid: true}
}

// UnmarshalJSON accepts integers and numeric strings.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw = strings.TrimSpace(s)
	}
	t.Raw = raw
	n, err := strconv.Atoi(raw)
	t.Value, t.Valid = n, err == nil
	return nil
}

// MarshalJSON emits an integer when valid and the raw text otherwise.
func (t Threshold) MarshalJSON() ([]byte, error) {
	if t.Valid {
		return json.Marshal(t.Value)
	}
	return json.Marshal(t.Raw)
}

// IsZero reports whether the threshold is absent or falsy.
func (t *Threshold) IsZero() bool {
	if t == nil {
		return true
	}
	if t.Valid {
		return t.Value == 0
	}
	return t.Raw == ""
}

// SearchCriteria is a partial projection of Restaurant attributes.
// Every field is optional.
type SearchCriteria struct {
	Name                string          `json:"name,omitempty"`
	Location            string          `json:"location,omitempty"`
	Cuisine             *CuisineQuery   `json:"cuisine,omitempty"`
	OperatingHours      *OperatingHours `json:"operating_hours,omitempty"`
	Phone               string          `json:"phone,omitempty"`
	MaxSeatingCapacity  *Threshold      `json:"restaurant_max_seating_capacity,omitempty"`
	MaxBookingPartySize *Threshold      `json:"max_booking_party_size,omitempty"`
	OperatingDays       string          `json:"operating_days,omitempty"`
}

// IsEmpty reports whether every field is absent or falsy.
func (c SearchCriteria) IsEmpty() bool {
	return c.Name == "" &&
		c.Location == "" &&
		c.Cuisine.IsZero() &&
		(c.OperatingHours == nil || (c.OperatingHours.Open == "" && c.OperatingHours.Close == "")) &&
		c.Phone == "" &&
		c.MaxSeatingCapacity.IsZero() &&
		c.MaxBookingPartySize.IsZero() &&
		c.OperatingDays == ""
}

// SearchStatus is the outcome category of a search.
type SearchStatus string

const (
	SearchStatusEmpty        SearchStatus = "empty"
	SearchStatusNoMatches    SearchStatus = "no_matches"
	SearchStatusMatchesFound SearchStatus = "matches_found"
)

// RestaurantMatch is a restaurant annotated with how it matched a query.
type RestaurantMatch struct {
	Restaurant
	MatchedFields []string `json:"matched_fields,omitempty"`
	MatchCount    int      `json:"match_count,omitempty"`
}

// SearchResponse is the response of a restaurant search.
type SearchResponse struct {
	Status      SearchStatus      `json:"status"`
	Message     string            `json:"message"`
	Restaurants []RestaurantMatch `json:"restaurants"`
}
