package booking

import (
	"strings"
	"time"

	"github.com/goodfoods/reservation-platform/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var namePlaceholders = []string{
	"user", "your name", "your full name", "name", "customer", "customer name",
	"customer's name", "the user", "the customer", "placeholder", "john doe",
	"jane doe", "user name", "username", "[name]", "(name)", "customer_name",
	"orderer", "person", "guest", "guest name", "your_name",
}

var contactPlaceholders = []string{
	"contact", "your contact", "your phone", "your number", "your phone number",
	"your contact number", "phone", "phone number", "contact number", "mobile",
	"mobile number", "user contact", "user phone", "user number", "123456789",
	"1234567890", "9876543210", "user's contact", "user's phone", "customer contact",
	"customer phone", "customer number", "phone_number", "contact_number",
	"your_phone_number", "your_contact",
}

var relativeWords = []string{"tomorrow", "tonight", "today", "next"}

// containsAny reports whether v contains any of the blocklisted entries.
func containsAny(v string, entries []string) bool {
	for _, e := range entries {
		if strings.Contains(v, e) {
			return true
		}
	}
	return false
}

// Validate reviews a reservation request for missing and placeholder values.
// Both lists are reported independently; a field may appear in at most one.
func Validate(req model.ReservationRequest) model.Validation {
	var missing []string
	required := []struct {
		field string
		empty bool
	}{
		{"restaurant_id", strings.TrimSpace(req.RestaurantID) == ""},
		{"orderer_name", strings.TrimSpace(req.OrdererName) == ""},
		{"orderer_contact", strings.TrimSpace(req.OrdererContact) == ""},
		{"party_size", req.PartySize <= 0},
		{"reservation_date", strings.TrimSpace(req.ReservationDate) == ""},
		{"reservation_time", strings.TrimSpace(req.ReservationTime) == ""},
	}
	for _, r := range required {
		if r.empty {
			missing = append(missing, r.field)
		}
	}

	placeholders := detectPlaceholders(req)

	if len(missing) > 0 || len(placeholders) > 0 {
		return model.Validation{
			Status:            model.ValidationInvalid,
			MissingFields:     missing,
			PlaceholderFields: placeholders,
		}
	}
	return model.Validation{Status: model.ValidationComplete}
}

// detectPlaceholders flags names and contacts that contain a blocklisted
// entry anywhere, contacts that are not ten digits, and dates and times that
// are relative or malformed.
func detectPlaceholders(req model.ReservationRequest) []string {
	var fields []string

	if name := normalize(req.OrdererName); name != "" {
		if containsAny(name, namePlaceholders) {
			fields = append(fields, "orderer_name")
		}
	}

	if contact := normalize(req.OrdererContact); contact != "" {
		if containsAny(contact, contactPlaceholders) || !isTenDigits(contact) {
			fields = append(fields, "orderer_contact")
		}
	}

	if date := normalize(req.ReservationDate); date != "" && !absolute(date, dateLayout) {
		fields = append(fields, "reservation_date")
	}
	if t := normalize(req.ReservationTime); t != "" && !absolute(t, timeLayout) {
		fields = append(fields, "reservation_time")
	}

	return fields
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// absolute reports whether v is free of relative vocabulary and parses
// with the given layout.
func absolute(v, layout string) bool {
	for _, w := range relativeWords {
		if strings.Contains(v, w) {
			return false
		}
	}
	_, err := time.Parse(layout, v)
	return err == nil
}
