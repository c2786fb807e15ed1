package tools

import "encoding/json"

// Tool names exposed to the completion service.
const (
	LookupDiningOptions = "lookup_dining_options"
	ConfirmTableBooking = "confirm_table_booking"
)

// Definition describes a tool to the completion service.
type Definition struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

const lookupDescription = `Search GoodFoods restaurants using whatever the user has told you.
Returns restaurants ranked by how many criteria they match, each with its restaurant_id.
With no criteria it returns the ten most preferred restaurants.
Fields: name, location (area, street or landmark such as Koramangala or MG Road),
cuisine (a keyword such as Indian, Italian, Asian, or a list of exact cuisine names),
operating_hours (open/close in HH:MM), operating_days, phone,
restaurant_max_seating_capacity (venue size, 30-120) and max_booking_party_size (group limit, 6-20).
Only pass details the user actually mentioned.`

const confirmDescription = `Book a table once every detail has been collected in conversation.
Requires restaurant_id from a search result, the guest's real name, a 10 digit phone number,
party_size, reservation_date as YYYY-MM-DD and reservation_time as 24 hour HH:MM.
Convert relative dates and times (tomorrow, tonight, next Friday, evening) yourself before calling.
Never guess a value. Read the booking back to the guest before confirming.
The result is either a confirmed order, a list of missing or placeholder fields to collect again,
or a capacity error; suggest another time or restaurant when capacity is exceeded.`

const lookupSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "description": "Name of the restaurant."},
    "location": {"type": "string", "description": "Street address, area or nearby landmark mentioned by the user."},
    "cuisine": {
      "description": "Cuisine keyword, or a list of cuisine names to match exactly.",
      "anyOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}}
      ]
    },
    "operating_hours": {
      "type": "object",
      "additionalProperties": false,
      "description": "Operating hours of the restaurant.",
      "properties": {
        "open": {"type": "string", "description": "Opening time in HH:MM format."},
        "close": {"type": "string", "description": "Closing time in HH:MM format."}
      }
    },
    "phone": {"type": "string", "description": "Contact phone number."},
    "restaurant_max_seating_capacity": {
      "type": ["integer", "string"],
      "description": "Minimum total seating capacity required."
    },
    "max_booking_party_size": {
      "type": ["integer", "string"],
      "description": "Minimum party size the restaurant must accept in one booking."
    },
    "operating_days": {"type": "string", "description": "Day of the week the restaurant must be open."}
  }
}`

const confirmSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["restaurant_id", "orderer_name", "orderer_contact", "party_size", "reservation_date", "reservation_time"],
  "properties": {
    "restaurant_id": {"type": "string", "description": "Unique identifier of the restaurant."},
    "orderer_name": {"type": "string", "description": "Name of the person making the reservation."},
    "orderer_contact": {"type": "string", "description": "10 digit phone number of the orderer."},
    "party_size": {"type": "integer", "description": "Number of people for the reservation."},
    "reservation_date": {"type": "string", "description": "Reservation date in YYYY-MM-DD format."},
    "reservation_time": {"type": "string", "description": "Reservation time in 24 hour HH:MM format."}
  }
}`

// Definitions returns the tool set offered on every tool-enabled completion.
func Definitions() []Definition {
	return []Definition{
		{Name: LookupDiningOptions, Description: lookupDescription, Schema: json.RawMessage(lookupSchema)},
		{Name: ConfirmTableBooking, Description: confirmDescription, Schema: json.RawMessage(confirmSchema)},
	}
}
