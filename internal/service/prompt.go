package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goodfoods/reservation-platform/internal/model"
)

// WelcomeMessage opens every session.
const WelcomeMessage = "Hello! I'm here to help with your reservation at GoodFoods in Bengaluru. Ask me for recommendations or book a table at your preferred location."

// RestartMessage is shown to the user after a turn aborts the session.
const RestartMessage = "An error occurred while processing your message. Please restart the conversation."

const defaultSystemPrompt = `You are the reservation assistant for GoodFoods, a restaurant chain in Bengaluru.
Help guests discover GoodFoods restaurants and book tables.

Use lookup_dining_options to search restaurants with the details the guest gives you:
area or landmark, cuisine, opening hours, days, group size or venue size.
Use confirm_table_booking only after you have the restaurant_id from a search,
the guest's name, a 10 digit phone number, the party size, and a date and time.
Convert relative dates and times to YYYY-MM-DD and 24 hour HH:MM yourself using the current date below.
Read the booking back to the guest before you confirm it.

If a booking is rejected for missing or placeholder details, ask the guest for them.
If a slot is full, offer another time or another restaurant.
Never invent restaurant details, ids or phone numbers.
Never write tool calls as text; use the tools you are given.`

const promptTimeLayout = "Monday, 2006-01-02 15:04:05"

// Prompt builds the seed conversation for new and reset sessions.
type Prompt struct {
	System  string
	Welcome string
	Now     func() time.Time
}

// DefaultPrompt returns the built-in prompt.
func DefaultPrompt() *Prompt {
	return &Prompt{
		System:  defaultSystemPrompt,
		Welcome: WelcomeMessage,
		Now:     time.Now,
	}
}

// LoadPrompt reads the system prompt from path. An empty path selects the
// built-in prompt.
func LoadPrompt(path string) (*Prompt, error) {
	p := DefaultPrompt()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("system prompt %s is empty", path)
	}
	p.System = text
	return p, nil
}

// Seed returns the opening messages: the system prompt stamped with the
// current date and time, then the welcome message.
func (p *Prompt) Seed() []model.Message {
	now := p.Now()
	return []model.Message{
		{
			Role:      model.RoleSystem,
			Content:   fmt.Sprintf("%s\n\nThe current date and time is: %s", p.System, now.Format(promptTimeLayout)),
			CreatedAt: now,
		},
		{
			Role:      model.RoleAssistant,
			Content:   p.Welcome,
			CreatedAt: now,
		},
	}
}
