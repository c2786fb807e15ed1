package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength bounds a single user message.
const MaxMessageLength = 4000

// ValidateMessageContent validates user message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}
