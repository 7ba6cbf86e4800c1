package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

// ValidateTripID validates a trip ID.
func ValidateTripID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid trip ID format")
	}
	return nil
}

// ValidateMessageText validates a chat turn's text.
func ValidateMessageText(text string) error {
	if len(text) == 0 {
		return errors.New("message text cannot be empty")
	}
	if len(text) > 100000 {
		return errors.New("message text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("message text must be valid UTF-8")
	}
	return nil
}

// ValidateTripInput checks the only hard requirement on trip preferences:
// a destination to plan around. Everything else is opaque free text.
func ValidateTripInput(input model.TripInput) error {
	if input.Destination == "" {
		return errors.New("destination is required")
	}
	if len(input.Destination) > 256 {
		return errors.New("destination exceeds maximum length")
	}
	return nil
}

// ValidateExploreTab validates a category tab name.
func ValidateExploreTab(tab string) error {
	switch model.ExploreTab(tab) {
	case model.TabAttraction, model.TabFood:
		return nil
	default:
		return errors.New("unknown explore tab")
	}
}
