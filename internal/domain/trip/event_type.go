package trip

import (
	"errors"
	"strings"
)

// EventType enumerates the trip lifecycle audit events.
type EventType string

const (
	EventTripCreated    EventType = "TRIP_CREATED"
	EventTripStarted    EventType = "TRIP_STARTED"
	EventTripCompleted  EventType = "TRIP_COMPLETED"
	EventTripCancelled  EventType = "TRIP_CANCELLED"
	EventStatusChanged  EventType = "STATUS_CHANGED"
	EventSampleRejected EventType = "SAMPLE_REJECTED"
)

var ErrInvalidEventType = errors.New("invalid trip event type")

// ParseEventType normalizes (uppercases+trims) and validates an event type string.
func ParseEventType(input string) (EventType, error) {
	eventType := EventType(strings.ToUpper(strings.TrimSpace(input)))
	if eventType.Valid() {
		return eventType, nil
	}
	return "", ErrInvalidEventType
}

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventTripCreated,
		EventTripStarted,
		EventTripCompleted,
		EventTripCancelled,
		EventStatusChanged,
		EventSampleRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventType.
func (eventType EventType) String() string {
	return string(eventType)
}
