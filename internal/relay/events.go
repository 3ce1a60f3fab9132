package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// The widget emits loosely-typed payloads. They are parsed into this closed
// set of variants at the boundary; unknown shapes are rejected instead of
// travelling deeper into the system.

type EventType string

const EventCartCreated EventType = "cart.created"

var (
	ErrUnknownEvent = errors.New("unknown widget event")
	ErrBadPayload   = errors.New("malformed widget event payload")
)

type Event struct {
	Type   EventType
	CartID string
}

func ParseEvent(raw json.RawMessage) (Event, error) {
	var payload struct {
		Type   string `json:"type"`
		CartID string `json:"cart_id"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch EventType(payload.Type) {
	case EventCartCreated:
		if payload.CartID == "" {
			return Event{}, fmt.Errorf("%w: cart.created without cart_id", ErrBadPayload)
		}
		return Event{Type: EventCartCreated, CartID: payload.CartID}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, payload.Type)
	}
}
