// Package feed delivers live conversation events as typed records over a
// channel. Frames are parsed once at the transport boundary; unrecognized
// kinds are logged and dropped instead of falling through.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/sergeyvolkov/chatflow/internal/message"
)

type EventKind string

const (
	EventNew    EventKind = "new"
	EventStatus EventKind = "status"
	EventReact  EventKind = "react"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is one live feed notification. Message is always non-nil; for
// status/react/update/delete only the fields relevant to the kind are
// populated.
type Event struct {
	Kind      EventKind        `json:"event_kind"`
	PartnerID string           `json:"partner_id"`
	Message   *message.Message `json:"message"`
}

func (k EventKind) valid() bool {
	switch k {
	case EventNew, EventStatus, EventReact, EventUpdate, EventDelete:
		return true
	}
	return false
}

// ParseEvent decodes one wire frame into a typed event. Unknown kinds and
// frames without a message record are rejected.
func ParseEvent(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event frame: %w", err)
	}
	if !ev.Kind.valid() {
		return Event{}, fmt.Errorf("unrecognized event kind %q", ev.Kind)
	}
	if ev.Message == nil {
		return Event{}, fmt.Errorf("event %q carries no message", ev.Kind)
	}
	return ev, nil
}
