package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/helpline-oss/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketResponseAdded EventType = "ticket_response_added"
)

// TicketEventTypes lists every event that changes the ticket collection.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketResponseAdded,
}

// ActorType identifies who caused an event.
type ActorType string

const (
	ActorCustomer ActorType = "customer"
	ActorStaff    ActorType = "staff"
	ActorSystem   ActorType = "system"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type ActorType `json:"type"`
	Name string    `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject       string                `json:"subject"`
	Category      domain.TicketCategory `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	CustomerEmail string                `json:"customer_email"`
	CustomerName  string                `json:"customer_name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	CustomerEmail string              `json:"customer_email"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID    string              `json:"response_id"`
	Author        string              `json:"author"`
	IsAutomatic   bool                `json:"is_automatic"`
	BodyPreview   string              `json:"body_preview"`
	Status        domain.TicketStatus `json:"status"`
	CustomerEmail string              `json:"customer_email"`
}

// UnmarshalJSON restores the typed payload for known event types so events
// received from a remote bus look the same as locally published ones.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	var raw struct {
		alias
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.alias)
	e.Payload = nil
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}

	var err error
	switch e.Type {
	case EventTicketCreated:
		var p TicketCreatedPayload
		err = json.Unmarshal(raw.Payload, &p)
		e.Payload = p
	case EventTicketStatusChanged:
		var p TicketStatusChangedPayload
		err = json.Unmarshal(raw.Payload, &p)
		e.Payload = p
	case EventTicketResponseAdded:
		var p TicketResponseAddedPayload
		err = json.Unmarshal(raw.Payload, &p)
		e.Payload = p
	default:
		var p map[string]any
		err = json.Unmarshal(raw.Payload, &p)
		e.Payload = p
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
