package scheduling

import (
	"context"
	"time"
)

// EventKind names a domain state transition worth notifying about.
type EventKind string

const (
	EventSlotHeld         EventKind = "slot.held"
	EventRequestApproved  EventKind = "request.approved"
	EventRequestRejected  EventKind = "request.rejected"
	EventRequestExpired   EventKind = "request.expired"
	EventBookingCancelled EventKind = "booking.cancelled"
)

// Event is emitted exactly once per state transition. Delivery to
// clients (push, email, websocket) is the notifier implementation's
// concern; the coordinator has no delivery guarantee obligations
// beyond handing the event over.
type Event struct {
	Kind       EventKind `json:"kind"`
	TrainerID  uint64    `json:"trainer_id"`
	ClientID   uint64    `json:"client_id"`
	SlotID     uint64    `json:"slot_id"`
	RequestID  uint64    `json:"request_id,omitempty"`
	BookingID  uint64    `json:"booking_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier receives domain events. Implementations must not block the
// booking flow; the coordinator logs and discards notifier errors
// because the state transition has already happened.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NopNotifier drops every event. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
