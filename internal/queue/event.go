// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationEvent is published on every booking lifecycle transition
// (hold placed, request approved/rejected/expired, booking cancelled).
// It carries enough information for downstream consumers to notify the
// affected users without querying the primary database.
type NotificationEvent struct {
	Kind       string `json:"kind"`
	TrainerID  uint64 `json:"trainer_id"`
	ClientID   uint64 `json:"client_id"`
	SlotID     uint64 `json:"slot_id"`
	RequestID  uint64 `json:"request_id,omitempty"`
	BookingID  uint64 `json:"booking_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
