package model

import "time"

// Booking request states. Transitions are one-way: PENDING is the only
// non-terminal state and leads to exactly one of APPROVED, REJECTED or
// EXPIRED.
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
	RequestExpired  = "EXPIRED"
)

// Booking statuses. A booking is created only from an APPROVED request
// and is immutable except for its status.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
)

// BookingRequest records a client's ask for a session in a specific
// slot. Exactly one PENDING request may reference a HELD slot at a
// time; the request is closed by the trainer's response or by hold
// expiry.
//
// Fields:
//  ID              – primary key identifier.
//  ClientID        – client who placed the request.
//  TrainerID       – trainer the request is addressed to.
//  SlotID          – slot held for this request.
//  SessionType     – e.g. "Strength Training", "Cardio", "Yoga".
//  DurationMinutes – requested session length.
//  Message         – free-form note from the client to the trainer.
//  State           – PENDING, APPROVED, REJECTED or EXPIRED.
//  CreatedAt       – when the request was placed.
//  RespondedAt     – when the request left PENDING (nullable).
type BookingRequest struct {
	ID              uint64     `json:"id"`                     // booking_requests.id
	ClientID        uint64     `json:"client_id"`              // booking_requests.client_id
	TrainerID       uint64     `json:"trainer_id"`             // booking_requests.trainer_id
	SlotID          uint64     `json:"slot_id"`                // booking_requests.slot_id
	SessionType     string     `json:"session_type"`           // booking_requests.session_type
	DurationMinutes int        `json:"duration_minutes"`       // booking_requests.duration_minutes
	Message         string     `json:"message"`                // booking_requests.message
	State           string     `json:"state"`                  // booking_requests.state
	CreatedAt       time.Time  `json:"created_at"`             // booking_requests.created_at
	RespondedAt     *time.Time `json:"responded_at,omitempty"` // booking_requests.responded_at (nullable)
}

// Booking is a confirmed session between a trainer and a client,
// created when the trainer approves a request.
//
// Fields:
//  ID        – primary key identifier.
//  RequestID – request this booking was created from.
//  TrainerID – trainer delivering the session.
//  ClientID  – client attending the session.
//  SlotID    – slot the session occupies.
//  Status    – CONFIRMED, COMPLETED or CANCELLED.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last status change.
type Booking struct {
	ID        uint64    `json:"id"`         // bookings.id
	RequestID uint64    `json:"request_id"` // bookings.request_id
	TrainerID uint64    `json:"trainer_id"` // bookings.trainer_id
	ClientID  uint64    `json:"client_id"`  // bookings.client_id
	SlotID    uint64    `json:"slot_id"`    // bookings.slot_id
	Status    string    `json:"status"`     // bookings.status
	CreatedAt time.Time `json:"created_at"` // bookings.created_at
	UpdatedAt time.Time `json:"updated_at"` // bookings.updated_at
}
