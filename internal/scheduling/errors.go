// Package scheduling implements the booking coordinator: trainer
// availability, single-winner slot holds with a TTL, the booking
// request lifecycle and idempotent cancellation. The package defines
// storage contracts and transition rules; persistence engines live in
// the repository layer. All domain failures are sentinel errors so
// that the HTTP layer can map them exhaustively with errors.Is.
package scheduling

import "errors"

// ErrSlotUnavailable is returned when a hold or commit loses the race
// for a slot that is already held or booked. The caller is expected to
// pick another slot rather than retry. Handlers translate this into
// HTTP 409.
var ErrSlotUnavailable = errors.New("slot unavailable")

// ErrNotHolder is returned when a release or commit is attempted by a
// client that does not hold the slot. Maps to HTTP 409.
var ErrNotHolder = errors.New("not the holder of this slot")

// ErrHoldExpired is returned when a commit arrives after the hold's
// deadline has passed. The booking flow must be restarted. Maps to
// HTTP 410.
var ErrHoldExpired = errors.New("hold expired")

// ErrInvalidState is returned when an operation targets an entity that
// has already left the state the operation requires, e.g. responding
// to a request that is no longer pending. Maps to HTTP 409.
var ErrInvalidState = errors.New("invalid state for this operation")

// ErrForbidden is returned when the caller is not permitted to act on
// the entity, such as a trainer answering another trainer's request or
// a stranger cancelling a booking. Maps to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrOverlap is returned when published slots overlap an existing
// non-cancelled slot of the same trainer, or one another. Maps to
// HTTP 409.
var ErrOverlap = errors.New("slot overlaps existing availability")

// ErrInvalidSlotRange is returned when a published slot has a start
// time at or after its end time. Maps to HTTP 400.
var ErrInvalidSlotRange = errors.New("invalid slot time range")

// ErrSlotNotFound, ErrRequestNotFound and ErrBookingNotFound report a
// missing entity. Terminal for the request; maps to HTTP 404.
var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrRequestNotFound = errors.New("booking request not found")
	ErrBookingNotFound = errors.New("booking not found")
)
