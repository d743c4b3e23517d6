package scheduling

import (
	"context"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
)

// SlotStore persists time slots. Every mutating method is a single
// atomic compare-and-set on one slot row: the transition succeeds for
// exactly one caller and all others receive a sentinel error. There is
// no global lock across slots and no method ever blocks waiting for a
// contended slot.
type SlotStore interface {
	// PublishSlots inserts the given slots for a trainer. It fails with
	// ErrOverlap when any slot overlaps an existing non-cancelled slot
	// of that trainer. The check and the insert happen atomically. On
	// success the stored slots are returned with IDs assigned.
	PublishSlots(ctx context.Context, trainerID uint64, slots []model.TimeSlot) ([]model.TimeSlot, error)

	// GetSlot returns the current state of a slot or ErrSlotNotFound.
	GetSlot(ctx context.Context, slotID uint64) (model.TimeSlot, error)

	// OpenSlots returns slots with status OPEN for a trainer within
	// [from, to), ordered by start time ascending. The result is a
	// snapshot and may be stale by the time a hold is attempted; the
	// race is resolved by Hold's atomicity, not here.
	OpenSlots(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.TimeSlot, error)

	// Hold transitions OPEN→HELD for the given client with the given
	// deadline. Fails with ErrSlotUnavailable when the slot is not OPEN
	// (held by anyone, booked or cancelled).
	Hold(ctx context.Context, slotID, clientID uint64, until time.Time) error

	// ReleaseHold transitions HELD→OPEN when the slot is held by
	// clientID. Fails with ErrNotHolder when held by someone else and
	// ErrInvalidState when the slot is not HELD at all.
	ReleaseHold(ctx context.Context, slotID, clientID uint64) error

	// CommitHold transitions HELD→BOOKED when the slot is held by
	// clientID and the deadline has not passed. Fails with
	// ErrHoldExpired past the deadline, ErrNotHolder on a holder
	// mismatch and ErrSlotUnavailable when the slot is not HELD
	// (covers commit-after-commit).
	CommitHold(ctx context.Context, slotID, clientID uint64, now time.Time) error

	// ExpireHold transitions HELD→OPEN when the hold deadline is at or
	// before now. It reports the displaced holder and whether this
	// caller performed the transition; ok=false means another worker
	// already expired it or the slot has moved on. Safe to call
	// concurrently.
	ExpireHold(ctx context.Context, slotID uint64, now time.Time) (heldBy uint64, ok bool, err error)

	// Reopen transitions BOOKED→OPEN after a future booking was
	// cancelled. Fails with ErrInvalidState when the slot is not
	// BOOKED.
	Reopen(ctx context.Context, slotID uint64) error

	// CancelSlot transitions OPEN→CANCELLED for a slot owned by
	// trainerID. Fails with ErrForbidden for other trainers and
	// ErrInvalidState when the slot is held or booked.
	CancelSlot(ctx context.Context, slotID, trainerID uint64) error

	// StaleHolds returns HELD slots whose deadline is at or before
	// now. trainerID narrows the scan to one trainer; zero means all.
	StaleHolds(ctx context.Context, trainerID uint64, now time.Time) ([]model.TimeSlot, error)
}

// RequestStore persists booking requests. CloseRequest is the
// single-winner guard for the request lifecycle: PENDING→terminal
// happens exactly once no matter how many workers race.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *model.BookingRequest) error

	// GetRequest returns a request or ErrRequestNotFound.
	GetRequest(ctx context.Context, id uint64) (model.BookingRequest, error)

	// PendingBySlot returns the PENDING request holding the given slot,
	// or ErrRequestNotFound when none exists.
	PendingBySlot(ctx context.Context, slotID uint64) (model.BookingRequest, error)

	// CloseRequest transitions PENDING→state (APPROVED, REJECTED or
	// EXPIRED) and records respondedAt. Fails with ErrInvalidState when
	// the request already left PENDING.
	CloseRequest(ctx context.Context, id uint64, state string, respondedAt time.Time) error

	// PendingByTrainer lists a trainer's open inbox, oldest first.
	PendingByTrainer(ctx context.Context, trainerID uint64) ([]model.BookingRequest, error)

	// RequestsByClient lists a client's requests, newest first.
	RequestsByClient(ctx context.Context, clientID uint64) ([]model.BookingRequest, error)
}

// BookingStore persists confirmed bookings.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *model.Booking) error

	// GetBooking returns a booking or ErrBookingNotFound.
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)

	// CancelBooking transitions CONFIRMED→CANCELLED. changed=false with
	// a nil error means the booking was already cancelled (the
	// idempotent no-op case). Fails with ErrInvalidState when the
	// booking is COMPLETED.
	CancelBooking(ctx context.Context, id uint64) (changed bool, err error)

	// CompletePast transitions CONFIRMED→COMPLETED for bookings whose
	// slot end time is at or before now, returning how many changed.
	CompletePast(ctx context.Context, now time.Time) (int64, error)

	// BookingsByClient lists a client's bookings, newest first.
	BookingsByClient(ctx context.Context, clientID uint64) ([]model.Booking, error)

	// BookingsByTrainer lists a trainer's bookings whose slot starts
	// within [from, to), ordered by slot start time.
	BookingsByTrainer(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.Booking, error)
}
