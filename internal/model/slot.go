package model

import "time"

// Slot statuses stored in time_slots.status. A slot moves
// OPEN→HELD→BOOKED through the booking coordinator only; trainers may
// additionally cancel their own unbooked slots. HELD is transient: a
// hold carries a deadline and an expired hold counts as OPEN for the
// next caller.
const (
	SlotOpen      = "OPEN"
	SlotHeld      = "HELD"
	SlotBooked    = "BOOKED"
	SlotCancelled = "CANCELLED"
)

// TimeSlot is one bookable window published by a trainer. At most one
// non-cancelled booking may ever reference a slot.
//
// Fields:
//  ID        – primary key identifier.
//  TrainerID – trainer who owns the slot.
//  StartTime – inclusive start of the window (UTC).
//  EndTime   – exclusive end of the window (UTC).
//  Status    – OPEN, HELD, BOOKED or CANCELLED.
//  HeldBy    – client currently holding the slot (zero when not HELD).
//  HeldUntil – soft deadline of the hold; enforced lazily at the next
//              access, never by a guaranteed-timely timer.
//  Version   – optimistic concurrency token bumped on every transition.
//  CreatedAt – timestamp when the record was created.
//  UpdatedAt – timestamp when the record was last updated.
type TimeSlot struct {
	ID        uint64     `json:"id"`                   // time_slots.id
	TrainerID uint64     `json:"trainer_id"`           // time_slots.trainer_id
	StartTime time.Time  `json:"start_time"`           // time_slots.start_time
	EndTime   time.Time  `json:"end_time"`             // time_slots.end_time
	Status    string     `json:"status"`               // time_slots.status
	HeldBy    uint64     `json:"-"`                    // time_slots.held_by (0 when free)
	HeldUntil *time.Time `json:"held_until,omitempty"` // time_slots.held_until (nullable)
	Version   uint32     `json:"-"`                    // time_slots.version
	CreatedAt time.Time  `json:"created_at"`           // time_slots.created_at
	UpdatedAt time.Time  `json:"updated_at"`           // time_slots.updated_at
}

// HoldExpired reports whether the slot is HELD with a deadline at or
// before now. Such a slot is treated as OPEN by the next hold attempt.
func (s *TimeSlot) HoldExpired(now time.Time) bool {
	return s.Status == SlotHeld && s.HeldUntil != nil && !s.HeldUntil.After(now)
}

// Overlaps reports whether two half-open windows [StartTime, EndTime)
// intersect.
func (s *TimeSlot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}
