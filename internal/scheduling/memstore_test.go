package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
)

func seedSlot(t *testing.T, m *MemoryStore, trainerID uint64) model.TimeSlot {
	t.Helper()
	slots, err := m.PublishSlots(context.Background(), trainerID, []model.TimeSlot{{
		TrainerID: trainerID,
		StartTime: baseTime.Add(time.Hour),
		EndTime:   baseTime.Add(2 * time.Hour),
		Status:    model.SlotOpen,
	}})
	if err != nil {
		t.Fatalf("PublishSlots: %v", err)
	}
	return slots[0]
}

func TestMemStoreHoldTransitions(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	slot := seedSlot(t, m, 1)
	deadline := baseTime.Add(5 * time.Minute)

	if err := m.Hold(ctx, slot.ID, 7, deadline); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	// Held slot admits no second hold.
	if err := m.Hold(ctx, slot.ID, 8, deadline); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("second hold: got %v, want ErrSlotUnavailable", err)
	}
	// Only the holder may release.
	if err := m.ReleaseHold(ctx, slot.ID, 8); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("foreign release: got %v, want ErrNotHolder", err)
	}
	if err := m.ReleaseHold(ctx, slot.ID, 7); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Released slot is not HELD anymore.
	if err := m.ReleaseHold(ctx, slot.ID, 7); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double release: got %v, want ErrInvalidState", err)
	}
}

func TestMemStoreCommitHold(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	slot := seedSlot(t, m, 1)
	deadline := baseTime.Add(5 * time.Minute)

	if err := m.CommitHold(ctx, slot.ID, 7, baseTime); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("commit without hold: got %v, want ErrSlotUnavailable", err)
	}
	if err := m.Hold(ctx, slot.ID, 7, deadline); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if err := m.CommitHold(ctx, slot.ID, 8, baseTime); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("foreign commit: got %v, want ErrNotHolder", err)
	}
	if err := m.CommitHold(ctx, slot.ID, 7, deadline); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("commit at deadline: got %v, want ErrHoldExpired", err)
	}
	if err := m.CommitHold(ctx, slot.ID, 7, deadline.Add(-time.Second)); err != nil {
		t.Fatalf("commit within deadline: %v", err)
	}
	s, _ := m.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotBooked || s.HeldBy != 0 || s.HeldUntil != nil {
		t.Fatalf("after commit: %+v", s)
	}
}

func TestMemStoreExpireHoldIsCAS(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	slot := seedSlot(t, m, 1)
	deadline := baseTime.Add(5 * time.Minute)

	if err := m.Hold(ctx, slot.ID, 7, deadline); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	// Before the deadline nothing happens.
	if _, ok, err := m.ExpireHold(ctx, slot.ID, deadline.Add(-time.Second)); err != nil || ok {
		t.Fatalf("early expire = (%v, %v), want (false, nil)", ok, err)
	}
	heldBy, ok, err := m.ExpireHold(ctx, slot.ID, deadline)
	if err != nil || !ok || heldBy != 7 {
		t.Fatalf("expire = (%d, %v, %v), want (7, true, nil)", heldBy, ok, err)
	}
	// Second expiry loses the compare-and-set.
	if _, ok, _ := m.ExpireHold(ctx, slot.ID, deadline); ok {
		t.Fatalf("double expire succeeded")
	}
}

func TestMemStoreReopenOnlyBooked(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	slot := seedSlot(t, m, 1)

	if err := m.Reopen(ctx, slot.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("reopen open slot: got %v, want ErrInvalidState", err)
	}
	deadline := baseTime.Add(5 * time.Minute)
	_ = m.Hold(ctx, slot.ID, 7, deadline)
	_ = m.CommitHold(ctx, slot.ID, 7, baseTime)
	if err := m.Reopen(ctx, slot.ID); err != nil {
		t.Fatalf("reopen booked slot: %v", err)
	}
	s, _ := m.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotOpen {
		t.Fatalf("status = %q, want OPEN", s.Status)
	}
}

func TestMemStoreCloseRequestSingleWinner(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	req := &model.BookingRequest{ClientID: 7, TrainerID: 1, SlotID: 1, State: model.RequestPending, CreatedAt: baseTime}
	if err := m.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if err := m.CloseRequest(ctx, req.ID, model.RequestApproved, baseTime); err != nil {
		t.Fatalf("CloseRequest: %v", err)
	}
	if err := m.CloseRequest(ctx, req.ID, model.RequestExpired, baseTime); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second close: got %v, want ErrInvalidState", err)
	}
	got, _ := m.GetRequest(ctx, req.ID)
	if got.State != model.RequestApproved || got.RespondedAt == nil {
		t.Fatalf("request after close: %+v", got)
	}
}

func TestMemStoreCancelBooking(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	slot := seedSlot(t, m, 1)
	b := &model.Booking{RequestID: 1, TrainerID: 1, ClientID: 7, SlotID: slot.ID, Status: model.BookingConfirmed, CreatedAt: baseTime}
	if err := m.CreateBooking(ctx, b); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	changed, err := m.CancelBooking(ctx, b.ID)
	if err != nil || !changed {
		t.Fatalf("first cancel = (%v, %v), want (true, nil)", changed, err)
	}
	changed, err = m.CancelBooking(ctx, b.ID)
	if err != nil || changed {
		t.Fatalf("second cancel = (%v, %v), want (false, nil)", changed, err)
	}
}

func TestMemStoreCompletePast(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	slot := seedSlot(t, m, 1) // ends baseTime+2h
	b := &model.Booking{RequestID: 1, TrainerID: 1, ClientID: 7, SlotID: slot.ID, Status: model.BookingConfirmed, CreatedAt: baseTime}
	_ = m.CreateBooking(ctx, b)

	n, err := m.CompletePast(ctx, baseTime.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("early complete = (%d, %v), want (0, nil)", n, err)
	}
	n, err = m.CompletePast(ctx, baseTime.Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("complete = (%d, %v), want (1, nil)", n, err)
	}
	got, _ := m.GetBooking(ctx, b.ID)
	if got.Status != model.BookingCompleted {
		t.Fatalf("status = %q, want COMPLETED", got.Status)
	}
	// Completed bookings are not counted again.
	if n, _ := m.CompletePast(ctx, baseTime.Add(3*time.Hour)); n != 0 {
		t.Fatalf("recount = %d, want 0", n)
	}
}
