package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
)

// testClock is a manually advanced clock injected into the coordinator.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordNotifier collects every emitted event.
type recordNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordNotifier) Notify(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordNotifier) byKind(kind EventKind) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []Event{}
	for _, ev := range n.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

var baseTime = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T) (*Coordinator, *MemoryStore, *recordNotifier, *testClock) {
	t.Helper()
	store := NewMemoryStore()
	notifier := &recordNotifier{}
	clock := &testClock{now: baseTime}
	co := NewCoordinator(store, store, store, notifier, 5*time.Minute, nil)
	co.now = clock.Now
	return co, store, notifier, clock
}

func publishOne(t *testing.T, co *Coordinator, trainerID uint64, start, end time.Time) model.TimeSlot {
	t.Helper()
	slots, err := co.PublishSlots(context.Background(), trainerID, []SlotWindow{{StartTime: start, EndTime: end}})
	if err != nil {
		t.Fatalf("PublishSlots: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	return slots[0]
}

func TestPublishSlotsRejectsBadWindows(t *testing.T) {
	co, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := co.PublishSlots(ctx, 1, []SlotWindow{
		{StartTime: baseTime.Add(time.Hour), EndTime: baseTime.Add(time.Hour)},
	})
	if !errors.Is(err, ErrInvalidSlotRange) {
		t.Fatalf("zero-length window: got %v, want ErrInvalidSlotRange", err)
	}

	_, err = co.PublishSlots(ctx, 1, []SlotWindow{
		{StartTime: baseTime.Add(time.Hour), EndTime: baseTime.Add(2 * time.Hour)},
		{StartTime: baseTime.Add(90 * time.Minute), EndTime: baseTime.Add(3 * time.Hour)},
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("intra-batch overlap: got %v, want ErrOverlap", err)
	}
}

func TestPublishSlotsRejectsOverlapWithExisting(t *testing.T) {
	co, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	_, err := co.PublishSlots(ctx, 1, []SlotWindow{
		{StartTime: baseTime.Add(90 * time.Minute), EndTime: baseTime.Add(150 * time.Minute)},
	})
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("got %v, want ErrOverlap", err)
	}

	// Back-to-back windows share an endpoint and must be allowed.
	if _, err := co.PublishSlots(ctx, 1, []SlotWindow{
		{StartTime: baseTime.Add(2 * time.Hour), EndTime: baseTime.Add(3 * time.Hour)},
	}); err != nil {
		t.Fatalf("adjacent window rejected: %v", err)
	}

	// Another trainer may use the same wall-clock window.
	if _, err := co.PublishSlots(ctx, 2, []SlotWindow{
		{StartTime: baseTime.Add(time.Hour), EndTime: baseTime.Add(2 * time.Hour)},
	}); err != nil {
		t.Fatalf("other trainer's window rejected: %v", err)
	}
}

func TestCreateRequestHoldsSlot(t *testing.T) {
	co, _, notifier, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{SessionType: "Strength Training"})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.State != model.RequestPending {
		t.Fatalf("request state = %q, want PENDING", req.State)
	}
	if req.DurationMinutes != 60 {
		t.Fatalf("duration defaulted to %d, want slot length 60", req.DurationMinutes)
	}

	got, err := co.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if got.Status != model.SlotHeld || got.HeldBy != 7 {
		t.Fatalf("slot = %q held_by %d, want HELD by 7", got.Status, got.HeldBy)
	}

	if n := len(notifier.byKind(EventSlotHeld)); n != 1 {
		t.Fatalf("slot.held events = %d, want 1", n)
	}

	// The held slot no longer shows as bookable.
	open, err := co.OpenSlots(ctx, 1, baseTime, baseTime.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("OpenSlots: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("open slots = %d, want 0", len(open))
	}
}

func TestConcurrentHoldSingleWinner(t *testing.T) {
	co, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	const clients = 32
	var wg sync.WaitGroup
	errs := make([]error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = co.CreateRequest(ctx, uint64(100+i), 1, slot.ID, RequestDetails{})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotUnavailable):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestApproveCreatesBooking(t *testing.T) {
	co, _, notifier, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	gotReq, booking, err := co.Respond(ctx, req.ID, 1, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if gotReq.State != model.RequestApproved {
		t.Fatalf("request state = %q, want APPROVED", gotReq.State)
	}
	if booking == nil || booking.Status != model.BookingConfirmed {
		t.Fatalf("booking = %+v, want CONFIRMED", booking)
	}
	if booking.RequestID != req.ID || booking.SlotID != slot.ID || booking.ClientID != 7 {
		t.Fatalf("booking links wrong: %+v", booking)
	}

	s, _ := co.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotBooked {
		t.Fatalf("slot status = %q, want BOOKED", s.Status)
	}
	if n := len(notifier.byKind(EventRequestApproved)); n != 1 {
		t.Fatalf("request.approved events = %d, want 1", n)
	}

	// The request is terminal; a second answer is rejected.
	if _, _, err := co.Respond(ctx, req.ID, 1, true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double approve: got %v, want ErrInvalidState", err)
	}
}

func TestRejectReopensSlot(t *testing.T) {
	co, _, notifier, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	gotReq, booking, err := co.Respond(ctx, req.ID, 1, false)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if gotReq.State != model.RequestRejected || booking != nil {
		t.Fatalf("got state %q booking %v, want REJECTED and nil", gotReq.State, booking)
	}

	s, _ := co.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotOpen {
		t.Fatalf("slot status = %q, want OPEN after reject", s.Status)
	}
	if n := len(notifier.byKind(EventRequestRejected)); n != 1 {
		t.Fatalf("request.rejected events = %d, want 1", n)
	}

	// The freed slot is immediately available to another client.
	if _, err := co.CreateRequest(ctx, 8, 1, slot.ID, RequestDetails{}); err != nil {
		t.Fatalf("re-request freed slot: %v", err)
	}
}

func TestRespondChecksOwnershipAndState(t *testing.T) {
	co, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, _, err := co.Respond(ctx, req.ID, 99, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign trainer: got %v, want ErrForbidden", err)
	}
	if _, _, err := co.Respond(ctx, 12345, 1, true); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("unknown request: got %v, want ErrRequestNotFound", err)
	}
}

func TestHoldExpiryFreesSlotAndClosesRequest(t *testing.T) {
	co, _, notifier, clock := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	clock.Advance(5*time.Minute + time.Second)

	// The next read expires the hold lazily.
	open, err := co.OpenSlots(ctx, 1, baseTime, baseTime.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("OpenSlots: %v", err)
	}
	if len(open) != 1 || open[0].ID != slot.ID {
		t.Fatalf("expired slot missing from open list: %+v", open)
	}

	gotReq, err := co.requests.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if gotReq.State != model.RequestExpired {
		t.Fatalf("request state = %q, want EXPIRED", gotReq.State)
	}
	if n := len(notifier.byKind(EventRequestExpired)); n != 1 {
		t.Fatalf("request.expired events = %d, want 1", n)
	}
}

func TestApproveAfterHoldLapsed(t *testing.T) {
	co, _, _, clock := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	clock.Advance(6 * time.Minute)

	if _, _, err := co.Respond(ctx, req.ID, 1, true); !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("late approve: got %v, want ErrHoldExpired", err)
	}
	gotReq, _ := co.requests.GetRequest(ctx, req.ID)
	if gotReq.State != model.RequestExpired {
		t.Fatalf("request state = %q, want EXPIRED", gotReq.State)
	}
	s, _ := co.GetSlot(ctx, slot.ID)
	if s.Status == model.SlotBooked {
		t.Fatalf("slot must not be BOOKED after a late approve")
	}
}

func TestExpiredSlotCanBeReHeldByAnotherClient(t *testing.T) {
	co, _, _, clock := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	if _, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	clock.Advance(6 * time.Minute)

	// Second client takes over the lapsed hold without any sweep running.
	req2, err := co.CreateRequest(ctx, 8, 1, slot.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("second request on lapsed hold: %v", err)
	}
	s, _ := co.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotHeld || s.HeldBy != 8 {
		t.Fatalf("slot = %q held_by %d, want HELD by 8", s.Status, s.HeldBy)
	}

	// Approving the second request books the slot for client 8.
	_, booking, err := co.Respond(ctx, req2.ID, 1, true)
	if err != nil {
		t.Fatalf("approve second request: %v", err)
	}
	if booking.ClientID != 8 {
		t.Fatalf("booking client = %d, want 8", booking.ClientID)
	}
}

func TestCancelBookingIdempotent(t *testing.T) {
	co, _, notifier, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, _ := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	_, booking, err := co.Respond(ctx, req.ID, 1, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if _, err := co.CancelBooking(ctx, booking.ID, 42); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger cancel: got %v, want ErrForbidden", err)
	}

	b, err := co.CancelBooking(ctx, booking.ID, 7)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if b.Status != model.BookingCancelled {
		t.Fatalf("booking status = %q, want CANCELLED", b.Status)
	}
	s, _ := co.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotOpen {
		t.Fatalf("future slot = %q after cancel, want OPEN", s.Status)
	}

	// Repeats succeed without emitting another event, from either side.
	if _, err := co.CancelBooking(ctx, booking.ID, 7); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if _, err := co.CancelBooking(ctx, booking.ID, 1); err != nil {
		t.Fatalf("trainer cancel after cancel: %v", err)
	}
	if n := len(notifier.byKind(EventBookingCancelled)); n != 1 {
		t.Fatalf("booking.cancelled events = %d, want 1", n)
	}
}

func TestCancelPastBookingKeepsSlotBooked(t *testing.T) {
	co, _, _, clock := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, _ := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	_, booking, err := co.Respond(ctx, req.ID, 1, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	clock.Advance(90 * time.Minute) // session already started

	b, err := co.CancelBooking(ctx, booking.ID, 1)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if b.Status != model.BookingCancelled {
		t.Fatalf("booking status = %q, want CANCELLED", b.Status)
	}
	s, _ := co.GetSlot(ctx, slot.ID)
	if s.Status != model.SlotBooked {
		t.Fatalf("past slot = %q after cancel, want BOOKED", s.Status)
	}
}

func TestCancelCompletedBookingFails(t *testing.T) {
	co, _, _, clock := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	req, _ := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{})
	_, booking, err := co.Respond(ctx, req.ID, 1, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	clock.Advance(3 * time.Hour)
	n, err := co.CompletePastBookings(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CompletePastBookings = (%d, %v), want (1, nil)", n, err)
	}

	if _, err := co.CancelBooking(ctx, booking.ID, 7); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel completed: got %v, want ErrInvalidState", err)
	}
}

func TestConcurrentSweepExpiresOnce(t *testing.T) {
	co, _, notifier, clock := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	if _, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{}); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	clock.Advance(10 * time.Minute)

	const sweepers = 16
	var wg sync.WaitGroup
	counts := make([]int, sweepers)
	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := co.ExpireStaleHolds(ctx)
			if err != nil {
				t.Errorf("ExpireStaleHolds: %v", err)
			}
			counts[i] = n
		}(i)
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 1 {
		t.Fatalf("total expirations = %d, want 1", total)
	}
	if n := len(notifier.byKind(EventRequestExpired)); n != 1 {
		t.Fatalf("request.expired events = %d, want 1", n)
	}
}

func TestPendingRequestsSkipsLapsedHolds(t *testing.T) {
	co, _, _, clock := newTestCoordinator(t)
	ctx := context.Background()
	slotA := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))
	slotB := publishOne(t, co, 1, baseTime.Add(3*time.Hour), baseTime.Add(4*time.Hour))

	if _, err := co.CreateRequest(ctx, 7, 1, slotA.ID, RequestDetails{}); err != nil {
		t.Fatalf("request A: %v", err)
	}
	clock.Advance(6 * time.Minute) // request A's hold lapses
	reqB, err := co.CreateRequest(ctx, 8, 1, slotB.ID, RequestDetails{})
	if err != nil {
		t.Fatalf("request B: %v", err)
	}

	pending, err := co.PendingRequests(ctx, 1)
	if err != nil {
		t.Fatalf("PendingRequests: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != reqB.ID {
		t.Fatalf("pending = %+v, want only request %d", pending, reqB.ID)
	}
}

func TestCancelSlotOnlyWhenOpen(t *testing.T) {
	co, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()
	slot := publishOne(t, co, 1, baseTime.Add(time.Hour), baseTime.Add(2*time.Hour))

	if err := co.CancelSlot(ctx, slot.ID, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign cancel: got %v, want ErrForbidden", err)
	}

	if _, err := co.CreateRequest(ctx, 7, 1, slot.ID, RequestDetails{}); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if err := co.CancelSlot(ctx, slot.ID, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("cancel held slot: got %v, want ErrInvalidState", err)
	}
}
