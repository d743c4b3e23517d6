package scheduling

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/0SilentFox0/fit-app/internal/model"
)

// DefaultHoldTTL is applied when the coordinator is constructed with a
// non-positive TTL. Five minutes matches the window a client needs to
// fill in session details before the trainer sees the request.
const DefaultHoldTTL = 5 * time.Minute

// Coordinator drives every slot and request transition. All state
// lives behind the store interfaces; the coordinator sequences the
// per-entity atomic steps so that the slot write always precedes the
// request/booking write and a failed later step never leaves a slot
// permanently stuck (holds self-expire).
type Coordinator struct {
	slots    SlotStore
	requests RequestStore
	bookings BookingStore
	notifier Notifier
	holdTTL  time.Duration
	log      *zap.Logger

	// now is swapped out by tests to drive hold expiry.
	now func() time.Time
}

// NewCoordinator wires the coordinator to its stores. notifier may be
// nil, in which case events are dropped.
func NewCoordinator(slots SlotStore, requests RequestStore, bookings BookingStore, notifier Notifier, holdTTL time.Duration, log *zap.Logger) *Coordinator {
	if slots == nil || requests == nil || bookings == nil {
		panic("nil store passed to NewCoordinator")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		slots:    slots,
		requests: requests,
		bookings: bookings,
		notifier: notifier,
		holdTTL:  holdTTL,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SlotWindow is one bookable window submitted by a trainer.
type SlotWindow struct {
	StartTime time.Time
	EndTime   time.Time
}

// RequestDetails carries the client-supplied fields of a booking
// request.
type RequestDetails struct {
	SessionType     string
	DurationMinutes int
	Message         string
}

// PublishSlots validates and stores a trainer's new availability.
// Windows must be well-formed and must not overlap one another; the
// store additionally rejects overlap with existing non-cancelled slots
// of the same trainer.
func (co *Coordinator) PublishSlots(ctx context.Context, trainerID uint64, windows []SlotWindow) ([]model.TimeSlot, error) {
	if len(windows) == 0 {
		return []model.TimeSlot{}, nil
	}
	sorted := make([]SlotWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	slots := make([]model.TimeSlot, 0, len(sorted))
	for i, w := range sorted {
		if !w.StartTime.Before(w.EndTime) {
			return nil, ErrInvalidSlotRange
		}
		if i > 0 && sorted[i-1].EndTime.After(w.StartTime) {
			return nil, ErrOverlap
		}
		slots = append(slots, model.TimeSlot{
			TrainerID: trainerID,
			StartTime: w.StartTime.UTC(),
			EndTime:   w.EndTime.UTC(),
			Status:    model.SlotOpen,
		})
	}
	return co.slots.PublishSlots(ctx, trainerID, slots)
}

// OpenSlots lists a trainer's OPEN slots within [from, to). Stale
// holds in the trainer's calendar are expired first, so a slot whose
// hold lapsed shows up as bookable again on the very next read.
func (co *Coordinator) OpenSlots(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.TimeSlot, error) {
	now := co.now()
	stale, err := co.slots.StaleHolds(ctx, trainerID, now)
	if err != nil {
		return nil, err
	}
	for _, s := range stale {
		co.expireSlot(ctx, s.ID, now)
	}
	return co.slots.OpenSlots(ctx, trainerID, from, to)
}

// GetSlot returns the current state of a slot.
func (co *Coordinator) GetSlot(ctx context.Context, slotID uint64) (model.TimeSlot, error) {
	return co.slots.GetSlot(ctx, slotID)
}

// CancelSlot withdraws an OPEN slot from a trainer's availability.
func (co *Coordinator) CancelSlot(ctx context.Context, slotID, trainerID uint64) error {
	return co.slots.CancelSlot(ctx, slotID, trainerID)
}

// CreateRequest places a hold on the slot and records a PENDING
// request for it. A hold that expired without being noticed yet is
// cleared first, so the caller competes only with live holds. On
// ErrSlotUnavailable the client must pick another slot; there is no
// queueing.
func (co *Coordinator) CreateRequest(ctx context.Context, clientID, trainerID, slotID uint64, d RequestDetails) (model.BookingRequest, error) {
	slot, err := co.slots.GetSlot(ctx, slotID)
	if err != nil {
		return model.BookingRequest{}, err
	}
	if slot.TrainerID != trainerID {
		return model.BookingRequest{}, ErrSlotNotFound
	}
	now := co.now()
	if slot.HoldExpired(now) {
		co.expireSlot(ctx, slot.ID, now)
	}
	if err := co.slots.Hold(ctx, slotID, clientID, now.Add(co.holdTTL)); err != nil {
		return model.BookingRequest{}, err
	}
	duration := d.DurationMinutes
	if duration <= 0 {
		duration = int(slot.EndTime.Sub(slot.StartTime) / time.Minute)
	}
	req := &model.BookingRequest{
		ClientID:        clientID,
		TrainerID:       trainerID,
		SlotID:          slotID,
		SessionType:     d.SessionType,
		DurationMinutes: duration,
		Message:         d.Message,
		State:           model.RequestPending,
		CreatedAt:       now,
	}
	if err := co.requests.CreateRequest(ctx, req); err != nil {
		// The hold must not outlive a request that was never recorded.
		if relErr := co.slots.ReleaseHold(ctx, slotID, clientID); relErr != nil {
			co.log.Warn("release after failed request create",
				zap.Uint64("slot_id", slotID), zap.Error(relErr))
		}
		return model.BookingRequest{}, err
	}
	co.emit(ctx, Event{
		Kind:       EventSlotHeld,
		TrainerID:  trainerID,
		ClientID:   clientID,
		SlotID:     slotID,
		RequestID:  req.ID,
		OccurredAt: now,
	})
	return *req, nil
}

// Respond records the trainer's decision on a PENDING request. On
// approve the hold is committed and a CONFIRMED booking is created; on
// reject the hold is released and the slot reopens. A request whose
// hold lapsed before the trainer answered is closed as EXPIRED and the
// caller receives ErrHoldExpired.
func (co *Coordinator) Respond(ctx context.Context, requestID, trainerID uint64, approve bool) (model.BookingRequest, *model.Booking, error) {
	req, err := co.requests.GetRequest(ctx, requestID)
	if err != nil {
		return model.BookingRequest{}, nil, err
	}
	slot, err := co.slots.GetSlot(ctx, req.SlotID)
	if err != nil {
		return req, nil, err
	}
	if slot.TrainerID != trainerID {
		return req, nil, ErrForbidden
	}
	if req.State != model.RequestPending {
		return req, nil, ErrInvalidState
	}
	now := co.now()

	if !approve {
		// Slot first, request second. The release may find the hold
		// already gone (expired and re-held, or swept); the request is
		// still closed as rejected.
		if err := co.slots.ReleaseHold(ctx, req.SlotID, req.ClientID); err != nil &&
			!errors.Is(err, ErrInvalidState) && !errors.Is(err, ErrNotHolder) {
			return req, nil, err
		}
		if err := co.closeRequest(ctx, &req, model.RequestRejected, now); err != nil {
			return req, nil, err
		}
		co.emit(ctx, Event{
			Kind:       EventRequestRejected,
			TrainerID:  trainerID,
			ClientID:   req.ClientID,
			SlotID:     req.SlotID,
			RequestID:  req.ID,
			OccurredAt: now,
		})
		return req, nil, nil
	}

	if err := co.slots.CommitHold(ctx, req.SlotID, req.ClientID, now); err != nil {
		if errors.Is(err, ErrHoldExpired) || errors.Is(err, ErrNotHolder) || errors.Is(err, ErrSlotUnavailable) {
			// The hold lapsed under the trainer. Close the request so it
			// leaves the inbox and tell the caller the approval came too
			// late.
			if closeErr := co.closeRequest(ctx, &req, model.RequestExpired, now); closeErr == nil {
				co.emit(ctx, Event{
					Kind:       EventRequestExpired,
					TrainerID:  trainerID,
					ClientID:   req.ClientID,
					SlotID:     req.SlotID,
					RequestID:  req.ID,
					OccurredAt: now,
				})
			}
			return req, nil, ErrHoldExpired
		}
		return req, nil, err
	}
	if err := co.closeRequest(ctx, &req, model.RequestApproved, now); err != nil {
		return req, nil, err
	}
	b := &model.Booking{
		RequestID: req.ID,
		TrainerID: trainerID,
		ClientID:  req.ClientID,
		SlotID:    req.SlotID,
		Status:    model.BookingConfirmed,
		CreatedAt: now,
	}
	if err := co.bookings.CreateBooking(ctx, b); err != nil {
		return req, nil, err
	}
	co.emit(ctx, Event{
		Kind:       EventRequestApproved,
		TrainerID:  trainerID,
		ClientID:   req.ClientID,
		SlotID:     req.SlotID,
		RequestID:  req.ID,
		BookingID:  b.ID,
		OccurredAt: now,
	})
	return req, b, nil
}

// GetBookingFor returns a booking if actorID is its client or trainer.
func (co *Coordinator) GetBookingFor(ctx context.Context, bookingID, actorID uint64) (model.Booking, error) {
	b, err := co.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if actorID != b.ClientID && actorID != b.TrainerID {
		return model.Booking{}, ErrForbidden
	}
	return b, nil
}

// CancelBooking cancels a booking on behalf of its client or trainer.
// The slot reopens only when its start time is still in the future;
// past sessions remain BOOKED as historical fact. Cancelling an
// already-cancelled booking is a no-op success.
func (co *Coordinator) CancelBooking(ctx context.Context, bookingID, actorID uint64) (model.Booking, error) {
	b, err := co.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if actorID != b.ClientID && actorID != b.TrainerID {
		return b, ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		return b, nil
	}
	if b.Status == model.BookingCompleted {
		return b, ErrInvalidState
	}
	changed, err := co.bookings.CancelBooking(ctx, b.ID)
	if err != nil {
		return b, err
	}
	b.Status = model.BookingCancelled
	if !changed {
		// Another cancel won the race; same terminal state either way.
		return b, nil
	}
	now := co.now()
	if slot, slotErr := co.slots.GetSlot(ctx, b.SlotID); slotErr == nil && slot.StartTime.After(now) {
		if err := co.slots.Reopen(ctx, b.SlotID); err != nil {
			co.log.Warn("reopen cancelled slot", zap.Uint64("slot_id", b.SlotID), zap.Error(err))
		}
	}
	co.emit(ctx, Event{
		Kind:       EventBookingCancelled,
		TrainerID:  b.TrainerID,
		ClientID:   b.ClientID,
		SlotID:     b.SlotID,
		RequestID:  b.RequestID,
		BookingID:  b.ID,
		OccurredAt: now,
	})
	return b, nil
}

// ExpireStaleHolds sweeps every lapsed hold back to OPEN and marks the
// associated pending requests EXPIRED. Idempotent and safe to run from
// several workers at once: each slot transition is a compare-and-set
// and only the winner touches the request.
func (co *Coordinator) ExpireStaleHolds(ctx context.Context) (int, error) {
	now := co.now()
	stale, err := co.slots.StaleHolds(ctx, 0, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, s := range stale {
		if co.expireSlot(ctx, s.ID, now) {
			expired++
		}
	}
	return expired, nil
}

// CompletePastBookings marks CONFIRMED bookings whose slot has ended
// as COMPLETED.
func (co *Coordinator) CompletePastBookings(ctx context.Context) (int64, error) {
	return co.bookings.CompletePast(ctx, co.now())
}

// PendingRequests lists a trainer's open inbox.
func (co *Coordinator) PendingRequests(ctx context.Context, trainerID uint64) ([]model.BookingRequest, error) {
	now := co.now()
	stale, err := co.slots.StaleHolds(ctx, trainerID, now)
	if err != nil {
		return nil, err
	}
	for _, s := range stale {
		co.expireSlot(ctx, s.ID, now)
	}
	return co.requests.PendingByTrainer(ctx, trainerID)
}

// expireSlot performs the lazy-expiry transition for one slot and, when
// this caller wins the compare-and-set, closes the displaced holder's
// pending request. Returns whether this caller performed the expiry.
func (co *Coordinator) expireSlot(ctx context.Context, slotID uint64, now time.Time) bool {
	heldBy, ok, err := co.slots.ExpireHold(ctx, slotID, now)
	if err != nil {
		co.log.Warn("expire hold", zap.Uint64("slot_id", slotID), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	req, err := co.requests.PendingBySlot(ctx, slotID)
	if err != nil {
		if !errors.Is(err, ErrRequestNotFound) {
			co.log.Warn("load pending request for expired hold",
				zap.Uint64("slot_id", slotID), zap.Error(err))
		}
		return true
	}
	if req.ClientID != heldBy {
		return true
	}
	if err := co.closeRequest(ctx, &req, model.RequestExpired, now); err != nil {
		// Lost to a concurrent sweep or a response; nothing to undo.
		return true
	}
	co.emit(ctx, Event{
		Kind:       EventRequestExpired,
		TrainerID:  req.TrainerID,
		ClientID:   req.ClientID,
		SlotID:     req.SlotID,
		RequestID:  req.ID,
		OccurredAt: now,
	})
	return true
}

// closeRequest applies the PENDING→state transition and mirrors it on
// the in-memory copy.
func (co *Coordinator) closeRequest(ctx context.Context, req *model.BookingRequest, state string, at time.Time) error {
	if err := co.requests.CloseRequest(ctx, req.ID, state, at); err != nil {
		return err
	}
	req.State = state
	t := at
	req.RespondedAt = &t
	return nil
}

// emit hands an event to the notifier. The transition has already been
// persisted, so a delivery failure is logged and swallowed.
func (co *Coordinator) emit(ctx context.Context, ev Event) {
	if err := co.notifier.Notify(ctx, ev); err != nil {
		co.log.Warn("notify", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
