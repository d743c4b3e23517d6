package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
)

// MemoryStore is an in-process implementation of SlotStore,
// RequestStore and BookingStore. Transitions follow exactly the same
// rules as the MySQL repositories; a single mutex stands in for the
// per-row conditional UPDATE, which keeps every transition
// linearizable. It backs the coordinator tests and can serve as a
// throwaway backend in development.
type MemoryStore struct {
	mu         sync.Mutex
	slots      map[uint64]*model.TimeSlot
	requests   map[uint64]*model.BookingRequest
	bookings   map[uint64]*model.Booking
	slotEnds   map[uint64]time.Time // booking id -> slot end, for CompletePast
	nextSlot   uint64
	nextReq    uint64
	nextBook   uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:    make(map[uint64]*model.TimeSlot),
		requests: make(map[uint64]*model.BookingRequest),
		bookings: make(map[uint64]*model.Booking),
		slotEnds: make(map[uint64]time.Time),
	}
}

// PublishSlots implements SlotStore.
func (m *MemoryStore) PublishSlots(_ context.Context, trainerID uint64, slots []model.TimeSlot) ([]model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range slots {
		for _, existing := range m.slots {
			if existing.TrainerID != trainerID || existing.Status == model.SlotCancelled {
				continue
			}
			if existing.Overlaps(s.StartTime, s.EndTime) {
				return nil, ErrOverlap
			}
		}
	}
	out := make([]model.TimeSlot, 0, len(slots))
	now := time.Now().UTC()
	for _, s := range slots {
		m.nextSlot++
		stored := s
		stored.ID = m.nextSlot
		stored.CreatedAt = now
		stored.UpdatedAt = now
		m.slots[stored.ID] = &stored
		out = append(out, stored)
	}
	return out, nil
}

// GetSlot implements SlotStore.
func (m *MemoryStore) GetSlot(_ context.Context, slotID uint64) (model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return model.TimeSlot{}, ErrSlotNotFound
	}
	return *s, nil
}

// OpenSlots implements SlotStore.
func (m *MemoryStore) OpenSlots(_ context.Context, trainerID uint64, from, to time.Time) ([]model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TimeSlot, 0)
	for _, s := range m.slots {
		if s.TrainerID != trainerID || s.Status != model.SlotOpen {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// Hold implements SlotStore.
func (m *MemoryStore) Hold(_ context.Context, slotID, clientID uint64, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != model.SlotOpen {
		return ErrSlotUnavailable
	}
	u := until
	s.Status = model.SlotHeld
	s.HeldBy = clientID
	s.HeldUntil = &u
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ReleaseHold implements SlotStore.
func (m *MemoryStore) ReleaseHold(_ context.Context, slotID, clientID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != model.SlotHeld {
		return ErrInvalidState
	}
	if s.HeldBy != clientID {
		return ErrNotHolder
	}
	m.clearHold(s)
	return nil
}

// CommitHold implements SlotStore.
func (m *MemoryStore) CommitHold(_ context.Context, slotID, clientID uint64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != model.SlotHeld {
		return ErrSlotUnavailable
	}
	if s.HeldBy != clientID {
		return ErrNotHolder
	}
	if s.HeldUntil != nil && !s.HeldUntil.After(now) {
		return ErrHoldExpired
	}
	s.Status = model.SlotBooked
	s.HeldBy = 0
	s.HeldUntil = nil
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ExpireHold implements SlotStore.
func (m *MemoryStore) ExpireHold(_ context.Context, slotID uint64, now time.Time) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return 0, false, ErrSlotNotFound
	}
	if !s.HoldExpired(now) {
		return 0, false, nil
	}
	heldBy := s.HeldBy
	m.clearHold(s)
	return heldBy, true, nil
}

// Reopen implements SlotStore.
func (m *MemoryStore) Reopen(_ context.Context, slotID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Status != model.SlotBooked {
		return ErrInvalidState
	}
	s.Status = model.SlotOpen
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// CancelSlot implements SlotStore.
func (m *MemoryStore) CancelSlot(_ context.Context, slotID, trainerID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if s.TrainerID != trainerID {
		return ErrForbidden
	}
	if s.Status != model.SlotOpen {
		return ErrInvalidState
	}
	s.Status = model.SlotCancelled
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// StaleHolds implements SlotStore.
func (m *MemoryStore) StaleHolds(_ context.Context, trainerID uint64, now time.Time) ([]model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TimeSlot, 0)
	for _, s := range m.slots {
		if trainerID != 0 && s.TrainerID != trainerID {
			continue
		}
		if s.HoldExpired(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *MemoryStore) clearHold(s *model.TimeSlot) {
	s.Status = model.SlotOpen
	s.HeldBy = 0
	s.HeldUntil = nil
	s.Version++
	s.UpdatedAt = time.Now().UTC()
}

// CreateRequest implements RequestStore.
func (m *MemoryStore) CreateRequest(_ context.Context, req *model.BookingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextReq++
	req.ID = m.nextReq
	stored := *req
	m.requests[req.ID] = &stored
	return nil
}

// GetRequest implements RequestStore.
func (m *MemoryStore) GetRequest(_ context.Context, id uint64) (model.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return model.BookingRequest{}, ErrRequestNotFound
	}
	return *r, nil
}

// PendingBySlot implements RequestStore.
func (m *MemoryStore) PendingBySlot(_ context.Context, slotID uint64) (model.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.SlotID == slotID && r.State == model.RequestPending {
			return *r, nil
		}
	}
	return model.BookingRequest{}, ErrRequestNotFound
}

// CloseRequest implements RequestStore.
func (m *MemoryStore) CloseRequest(_ context.Context, id uint64, state string, respondedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if r.State != model.RequestPending {
		return ErrInvalidState
	}
	r.State = state
	t := respondedAt
	r.RespondedAt = &t
	return nil
}

// PendingByTrainer implements RequestStore.
func (m *MemoryStore) PendingByTrainer(_ context.Context, trainerID uint64) ([]model.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.BookingRequest, 0)
	for _, r := range m.requests {
		if r.TrainerID == trainerID && r.State == model.RequestPending {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RequestsByClient implements RequestStore.
func (m *MemoryStore) RequestsByClient(_ context.Context, clientID uint64) ([]model.BookingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.BookingRequest, 0)
	for _, r := range m.requests {
		if r.ClientID == clientID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateBooking implements BookingStore.
func (m *MemoryStore) CreateBooking(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBook++
	b.ID = m.nextBook
	stored := *b
	m.bookings[b.ID] = &stored
	if s, ok := m.slots[b.SlotID]; ok {
		m.slotEnds[b.ID] = s.EndTime
	}
	return nil
}

// GetBooking implements BookingStore.
func (m *MemoryStore) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, ErrBookingNotFound
	}
	return *b, nil
}

// CancelBooking implements BookingStore.
func (m *MemoryStore) CancelBooking(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, ErrBookingNotFound
	}
	switch b.Status {
	case model.BookingCancelled:
		return false, nil
	case model.BookingCompleted:
		return false, ErrInvalidState
	}
	b.Status = model.BookingCancelled
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

// CompletePast implements BookingStore.
func (m *MemoryStore) CompletePast(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, b := range m.bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		end, ok := m.slotEnds[id]
		if ok && !end.After(now) {
			b.Status = model.BookingCompleted
			b.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

// BookingsByClient implements BookingStore.
func (m *MemoryStore) BookingsByClient(_ context.Context, clientID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range m.bookings {
		if b.ClientID == clientID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// BookingsByTrainer implements BookingStore.
func (m *MemoryStore) BookingsByTrainer(_ context.Context, trainerID uint64, from, to time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Booking, 0)
	starts := make(map[uint64]time.Time)
	for _, b := range m.bookings {
		if b.TrainerID != trainerID {
			continue
		}
		s, ok := m.slots[b.SlotID]
		if !ok || s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		starts[b.ID] = s.StartTime
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return starts[out[i].ID].Before(starts[out[j].ID]) })
	return out, nil
}
