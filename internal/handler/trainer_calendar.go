package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/0SilentFox0/fit-app/internal/repository"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

// TrainerHandler serves the trainer-side calendar: availability
// publishing, the pending-request inbox and booked sessions.
type TrainerHandler struct {
	Coordinator *scheduling.Coordinator
	Requests    *repository.RequestRepo
	Bookings    *repository.BookingRepo
	Progress    *repository.ProgressRepo
}

func NewTrainerHandler(co *scheduling.Coordinator, req *repository.RequestRepo, book *repository.BookingRepo, prog *repository.ProgressRepo) *TrainerHandler {
	if co == nil || req == nil || book == nil || prog == nil {
		panic("nil dependency passed to NewTrainerHandler")
	}
	return &TrainerHandler{Coordinator: co, Requests: req, Bookings: book, Progress: prog}
}

type slotWindowReq struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type publishSlotsReq struct {
	Slots []slotWindowReq `json:"slots"`
}

// PublishAvailability stores a batch of new bookable windows.
// POST /v1/trainer/availability
func (h *TrainerHandler) PublishAvailability(c echo.Context) error {
	trainerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req publishSlotsReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if len(req.Slots) == 0 {
		return fail(c, http.StatusBadRequest, "slots required")
	}
	windows := make([]scheduling.SlotWindow, 0, len(req.Slots))
	for _, s := range req.Slots {
		if s.StartTime.IsZero() || s.EndTime.IsZero() {
			return fail(c, http.StatusBadRequest, "start_time/end_time required")
		}
		windows = append(windows, scheduling.SlotWindow{StartTime: s.StartTime, EndTime: s.EndTime})
	}
	created, err := h.Coordinator.PublishSlots(c.Request().Context(), trainerID, windows)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "availability published", created)
}

// CancelAvailability withdraws one OPEN slot.
// DELETE /v1/trainer/availability/:id
func (h *TrainerHandler) CancelAvailability(c echo.Context) error {
	trainerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	slotID, okID := pathID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid slot id")
	}
	if err := h.Coordinator.CancelSlot(c.Request().Context(), slotID, trainerID); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "slot cancelled", nil)
}

// CalendarEvents lists the trainer's booked sessions in a window.
// GET /v1/trainer/calendar/events?from=...&to=...
func (h *TrainerHandler) CalendarEvents(c echo.Context) error {
	trainerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	from, to, err := parseWindow(c, 30*24*time.Hour)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	events, err := h.Bookings.CalendarEvents(c.Request().Context(), trainerID, from, to)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "calendar events", events)
}

// PendingRequests returns the trainer's open inbox with client and
// slot details resolved. Stale holds are expired on the way in so a
// lapsed request never shows as answerable.
// GET /v1/trainer/calendar/requests
func (h *TrainerHandler) PendingRequests(c echo.Context) error {
	trainerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	// Run the expiry pass first; the detail query then only sees live
	// pending requests.
	if _, err := h.Coordinator.PendingRequests(c.Request().Context(), trainerID); err != nil {
		return failFrom(c, err)
	}
	items, err := h.Requests.PendingDetailsByTrainer(c.Request().Context(), trainerID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "pending requests", items)
}

type respondReq struct {
	Action string `json:"action"` // approve | reject
}

// Respond approves or rejects a pending request.
// POST /v1/trainer/calendar/requests/:id/respond
func (h *TrainerHandler) Respond(c echo.Context) error {
	trainerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	requestID, okID := pathID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid request id")
	}
	var req respondReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	var approve bool
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		return fail(c, http.StatusBadRequest, "action must be approve or reject")
	}
	request, booking, err := h.Coordinator.Respond(c.Request().Context(), requestID, trainerID, approve)
	if err != nil {
		return failFrom(c, err)
	}
	data := echo.Map{"request": request}
	if booking != nil {
		data["booking"] = booking
	}
	msg := "request rejected"
	if approve {
		msg = "request approved"
	}
	return ok(c, http.StatusOK, msg, data)
}

// Clients lists the trainer's roster with per-client session stats and
// latest progress scores.
// GET /v1/trainer/clients
func (h *TrainerHandler) Clients(c echo.Context) error {
	trainerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	roster, err := h.Progress.TrainerRoster(c.Request().Context(), trainerID)
	if err != nil {
		return failFrom(c, err)
	}
	type rosterItem struct {
		repository.RosterEntry
		Progress map[string]uint8 `json:"progress"`
	}
	out := make([]rosterItem, 0, len(roster))
	for _, entry := range roster {
		latest, err := h.Progress.LatestByClient(c.Request().Context(), entry.ClientID)
		if err != nil {
			return failFrom(c, err)
		}
		out = append(out, rosterItem{RosterEntry: entry, Progress: latest})
	}
	return ok(c, http.StatusOK, "clients", out)
}
