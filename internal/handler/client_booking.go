package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/0SilentFox0/fit-app/internal/repository"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

// ClientHandler serves the client side of booking: browsing a
// trainer's open slots, filing requests and managing own bookings.
type ClientHandler struct {
	Coordinator *scheduling.Coordinator
	Requests    *repository.RequestRepo
	Bookings    *repository.BookingRepo
}

func NewClientHandler(co *scheduling.Coordinator, req *repository.RequestRepo, book *repository.BookingRepo) *ClientHandler {
	if co == nil || req == nil || book == nil {
		panic("nil dependency passed to NewClientHandler")
	}
	return &ClientHandler{Coordinator: co, Requests: req, Bookings: book}
}

// TrainerSlots lists a trainer's OPEN slots in a window.
// GET /v1/trainers/:id/slots?from=...&to=...
func (h *ClientHandler) TrainerSlots(c echo.Context) error {
	trainerID, okID := pathID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid trainer id")
	}
	from, to, err := parseWindow(c, 14*24*time.Hour)
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	slots, err := h.Coordinator.OpenSlots(c.Request().Context(), trainerID, from, to)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "open slots", slots)
}

type createRequestReq struct {
	TrainerID       uint64 `json:"trainer_id"`
	SlotID          uint64 `json:"slot_id"`
	SessionType     string `json:"session_type"`
	DurationMinutes int    `json:"duration_minutes"`
	Message         string `json:"message"`
}

// CreateRequest holds a slot and files a booking request for it. The
// hold makes the slot invisible to other clients until the trainer
// answers or the hold lapses.
// POST /v1/bookings/requests
func (h *ClientHandler) CreateRequest(c echo.Context) error {
	clientID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.TrainerID == 0 || req.SlotID == 0 {
		return fail(c, http.StatusBadRequest, "trainer_id/slot_id required")
	}
	request, err := h.Coordinator.CreateRequest(c.Request().Context(), clientID, req.TrainerID, req.SlotID,
		scheduling.RequestDetails{
			SessionType:     req.SessionType,
			DurationMinutes: req.DurationMinutes,
			Message:         req.Message,
		})
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "request created", request)
}

// MyRequests lists the client's booking requests, newest first.
// GET /v1/bookings/requests
func (h *ClientHandler) MyRequests(c echo.Context) error {
	clientID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	requests, err := h.Requests.RequestsByClient(c.Request().Context(), clientID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "requests", requests)
}

// MyBookings lists the client's bookings with trainer and slot details.
// GET /v1/bookings
func (h *ClientHandler) MyBookings(c echo.Context) error {
	clientID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	details, err := h.Bookings.DetailsByClient(c.Request().Context(), clientID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "bookings", details)
}

// GetBooking returns one booking the caller participates in.
// GET /v1/bookings/:id
func (h *ClientHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	bookingID, okID := pathID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.Coordinator.GetBookingFor(c.Request().Context(), bookingID, userID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "booking", b)
}

// CancelBooking cancels a booking on behalf of its client or trainer.
// Repeating the call on an already-cancelled booking succeeds.
// DELETE /v1/bookings/:id
func (h *ClientHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	bookingID, okID := pathID(c, "id")
	if !okID {
		return fail(c, http.StatusBadRequest, "invalid booking id")
	}
	b, err := h.Coordinator.CancelBooking(c.Request().Context(), bookingID, userID)
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "booking cancelled", b)
}
