package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// parseWindow reads optional from/to query params (RFC 3339). Missing
// bounds default to [now, now+span).
func parseWindow(c echo.Context, span time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now, now.Add(span)
	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from")
		}
		from = t.UTC()
		to = from.Add(span)
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to")
		}
		to = t.UTC()
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must precede to")
	}
	return from, to, nil
}

// ok wraps a successful payload in the standard response envelope.
func ok(c echo.Context, status int, message string, data any) error {
	body := echo.Map{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

// fail writes an error response in the standard envelope.
func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

// failFrom maps scheduling errors onto HTTP status codes. Unknown
// errors become a 500 without leaking internals.
func failFrom(c echo.Context, err error) error {
	switch {
	case errors.Is(err, scheduling.ErrInvalidSlotRange):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		return fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound),
		errors.Is(err, scheduling.ErrRequestNotFound),
		errors.Is(err, scheduling.ErrBookingNotFound):
		return fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduling.ErrSlotUnavailable),
		errors.Is(err, scheduling.ErrOverlap),
		errors.Is(err, scheduling.ErrNotHolder),
		errors.Is(err, scheduling.ErrInvalidState):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, scheduling.ErrHoldExpired):
		return fail(c, http.StatusGone, err.Error())
	}
	return fail(c, http.StatusInternalServerError, "internal error")
}
