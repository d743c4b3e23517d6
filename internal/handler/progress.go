package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0SilentFox0/fit-app/internal/model"
	"github.com/0SilentFox0/fit-app/internal/repository"
)

// ProgressHandler serves the client progress screen: latest score per
// category plus the all-client average for comparison.
type ProgressHandler struct {
	Progress *repository.ProgressRepo
}

func NewProgressHandler(p *repository.ProgressRepo) *ProgressHandler {
	if p == nil {
		panic("nil repository passed to NewProgressHandler")
	}
	return &ProgressHandler{Progress: p}
}

type recordProgressReq struct {
	Category string `json:"category"`
	Score    uint8  `json:"score"`
}

// Record stores one measurement for the authenticated client.
// POST /v1/client/progress
func (h *ProgressHandler) Record(c echo.Context) error {
	clientID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req recordProgressReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if !model.ValidProgressCategory(req.Category) {
		return fail(c, http.StatusBadRequest, "unknown category")
	}
	if req.Score > 100 {
		return fail(c, http.StatusBadRequest, "score must be 0-100")
	}
	entry := &model.ProgressEntry{
		ClientID: clientID,
		Category: req.Category,
		Score:    req.Score,
	}
	if err := h.Progress.RecordEntry(c.Request().Context(), entry); err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusCreated, "progress recorded", entry)
}

// Overview returns the client's latest score per category next to the
// average across all clients.
// GET /v1/client/progress
func (h *ProgressHandler) Overview(c echo.Context) error {
	clientID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	latest, err := h.Progress.LatestByClient(c.Request().Context(), clientID)
	if err != nil {
		return failFrom(c, err)
	}
	averages, err := h.Progress.CategoryAverages(c.Request().Context())
	if err != nil {
		return failFrom(c, err)
	}
	return ok(c, http.StatusOK, "progress", echo.Map{
		"categories": model.ProgressCategories,
		"mine":       latest,
		"average":    averages,
	})
}
