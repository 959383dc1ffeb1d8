package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/model"
)

type occurrenceRequest struct {
	Start     time.Time `json:"start" binding:"required"`
	End       time.Time `json:"end" binding:"required"`
	Vacancies int       `json:"vacancies"`
}

// ListOccurrences lists every occurrence of an event.
func (h *Handler) ListOccurrences(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.GetEvent(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	occurrences, err := h.store.ListOccurrences(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, occurrences)
}

// CreateOccurrence adds a single occurrence to an event of the caller's
// winery.
func (h *Handler) CreateOccurrence(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req occurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.store.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if actor(c).WineryID != ev.WineryID {
		forbidden(c)
		return
	}

	verr := &booking.ValidationError{}
	if ev.IsCancelled() {
		verr.AddGlobal(booking.MsgEventCancelled)
	}
	if req.Vacancies <= 0 {
		verr.Add("vacancies", booking.MsgGreaterThanZero)
	}
	if !req.End.After(req.Start) {
		verr.Add("end", "Must be after start.")
	}
	if !req.Start.After(h.now()) {
		verr.Add("start", "Must be in the future.")
	}
	if !verr.Empty() {
		respondError(c, verr)
		return
	}

	occ := &model.Occurrence{EventID: ev.ID, Start: req.Start, End: req.End, Vacancies: req.Vacancies, Capacity: req.Vacancies}
	if err := h.store.CreateOccurrence(c.Request.Context(), occ); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, occ)
}

// CancelOccurrence calls off one occurrence and its reservations.
func (h *Handler) CancelOccurrence(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindCancel(c)
	if !ok {
		return
	}

	out, err := h.booking.CancelOccurrence(c.Request.Context(), id, actor(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cascadeResponse(out))
}
