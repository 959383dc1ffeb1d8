package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/mw"
)

type reservationRequest struct {
	OccurrenceID    uint   `json:"occurrence" binding:"required"`
	AttendeeNumber  int    `json:"attendee_number"`
	PaidAmountCents int64  `json:"paid_amount_cents"`
	Observations    string `json:"observations" binding:"max=512"`
}

// CreateReservation books places on an occurrence for the caller.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.booking.Create(c.Request.Context(), booking.CreateRequest{
		OccurrenceID:    req.OccurrenceID,
		AttendeeNumber:  req.AttendeeNumber,
		PaidAmountCents: req.PaidAmountCents,
		UserID:          actor(c).UserID,
		Observations:    req.Observations,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	r := created.Reservation
	location := h.url("/api/reservations/%d", r.ID)
	c.Header("Location", location)
	c.JSON(http.StatusCreated, gin.H{
		"id":        r.ID,
		"code":      r.Code,
		"url":       location,
		"vacancies": created.Vacancies,
	})
}

// reservationFor loads a reservation the caller may see: their own, or
// any for admins.
func (h *Handler) reservationFor(c *gin.Context) (*model.Reservation, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	r, err := h.store.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	who, _ := mw.CurrentUser(c)
	if r.UserID != who.UserID && who.Role != model.RoleAdmin {
		forbidden(c)
		return nil, false
	}
	return r, true
}

// GetReservation returns one reservation with its occurrence.
func (h *Handler) GetReservation(c *gin.Context) {
	r, ok := h.reservationFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r)
}

// CancelReservation cancels one of the caller's reservations.
func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindCancel(c)
	if !ok {
		return
	}

	out, err := h.booking.Cancel(c.Request.Context(), id, actor(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": out.Message})
}

// GetReservationQR renders the reservation code as a PNG QR code to be
// shown at the winery.
func (h *Handler) GetReservationQR(c *gin.Context) {
	r, ok := h.reservationFor(c)
	if !ok {
		return
	}
	png, err := qrcode.Encode(r.Code, qrcode.Medium, 256)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ListReservations pages through all reservations. Admin only.
func (h *Handler) ListReservations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	reservations, err := h.store.ListReservations(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}
