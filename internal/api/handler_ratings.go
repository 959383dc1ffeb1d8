package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/store"
)

type ratingRequest struct {
	Rate    int    `json:"rate" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1024"`
}

// CreateRating records the caller's score for an event. Each user rates
// an event once.
func (h *Handler) CreateRating(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.GetEvent(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	rating := &model.Rating{EventID: id, UserID: actor(c).UserID, Rate: req.Rate, Comment: req.Comment}
	if err := h.store.CreateRating(ctx, rating); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			fieldError(c, booking.NonFieldErrors, "You have already rated this event.")
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

// ListRatings lists an event's ratings with their authors.
func (h *Handler) ListRatings(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ratings, err := h.store.ListRatings(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratings)
}
