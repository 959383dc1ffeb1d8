package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/store"
)

// respondError maps domain errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, booking.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// fieldError answers 400 with a single field error.
func fieldError(c *gin.Context, field, msg string) {
	verr := &booking.ValidationError{}
	verr.Add(field, msg)
	respondError(c, verr)
}

func forbidden(c *gin.Context) {
	respondError(c, booking.ErrPermissionDenied)
}
