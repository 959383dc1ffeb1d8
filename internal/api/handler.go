package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/auth"
	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/mw"
	"winecompanion-backend/internal/notification"
	"winecompanion-backend/internal/store"
)

// Settings carries the handler options that come from configuration.
type Settings struct {
	// BaseURL prefixes the resource locations returned to clients.
	BaseURL string
	// Location is the zone schedule times are given in.
	Location *time.Location
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	booking  *booking.Manager
	issuer   *auth.Issuer
	notifier notification.Notifier
	webpush  *webpush.Options
	baseURL  string
	loc      *time.Location
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, m *booking.Manager, issuer *auth.Issuer, n notification.Notifier, webpushOptions *webpush.Options, settings Settings) *Handler {
	if n == nil {
		n = notification.Noop{}
	}
	loc := settings.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:    s,
		booking:  m,
		issuer:   issuer,
		notifier: n,
		webpush:  webpushOptions,
		baseURL:  strings.TrimRight(settings.BaseURL, "/"),
		loc:      loc,
		now:      time.Now,
	}
}

func (h *Handler) url(format string, args ...any) string {
	return h.baseURL + fmt.Sprintf(format, args...)
}

// idParam parses a positive numeric path parameter, answering 400 when it
// is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// actor returns the caller as seen by the booking manager. Routes using
// it are behind mw.Auth.
func actor(c *gin.Context) booking.Actor {
	id, _ := mw.CurrentUser(c)
	return booking.Actor{UserID: id.UserID, WineryID: id.WineryID, Role: id.Role}
}
