package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/mw"
)

// RouterConfig holds the middleware settings of the router.
type RouterConfig struct {
	RateLimit rate.Limit
	Burst     int
	Cache     mw.ResponseCache
	CacheTTL  time.Duration
	Tokens    mw.TokenParser
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	caching := mw.Cache(cfg.Cache, cfg.CacheTTL)
	authenticated := mw.Auth(cfg.Tokens)
	optional := mw.OptionalAuth(cfg.Tokens)
	admin := mw.RequireRole(model.RoleAdmin)
	winery := mw.RequireRole(model.RoleWinery)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.Use(mw.RateLimiter(cfg.RateLimit, cfg.Burst))
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/users/me", authenticated, h.GetMe)
		api.GET("/users/me/reservations", authenticated, h.GetMyReservations)

		api.GET("/events", caching, optional, h.ListEvents)
		api.GET("/restaurants", caching, optional, h.ListRestaurants)
		api.POST("/events", authenticated, winery, h.CreateEvent)
		api.GET("/events/:id", h.GetEvent)
		api.PATCH("/events/:id", authenticated, winery, h.UpdateEvent)
		api.POST("/events/:id/cancel", authenticated, winery, h.CancelEvent)
		api.GET("/events/:id/calendar.ics", h.GetEventCalendar)
		api.GET("/events/:id/occurrences", h.ListOccurrences)
		api.POST("/events/:id/occurrences", authenticated, winery, h.CreateOccurrence)
		api.GET("/events/:id/ratings", h.ListRatings)
		api.POST("/events/:id/ratings", authenticated, h.CreateRating)
		api.POST("/occurrences/:id/cancel", authenticated, winery, h.CancelOccurrence)

		api.GET("/wineries", caching, h.ListWineries)
		api.GET("/wineries/pending", authenticated, admin, h.ListPendingWineries)
		api.GET("/wineries/:id", h.GetWinery)
		api.PATCH("/wineries/:id", authenticated, winery, h.UpdateWinery)
		api.POST("/wineries/:id/approve", authenticated, admin, h.ApproveWinery)
		api.GET("/wineries/:id/events", optional, h.ListWineryEvents)

		api.GET("/wineries/:id/wine-lines", h.ListWineLines)
		api.POST("/wineries/:id/wine-lines", authenticated, h.CreateWineLine)
		api.GET("/wineries/:id/wine-lines/:lid", h.GetWineLine)
		api.PATCH("/wineries/:id/wine-lines/:lid", authenticated, h.UpdateWineLine)
		api.DELETE("/wineries/:id/wine-lines/:lid", authenticated, h.DeleteWineLine)
		api.GET("/wineries/:id/wine-lines/:lid/wines", h.ListWines)
		api.POST("/wineries/:id/wine-lines/:lid/wines", authenticated, h.CreateWine)
		api.GET("/wineries/:id/wine-lines/:lid/wines/:wid", h.GetWine)
		api.PATCH("/wineries/:id/wine-lines/:lid/wines/:wid", authenticated, h.UpdateWine)
		api.DELETE("/wineries/:id/wine-lines/:lid/wines/:wid", authenticated, h.DeleteWine)
		api.GET("/varietals", caching, h.ListVarietals)

		api.GET("/categories", caching, h.ListCategories)
		api.POST("/categories", authenticated, admin, h.CreateCategory)
		api.GET("/tags", caching, h.ListTags)
		api.POST("/tags", authenticated, admin, h.CreateTag)

		api.POST("/reservations", authenticated, h.CreateReservation)
		api.GET("/reservations", authenticated, admin, h.ListReservations)
		api.GET("/reservations/:id", authenticated, h.GetReservation)
		api.POST("/reservations/:id/cancel", authenticated, h.CancelReservation)
		api.GET("/reservations/:id/qr", authenticated, h.GetReservationQR)

		api.GET("/subscriptions", authenticated, h.GetSubscriptions)
		api.PUT("/subscriptions", authenticated, h.PutSubscription)
		api.DELETE("/subscriptions", authenticated, h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
