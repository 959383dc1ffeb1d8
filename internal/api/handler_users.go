package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/auth"
	"winecompanion-backend/internal/mw"
	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/notification"
	"winecompanion-backend/internal/store"
)

type wineryRequest struct {
	Name        string `json:"name" binding:"required,max=30"`
	Description string `json:"description"`
	Website     string `json:"website" binding:"omitempty,url"`
}

type registerRequest struct {
	Email     string         `json:"email" binding:"required,email"`
	Password  string         `json:"password" binding:"required,min=8"`
	FirstName string         `json:"first_name" binding:"max=64"`
	LastName  string         `json:"last_name" binding:"max=64"`
	Winery    *wineryRequest `json:"winery"`
}

// Register creates a tourist account, or a winery owner account together
// with its (not yet approved) winery.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	u := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	var winery *model.Winery
	if req.Winery != nil {
		winery = &model.Winery{Name: req.Winery.Name, Description: req.Winery.Description, Website: req.Winery.Website}
	}

	if err := h.store.CreateUser(c.Request.Context(), u, winery); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			fieldError(c, "email", "A user with this email already exists.")
			return
		}
		respondError(c, err)
		return
	}

	welcome := map[string]any{"first_name": u.FirstName}
	if winery != nil {
		welcome["winery"] = winery.Name
	}
	if err := h.notifier.Notify(c.Request.Context(), notification.Notification{
		To:       notification.Recipient{UserID: u.ID, Email: u.Email, Name: u.FullName()},
		Template: notification.TemplateWelcome,
		Context:  welcome,
	}); err != nil {
		log.Printf("Failed to send welcome to user %d: %v", u.ID, err)
	}

	c.Header("Location", h.url("/api/users/me"))
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for an access token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(c, err)
		return
	}
	if u == nil || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.issuer.Issue(u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   exp,
		"user":         u,
	})
}

// GetMe returns the caller's account.
func (h *Handler) GetMe(c *gin.Context) {
	id, _ := mw.CurrentUser(c)
	u, err := h.store.GetUser(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GetMyReservations lists the caller's reservations, newest first.
func (h *Handler) GetMyReservations(c *gin.Context) {
	id, _ := mw.CurrentUser(c)
	reservations, err := h.store.ListUserReservations(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}
