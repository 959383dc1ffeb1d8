package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/mw"
	"winecompanion-backend/internal/store"
)

// ListWineries lists approved wineries, optionally matching ?search=.
func (h *Handler) ListWineries(c *gin.Context) {
	wineries, err := h.store.ListWineries(c.Request.Context(), store.WineryFilter{Search: c.Query("search")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wineries)
}

// ListPendingWineries lists wineries waiting for approval. Admin only.
func (h *Handler) ListPendingWineries(c *gin.Context) {
	wineries, err := h.store.ListWineries(c.Request.Context(), store.WineryFilter{Search: c.Query("search"), Pending: true})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wineries)
}

// GetWinery returns a winery with its wine catalogue.
func (h *Handler) GetWinery(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	w, err := h.store.GetWinery(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if w.WineLines, err = h.store.ListWineLines(ctx, w.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

type wineryUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=30"`
	Description *string `json:"description"`
	Website     *string `json:"website" binding:"omitempty,url"`
}

// UpdateWinery edits the caller's own winery.
func (h *Handler) UpdateWinery(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if actor(c).WineryID != id {
		forbidden(c)
		return
	}
	var req wineryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.store.UpdateWinery(c.Request.Context(), id, store.WineryChanges{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// ApproveWinery lets a winery publish events. Admin only.
func (h *Handler) ApproveWinery(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	w, err := h.store.ApproveWinery(c.Request.Context(), id, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// ListWineryEvents lists the upcoming events of one winery, restaurants
// included. The owner also sees past and cancelled ones.
func (h *Handler) ListWineryEvents(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	f := store.EventFilter{Now: h.now(), WineryID: id}
	if who, ok := mw.CurrentUser(c); ok && who.WineryID == id {
		f.OwnerWineryID = id
	}

	ctx := c.Request.Context()
	events, err := h.store.ListEvents(ctx, f)
	if err != nil {
		respondError(c, err)
		return
	}
	f.Restaurants = true
	restaurants, err := h.store.ListEvents(ctx, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, append(events, restaurants...))
}

type nameRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.store.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory adds an event category. Admin only.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category := &model.EventCategory{Name: req.Name}
	if err := h.store.CreateCategory(c.Request.Context(), category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			fieldError(c, "name", "A category with this name already exists.")
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.store.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// CreateTag adds a tag. Admin only.
func (h *Handler) CreateTag(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tag := &model.Tag{Name: req.Name}
	if err := h.store.CreateTag(c.Request.Context(), tag); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			fieldError(c, "name", "A tag with this name already exists.")
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}
