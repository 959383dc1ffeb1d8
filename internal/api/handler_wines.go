package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/model"
)

type wineLineRequest struct {
	Name        string `json:"name" binding:"required,max=20"`
	Description string `json:"description"`
}

type wineRequest struct {
	Name        string         `json:"name" binding:"required,max=20"`
	Description string         `json:"description"`
	Varietal    model.Varietal `json:"varietal"`
}

// ListVarietals returns the varietals a wine can be labelled with.
func (h *Handler) ListVarietals(c *gin.Context) {
	c.JSON(http.StatusOK, model.Varietals())
}

// canEditWinery reports whether the caller may change the catalogue of
// winery id: its owner or an admin.
func canEditWinery(c *gin.Context, id uint) bool {
	who := actor(c)
	return who.WineryID == id || who.Role == model.RoleAdmin
}

// wineryFor loads the winery named by the :id parameter.
func (h *Handler) wineryFor(c *gin.Context) (*model.Winery, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	w, err := h.store.GetWinery(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return w, true
}

// lineFor loads the wine line named by :lid and checks it belongs to the
// winery named by :id.
func (h *Handler) lineFor(c *gin.Context) (*model.WineLine, bool) {
	w, ok := h.wineryFor(c)
	if !ok {
		return nil, false
	}
	lid, ok := idParam(c, "lid")
	if !ok {
		return nil, false
	}
	line, err := h.store.GetWineLine(c.Request.Context(), lid)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if line.WineryID != w.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "winery and wine line don't match"})
		return nil, false
	}
	return line, true
}

// wineFor loads the wine named by :wid within the line named by :lid.
func (h *Handler) wineFor(c *gin.Context) (*model.Wine, bool) {
	line, ok := h.lineFor(c)
	if !ok {
		return nil, false
	}
	wid, ok := idParam(c, "wid")
	if !ok {
		return nil, false
	}
	wine, err := h.store.GetWine(c.Request.Context(), wid)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if wine.WineLineID != line.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return wine, true
}

// ListWineLines lists a winery's wine lines with their wines.
func (h *Handler) ListWineLines(c *gin.Context) {
	w, ok := h.wineryFor(c)
	if !ok {
		return
	}
	lines, err := h.store.ListWineLines(c.Request.Context(), w.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

// CreateWineLine adds a line to the caller's winery.
func (h *Handler) CreateWineLine(c *gin.Context) {
	w, ok := h.wineryFor(c)
	if !ok {
		return
	}
	if !canEditWinery(c, w.ID) {
		forbidden(c)
		return
	}
	var req wineLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	line := &model.WineLine{Name: req.Name, Description: req.Description, WineryID: w.ID}
	if err := h.store.CreateWineLine(c.Request.Context(), line); err != nil {
		respondError(c, err)
		return
	}
	location := h.url("/api/wineries/%d/wine-lines/%d", w.ID, line.ID)
	c.Header("Location", location)
	c.JSON(http.StatusCreated, gin.H{"id": line.ID, "url": location})
}

func (h *Handler) GetWineLine(c *gin.Context) {
	line, ok := h.lineFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *Handler) UpdateWineLine(c *gin.Context) {
	line, ok := h.lineFor(c)
	if !ok {
		return
	}
	if !canEditWinery(c, line.WineryID) {
		forbidden(c)
		return
	}
	var req wineLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	line.Name, line.Description = req.Name, req.Description
	if err := h.store.UpdateWineLine(c.Request.Context(), line); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// DeleteWineLine removes a line and all of its wines.
func (h *Handler) DeleteWineLine(c *gin.Context) {
	line, ok := h.lineFor(c)
	if !ok {
		return
	}
	if !canEditWinery(c, line.WineryID) {
		forbidden(c)
		return
	}
	if err := h.store.DeleteWineLine(c.Request.Context(), line.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListWines(c *gin.Context) {
	line, ok := h.lineFor(c)
	if !ok {
		return
	}
	wines, err := h.store.ListWines(c.Request.Context(), line.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wines)
}

// bindWine reads a wine body. A missing varietal defaults to Merlot.
func bindWine(c *gin.Context) (wineRequest, bool) {
	var req wineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	if req.Varietal == 0 {
		req.Varietal = model.VarietalMerlot
	}
	if !req.Varietal.Valid() {
		fieldError(c, "varietal", "Not a valid choice.")
		return req, false
	}
	return req, true
}

// CreateWine adds a wine to one of the caller's wine lines.
func (h *Handler) CreateWine(c *gin.Context) {
	line, ok := h.lineFor(c)
	if !ok {
		return
	}
	if !canEditWinery(c, line.WineryID) {
		forbidden(c)
		return
	}
	req, ok := bindWine(c)
	if !ok {
		return
	}

	wine := &model.Wine{
		Name:        req.Name,
		Description: req.Description,
		Varietal:    req.Varietal,
		WineryID:    line.WineryID,
		WineLineID:  line.ID,
	}
	if err := h.store.CreateWine(c.Request.Context(), wine); err != nil {
		respondError(c, err)
		return
	}
	location := h.url("/api/wineries/%d/wine-lines/%d/wines/%d", line.WineryID, line.ID, wine.ID)
	c.Header("Location", location)
	c.JSON(http.StatusCreated, gin.H{"id": wine.ID, "url": location})
}

func (h *Handler) GetWine(c *gin.Context) {
	wine, ok := h.wineFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wine)
}

func (h *Handler) UpdateWine(c *gin.Context) {
	wine, ok := h.wineFor(c)
	if !ok {
		return
	}
	if !canEditWinery(c, wine.WineryID) {
		forbidden(c)
		return
	}
	req, ok := bindWine(c)
	if !ok {
		return
	}

	wine.Name, wine.Description, wine.Varietal = req.Name, req.Description, req.Varietal
	if err := h.store.UpdateWine(c.Request.Context(), wine); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wine)
}

func (h *Handler) DeleteWine(c *gin.Context) {
	wine, ok := h.wineFor(c)
	if !ok {
		return
	}
	if !canEditWinery(c, wine.WineryID) {
		forbidden(c)
		return
	}
	if err := h.store.DeleteWine(c.Request.Context(), wine.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
