package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/calendar"
	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/mw"
	"winecompanion-backend/internal/parse"
	"winecompanion-backend/internal/schedule"
	"winecompanion-backend/internal/store"
)

type scheduleEntryRequest struct {
	FromDate  string             `json:"from_date"`
	ToDate    *string            `json:"to_date"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	Weekdays  []schedule.Weekday `json:"weekdays"`
}

type eventRequest struct {
	Name        string                 `json:"name" binding:"required,max=80"`
	Description string                 `json:"description"`
	PriceCents  int64                  `json:"price_cents" binding:"min=0"`
	Categories  []uint                 `json:"categories"`
	Tags        []uint                 `json:"tags"`
	Vacancies   int                    `json:"vacancies"`
	Schedule    []scheduleEntryRequest `json:"schedule"`
}

type eventUpdateRequest struct {
	Name        *string                `json:"name" binding:"omitempty,max=80"`
	Description *string                `json:"description"`
	PriceCents  *int64                 `json:"price_cents" binding:"omitempty,min=0"`
	Categories  *[]uint                `json:"categories"`
	Tags        *[]uint                `json:"tags"`
	Vacancies   int                    `json:"vacancies"`
	Schedule    []scheduleEntryRequest `json:"schedule"`
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"max=512"`
}

// entries converts the submitted schedule, recording problems under
// schedule[i].field.
func entries(reqs []scheduleEntryRequest, verr *booking.ValidationError) []schedule.Entry {
	out := make([]schedule.Entry, 0, len(reqs))
	for i, r := range reqs {
		prefix := fmt.Sprintf("schedule[%d].", i)
		bad := func(field string, err error) {
			verr.Add(prefix+field, err.Error())
		}

		var e schedule.Entry
		var err error
		parsed := true
		if e.FromDate, err = parse.Date(r.FromDate); err != nil {
			bad("from_date", err)
			parsed = false
		}
		if r.ToDate != nil && *r.ToDate != "" {
			to, err := parse.Date(*r.ToDate)
			switch {
			case err != nil:
				bad("to_date", err)
				parsed = false
			case !e.FromDate.IsZero() && to.Before(e.FromDate):
				verr.Add(prefix+"to_date", "Must not be before from_date.")
				parsed = false
			}
			e.ToDate = &to
		}
		if e.StartTime, err = parse.Clock(r.StartTime); err != nil {
			bad("start_time", err)
			parsed = false
		}
		if e.EndTime, err = parse.Clock(r.EndTime); err != nil {
			bad("end_time", err)
			parsed = false
		}
		e.Weekdays = r.Weekdays

		if parsed {
			for field, msgs := range e.Validate() {
				for _, msg := range msgs {
					verr.Add(prefix+field, msg)
				}
			}
		}
		out = append(out, e)
	}
	return out
}

// occurrences materializes a validated schedule.
func (h *Handler) occurrences(es []schedule.Entry, vacancies int) ([]model.Occurrence, error) {
	slots, err := schedule.Materialize(es, vacancies, h.loc)
	if err != nil {
		return nil, err
	}
	out := make([]model.Occurrence, 0, len(slots))
	for _, s := range slots {
		out = append(out, model.Occurrence{Start: s.Start, End: s.End, Vacancies: s.Vacancies, Capacity: s.Vacancies})
	}
	return out, nil
}

// links loads the categories and tags by id, reporting unknown ids.
func (h *Handler) links(c *gin.Context, categoryIDs, tagIDs []uint, verr *booking.ValidationError) ([]model.EventCategory, []model.Tag, error) {
	ctx := c.Request.Context()
	categories, err := h.store.FindCategories(ctx, categoryIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(categories) != len(unique(categoryIDs)) {
		verr.Add("categories", "Unknown category.")
	}
	tags, err := h.store.FindTags(ctx, tagIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(tags) != len(unique(tagIDs)) {
		verr.Add("tags", "Unknown tag.")
	}
	return categories, tags, nil
}

func unique(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// CreateEvent publishes an event of the caller's winery and creates its
// occurrences from the schedule.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	who := actor(c)
	if who.WineryID == 0 {
		forbidden(c)
		return
	}
	winery, err := h.store.GetWinery(c.Request.Context(), who.WineryID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !winery.Approved() {
		c.JSON(http.StatusForbidden, gin.H{"error": "your winery has not been approved yet"})
		return
	}

	verr := &booking.ValidationError{}
	if len(req.Schedule) == 0 {
		verr.Add("schedule", "This field is required.")
	}
	if req.Vacancies <= 0 {
		verr.Add("vacancies", booking.MsgGreaterThanZero)
	}
	es := entries(req.Schedule, verr)
	categories, tags, err := h.links(c, req.Categories, req.Tags, verr)
	if err != nil {
		respondError(c, err)
		return
	}
	if !verr.Empty() {
		respondError(c, verr)
		return
	}

	occurrences, err := h.occurrences(es, req.Vacancies)
	if err != nil {
		respondError(c, err)
		return
	}
	ev := &model.Event{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		WineryID:    winery.ID,
		Categories:  categories,
		Tags:        tags,
		Occurrences: occurrences,
	}
	if err := h.store.CreateEvent(c.Request.Context(), ev); err != nil {
		respondError(c, err)
		return
	}

	location := h.url("/api/events/%d", ev.ID)
	c.Header("Location", location)
	c.JSON(http.StatusCreated, gin.H{"id": ev.ID, "url": location, "occurrences": ev.Occurrences})
}

// UpdateEvent edits an event of the caller's winery. A schedule appends
// new occurrences; existing ones are kept.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req eventUpdateRequest
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
	if ev.IsCancelled() {
		fieldError(c, booking.NonFieldErrors, booking.MsgEventCancelled)
		return
	}

	verr := &booking.ValidationError{}
	var es []schedule.Entry
	if len(req.Schedule) > 0 {
		if req.Vacancies <= 0 {
			verr.Add("vacancies", booking.MsgGreaterThanZero)
		}
		es = entries(req.Schedule, verr)
	}
	categoryIDs, tagIDs := idsOf(ev.Categories), tagIDsOf(ev.Tags)
	if req.Categories != nil {
		categoryIDs = *req.Categories
	}
	if req.Tags != nil {
		tagIDs = *req.Tags
	}
	categories, tags, err := h.links(c, categoryIDs, tagIDs, verr)
	if err != nil {
		respondError(c, err)
		return
	}
	if !verr.Empty() {
		respondError(c, verr)
		return
	}

	if req.Name != nil {
		ev.Name = *req.Name
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.PriceCents != nil {
		ev.PriceCents = *req.PriceCents
	}
	ev.Categories, ev.Tags = categories, tags

	var added []model.Occurrence
	if len(es) > 0 {
		if added, err = h.occurrences(es, req.Vacancies); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := h.store.UpdateEvent(c.Request.Context(), ev, added); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func idsOf(categories []model.EventCategory) []uint {
	ids := make([]uint, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids
}

func tagIDsOf(tags []model.Tag) []uint {
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// eventFilter reads the list filters from the query string.
func (h *Handler) eventFilter(c *gin.Context) (store.EventFilter, bool) {
	f := store.EventFilter{Now: h.now(), Search: c.Query("search")}
	var ok bool
	if f.CategoryID, ok = queryUint(c, "category"); !ok {
		return f, false
	}
	if f.TagID, ok = queryUint(c, "tag"); !ok {
		return f, false
	}
	if f.WineryID, ok = queryUint(c, "winery"); !ok {
		return f, false
	}
	for name, dst := range map[string]**time.Time{"start_after": &f.StartAfter, "start_before": &f.StartBefore} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		d, err := parse.Date(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return f, false
		}
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, h.loc)
		if name == "start_before" {
			d = d.AddDate(0, 0, 1)
		}
		*dst = &d
	}
	if id, ok := mw.CurrentUser(c); ok {
		f.OwnerWineryID = id.WineryID
	}
	return f, true
}

func (h *Handler) listEvents(c *gin.Context, restaurants bool) {
	f, ok := h.eventFilter(c)
	if !ok {
		return
	}
	f.Restaurants = restaurants
	events, err := h.store.ListEvents(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// ListEvents lists upcoming events outside the restaurant category.
func (h *Handler) ListEvents(c *gin.Context) {
	h.listEvents(c, false)
}

// ListRestaurants lists upcoming events in a restaurant category.
func (h *Handler) ListRestaurants(c *gin.Context) {
	h.listEvents(c, true)
}

// GetEvent returns an event with its upcoming occurrences.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ev, err := h.store.GetEventWithOccurrences(c.Request.Context(), id, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// CancelEvent cancels an event of the caller's winery and its upcoming
// reservations.
func (h *Handler) CancelEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	req, ok := bindCancel(c)
	if !ok {
		return
	}

	out, err := h.booking.CancelEvent(c.Request.Context(), id, actor(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cascadeResponse(out))
}

// bindCancel reads the optional cancellation body.
func bindCancel(c *gin.Context) (cancelRequest, bool) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	return req, true
}

func cascadeResponse(out booking.CascadeOutcome) gin.H {
	failed := make([]gin.H, 0, len(out.Failures))
	for _, f := range out.Failures {
		failed = append(failed, gin.H{"reservation": f.ReservationID, "error": f.Err.Error()})
	}
	cancelled := out.Cancelled
	if cancelled == nil {
		cancelled = []uint{}
	}
	return gin.H{
		"detail":                 out.Message,
		"cancelled_reservations": cancelled,
		"failures":               failed,
	}
}

// GetEventCalendar exports the event's occurrences as iCalendar.
func (h *Handler) GetEventCalendar(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ev, err := h.store.GetEvent(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	occurrences, err := h.store.ListOccurrences(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	host := "winecompanion"
	if u, err := url.Parse(h.baseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="event-%d.ics"`, ev.ID))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.EventICS(ev, occurrences, host, h.now())))
}
