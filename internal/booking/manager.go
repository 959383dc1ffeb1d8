// Package booking implements the reservation lifecycle: booking places on
// an occurrence, cancelling a reservation, and cancelling a whole event or
// a single occurrence with the cascade to its reservations.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/notification"
	"winecompanion-backend/internal/store"
)

// Outcome messages.
const (
	MsgReservationAlreadyCancelled = "The reservation was already cancelled"
	MsgReservationCancelled        = "The reservation has been cancelled"
	MsgEventAlreadyCancelled       = "Event already cancelled"
	MsgEventHasBeenCancelled       = "The event has been cancelled"
	MsgOccurrenceAlreadyCancelled  = "Occurrence already cancelled"
	MsgOccurrenceCancelled         = "The occurrence has been cancelled"
)

const dateLayout = "2006-01-02 15:04"

// Actor is the authenticated user an operation runs on behalf of.
type Actor struct {
	UserID   uint
	WineryID uint
	Role     model.Role
}

func (a Actor) owns(wineryID uint) bool {
	return a.WineryID != 0 && a.WineryID == wineryID
}

// Manager runs the reservation lifecycle on top of a Store. Notifications
// are sent after the change is committed; failing to send one is logged
// and does not fail the operation.
type Manager struct {
	store    store.Store
	notifier notification.Notifier
	now      func() time.Time
	loc      *time.Location

	cancelReason      string
	eventCancelReason string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLocation sets the zone "today" and notification dates refer to.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithReasons sets the reasons used when the caller gives none.
func WithReasons(cancel, eventCancel string) Option {
	return func(m *Manager) {
		if cancel != "" {
			m.cancelReason = cancel
		}
		if eventCancel != "" {
			m.eventCancelReason = eventCancel
		}
	}
}

// NewManager creates a Manager. A nil notifier discards notifications.
func NewManager(s store.Store, n notification.Notifier, opts ...Option) *Manager {
	if n == nil {
		n = notification.Noop{}
	}
	m := &Manager{
		store:             s,
		notifier:          n,
		now:               time.Now,
		loc:               time.UTC,
		cancelReason:      "Cancelled by the user",
		eventCancelReason: "The event has been cancelled by the winery",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRequest is a booking of AttendeeNumber places on an occurrence.
type CreateRequest struct {
	OccurrenceID    uint
	AttendeeNumber  int
	PaidAmountCents int64
	UserID          uint
	Observations    string
}

// Created is the result of a successful booking.
type Created struct {
	Reservation *model.Reservation
	// Vacancies left on the occurrence after the booking.
	Vacancies int
}

// Create validates req against the occurrence and books it. Every broken
// rule is reported in one *ValidationError. Losing the race for the last
// places to a concurrent booking is reported the same way as not having
// enough vacancies in the first place.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	occ, err := m.store.GetOccurrence(ctx, req.OccurrenceID)
	if err != nil {
		return nil, lookupErr(err, "occurrence", req.OccurrenceID)
	}
	if occ.Event == nil {
		return nil, fmt.Errorf("occurrence %d has no event", occ.ID)
	}

	if verr := m.validate(occ, req); !verr.Empty() {
		return nil, verr
	}

	r := &model.Reservation{
		AttendeeNumber:  req.AttendeeNumber,
		PaidAmountCents: req.PaidAmountCents,
		Observations:    req.Observations,
		Status:          model.StatusConfirmed,
		UserID:          req.UserID,
		OccurrenceID:    occ.ID,
	}
	remaining, err := m.store.CreateReservation(ctx, r)
	if errors.Is(err, store.ErrInsufficientVacancies) {
		verr := &ValidationError{}
		verr.AddGlobal(MsgNotEnoughVacancies)
		return nil, verr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to book occurrence %d: %w", occ.ID, err)
	}

	occ.Vacancies = remaining
	r.Occurrence = occ
	return &Created{Reservation: r, Vacancies: remaining}, nil
}

func (m *Manager) validate(occ *model.Occurrence, req CreateRequest) *ValidationError {
	verr := &ValidationError{}
	if req.PaidAmountCents < 0 {
		verr.Add("paid_amount", MsgNotNegative)
	}
	if occ.Event.PriceCents*int64(req.AttendeeNumber) != req.PaidAmountCents {
		verr.AddGlobal(MsgInvalidPaidAmount)
	}
	if occ.Vacancies < req.AttendeeNumber {
		verr.AddGlobal(MsgNotEnoughVacancies)
	}
	if !occ.Start.After(m.now()) {
		verr.AddGlobal(MsgDateNotAvailable)
	}
	if occ.Event.IsCancelled() {
		verr.AddGlobal(MsgEventCancelled)
	}
	if occ.IsCancelled() {
		verr.AddGlobal(MsgVenueNotAvailable)
	}
	if req.AttendeeNumber <= 0 {
		verr.Add("attendee_number", MsgGreaterThanZero)
	}
	return verr
}

// Outcome reports how a cancellation went. AlreadyCancelled marks a no-op.
type Outcome struct {
	Message          string
	AlreadyCancelled bool
}

// Cancel cancels a reservation on behalf of its own user. Only that user
// may cancel it; anyone else gets ErrPermissionDenied. Cancelling twice is
// not an error.
func (m *Manager) Cancel(ctx context.Context, reservationID uint, actor Actor, reason string) (Outcome, error) {
	r, err := m.store.GetReservation(ctx, reservationID)
	if err != nil {
		return Outcome{}, lookupErr(err, "reservation", reservationID)
	}
	if r.UserID != actor.UserID {
		return Outcome{}, ErrPermissionDenied
	}
	if r.Status == model.StatusCancelled {
		return Outcome{Message: MsgReservationAlreadyCancelled, AlreadyCancelled: true}, nil
	}

	if reason == "" {
		reason = m.cancelReason
	}
	changed, err := m.cancelReservation(ctx, r, reason, notification.TemplateReservationCancelled)
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{Message: MsgReservationAlreadyCancelled, AlreadyCancelled: true}, nil
	}
	return Outcome{Message: MsgReservationCancelled}, nil
}

// CascadeFailure is a reservation a cascade could not cancel.
type CascadeFailure struct {
	ReservationID uint
	Err           error
}

// CascadeOutcome reports an event or occurrence cancellation. Cancelled
// lists the reservations cancelled by the cascade.
type CascadeOutcome struct {
	Message          string
	AlreadyCancelled bool
	Cancelled        []uint
	Failures         []CascadeFailure
}

// CancelEvent cancels an event on behalf of the winery running it and
// cancels the active reservations on its occurrences from tomorrow on.
// Today's and past occurrences keep their reservations. A reservation that
// fails to cancel is reported in Failures and the cascade carries on.
func (m *Manager) CancelEvent(ctx context.Context, eventID uint, actor Actor, reason string) (CascadeOutcome, error) {
	ev, err := m.store.GetEvent(ctx, eventID)
	if err != nil {
		return CascadeOutcome{}, lookupErr(err, "event", eventID)
	}
	if !actor.owns(ev.WineryID) {
		return CascadeOutcome{}, ErrPermissionDenied
	}
	if ev.IsCancelled() {
		return CascadeOutcome{Message: MsgEventAlreadyCancelled, AlreadyCancelled: true}, nil
	}

	if reason == "" {
		reason = m.eventCancelReason
	}
	changed, err := m.store.MarkEventCancelled(ctx, ev.ID, m.now(), reason)
	if err != nil {
		return CascadeOutcome{}, err
	}
	if !changed {
		return CascadeOutcome{Message: MsgEventAlreadyCancelled, AlreadyCancelled: true}, nil
	}

	from := m.tomorrow()
	reservations, err := m.store.ListActiveReservations(ctx, store.CascadeFilter{EventID: ev.ID, StartFrom: &from})
	if err != nil {
		return CascadeOutcome{}, err
	}
	out := m.cascade(ctx, reservations, reason)
	out.Message = MsgEventHasBeenCancelled
	return out, nil
}

// CancelOccurrence calls off a single occurrence of an event and cancels
// its active reservations, with the same reporting as CancelEvent.
// Occurrences that already started cannot be cancelled.
func (m *Manager) CancelOccurrence(ctx context.Context, occurrenceID uint, actor Actor, reason string) (CascadeOutcome, error) {
	occ, err := m.store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return CascadeOutcome{}, lookupErr(err, "occurrence", occurrenceID)
	}
	if occ.Event == nil || !actor.owns(occ.Event.WineryID) {
		return CascadeOutcome{}, ErrPermissionDenied
	}
	if occ.IsCancelled() {
		return CascadeOutcome{Message: MsgOccurrenceAlreadyCancelled, AlreadyCancelled: true}, nil
	}
	if !occ.Start.After(m.now()) {
		verr := &ValidationError{}
		verr.AddGlobal(MsgDateNotAvailable)
		return CascadeOutcome{}, verr
	}

	if reason == "" {
		reason = m.eventCancelReason
	}
	changed, err := m.store.MarkOccurrenceCancelled(ctx, occ.ID, m.now())
	if err != nil {
		return CascadeOutcome{}, err
	}
	if !changed {
		return CascadeOutcome{Message: MsgOccurrenceAlreadyCancelled, AlreadyCancelled: true}, nil
	}

	reservations, err := m.store.ListActiveReservations(ctx, store.CascadeFilter{OccurrenceID: occ.ID})
	if err != nil {
		return CascadeOutcome{}, err
	}
	out := m.cascade(ctx, reservations, reason)
	out.Message = MsgOccurrenceCancelled
	return out, nil
}

func (m *Manager) cascade(ctx context.Context, reservations []model.Reservation, reason string) CascadeOutcome {
	var out CascadeOutcome
	for i := range reservations {
		r := &reservations[i]
		changed, err := m.cancelReservation(ctx, r, reason, notification.TemplateEventCancelled)
		if err != nil {
			log.Printf("Failed to cancel reservation %d in cascade: %v", r.ID, err)
			out.Failures = append(out.Failures, CascadeFailure{ReservationID: r.ID, Err: err})
			continue
		}
		if changed {
			out.Cancelled = append(out.Cancelled, r.ID)
		}
	}
	if len(out.Failures) > 0 {
		log.Printf("Cascade cancelled %d reservations, %d failed", len(out.Cancelled), len(out.Failures))
	}
	return out
}

// cancelReservation flips r to Cancelled and notifies its user. It reports
// false when someone else cancelled it first.
func (m *Manager) cancelReservation(ctx context.Context, r *model.Reservation, reason, template string) (bool, error) {
	changed, err := m.store.CancelReservation(ctx, r.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("reservation %d: %w", r.ID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to cancel reservation %d: %w", r.ID, err)
	}
	if !changed {
		return false, nil
	}
	r.Status = model.StatusCancelled
	m.notify(ctx, r, reason, template)
	return true, nil
}

func (m *Manager) notify(ctx context.Context, r *model.Reservation, reason, template string) {
	if r.User == nil {
		log.Printf("Not notifying cancellation of reservation %d: user not loaded", r.ID)
		return
	}
	data := map[string]any{
		"first_name":     r.User.FirstName,
		"reservation_id": r.ID,
		"reason":         reason,
	}
	if occ := r.Occurrence; occ != nil {
		data["date"] = occ.Start.In(m.loc).Format(dateLayout)
		if occ.Event != nil {
			data["event"] = occ.Event.Name
			data["winery"] = occ.Event.Winery.Name
		}
	}

	n := notification.Notification{
		To:       notification.Recipient{UserID: r.User.ID, Email: r.User.Email, Name: r.User.FullName()},
		Template: template,
		Context:  data,
	}
	if err := m.notifier.Notify(ctx, n); err != nil {
		log.Printf("Failed to notify user %d about reservation %d: %v", r.User.ID, r.ID, err)
	}
}

// tomorrow is the first instant of the next calendar day in the booking zone.
func (m *Manager) tomorrow() time.Time {
	y, mo, d := m.now().In(m.loc).Date()
	return time.Date(y, mo, d+1, 0, 0, 0, 0, m.loc)
}

// lookupErr turns a failed load into ErrNotFound or a wrapped storage error.
func lookupErr(err error, what string, id uint) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}
