package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/notification"
	"winecompanion-backend/internal/store"
	"winecompanion-backend/internal/testutil"
)

var now = time.Date(2019, 8, 20, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) all() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Notification(nil), r.sent...)
}

func setup(t *testing.T, opts ...booking.Option) (*testutil.Fixture, *booking.Manager, *recordingNotifier) {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, now)
	n := &recordingNotifier{}
	opts = append([]booking.Option{booking.WithClock(func() time.Time { return now })}, opts...)
	return f, booking.NewManager(store.NewGormStore(db), n, opts...), n
}

func requireValidation(t *testing.T, err error) *booking.ValidationError {
	t.Helper()
	var verr *booking.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr
}

func tourist(f *testutil.Fixture) booking.Actor {
	return booking.Actor{UserID: f.Tourist.ID, Role: model.RoleTourist}
}

func owner(f *testutil.Fixture) booking.Actor {
	return booking.Actor{UserID: f.Owner.ID, WineryID: f.Winery.ID, Role: model.RoleWinery}
}

func TestCreate_Success(t *testing.T) {
	f, m, _ := setup(t)
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 10)

	got, err := m.Create(context.Background(), booking.CreateRequest{
		OccurrenceID:    occ.ID,
		AttendeeNumber:  2,
		PaidAmountCents: 100000,
		UserID:          f.Tourist.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, got.Vacancies)
	assert.NotZero(t, got.Reservation.ID)
	assert.NotEmpty(t, got.Reservation.Code)
	assert.Equal(t, model.StatusConfirmed, f.Status(t, got.Reservation.ID))
	assert.Equal(t, 8, f.Vacancies(t, occ.ID))
}

func TestCreate_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		start     time.Duration
		vacancies int
		attendees int
		paid      int64
		prepare   func(t *testing.T, f *testutil.Fixture, occ model.Occurrence)
		field     string
		want      []string
	}{
		{
			name: "paid amount does not match", start: 48 * time.Hour, vacancies: 10, attendees: 2, paid: 99999,
			field: booking.NonFieldErrors, want: []string{booking.MsgInvalidPaidAmount},
		},
		{
			name: "not enough vacancies", start: 48 * time.Hour, vacancies: 1, attendees: 2, paid: 100000,
			field: booking.NonFieldErrors, want: []string{booking.MsgNotEnoughVacancies},
		},
		{
			name: "occurrence already started", start: -time.Hour, vacancies: 10, attendees: 2, paid: 100000,
			field: booking.NonFieldErrors, want: []string{booking.MsgDateNotAvailable},
		},
		{
			name: "event cancelled", start: 48 * time.Hour, vacancies: 10, attendees: 1, paid: 50000,
			prepare: func(t *testing.T, f *testutil.Fixture, _ model.Occurrence) {
				require.NoError(t, f.DB.Model(&f.Event).Update("cancelled", now).Error)
			},
			field: booking.NonFieldErrors, want: []string{booking.MsgEventCancelled},
		},
		{
			name: "occurrence cancelled", start: 48 * time.Hour, vacancies: 10, attendees: 1, paid: 50000,
			prepare: func(t *testing.T, f *testutil.Fixture, occ model.Occurrence) {
				require.NoError(t, f.DB.Model(&model.Occurrence{}).Where("id = ?", occ.ID).Update("cancelled", now).Error)
			},
			field: booking.NonFieldErrors, want: []string{booking.MsgVenueNotAvailable},
		},
		{
			name: "no attendees", start: 48 * time.Hour, vacancies: 10, attendees: 0, paid: 0,
			field: "attendee_number", want: []string{booking.MsgGreaterThanZero},
		},
		{
			name: "every violation is reported", start: -time.Hour, vacancies: 1, attendees: 3, paid: 1,
			field: booking.NonFieldErrors,
			want:  []string{booking.MsgInvalidPaidAmount, booking.MsgNotEnoughVacancies, booking.MsgDateNotAvailable},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, m, _ := setup(t)
			occ := f.AddOccurrence(t, now.Add(tc.start), tc.vacancies)
			if tc.prepare != nil {
				tc.prepare(t, f, occ)
			}

			_, err := m.Create(context.Background(), booking.CreateRequest{
				OccurrenceID:    occ.ID,
				AttendeeNumber:  tc.attendees,
				PaidAmountCents: tc.paid,
				UserID:          f.Tourist.ID,
			})
			verr := requireValidation(t, err)
			assert.Equal(t, tc.want, verr.Fields[tc.field])
			assert.Equal(t, tc.vacancies, f.Vacancies(t, occ.ID), "vacancies must not change")

			var count int64
			require.NoError(t, f.DB.Model(&model.Reservation{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	f, m, _ := setup(t)
	ctx := context.Background()

	_, err := m.Create(ctx, booking.CreateRequest{OccurrenceID: 404, AttendeeNumber: 1, PaidAmountCents: 50000, UserID: f.Tourist.ID})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.EqualError(t, err, "occurrence 404: not found")

	_, err = m.Cancel(ctx, 404, tourist(f), "")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = m.CancelEvent(ctx, 404, owner(f), "")
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = m.CancelOccurrence(ctx, 404, owner(f), "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreate_ConcurrentBookingsNeverOverbook(t *testing.T) {
	f, m, _ := setup(t)
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 5)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(context.Background(), booking.CreateRequest{
				OccurrenceID:    occ.ID,
				AttendeeNumber:  1,
				PaidAmountCents: 50000,
				UserID:          f.Tourist.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			var verr *booking.ValidationError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &verr) && verr.Has(booking.NonFieldErrors, booking.MsgNotEnoughVacancies):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, attempts-5, rejected)
	assert.Equal(t, 0, f.Vacancies(t, occ.ID))

	var booked int64
	require.NoError(t, f.DB.Model(&model.Reservation{}).Where("occurrence_id = ?", occ.ID).Count(&booked).Error)
	assert.EqualValues(t, 5, booked)
}

// racingStore lets another booking take the last places between the
// manager's check and its write.
type racingStore struct {
	store.Store
	db *gorm.DB
}

func (s racingStore) CreateReservation(ctx context.Context, r *model.Reservation) (int, error) {
	if err := s.db.Model(&model.Occurrence{}).Where("id = ?", r.OccurrenceID).Update("vacancies", 0).Error; err != nil {
		return 0, err
	}
	return s.Store.CreateReservation(ctx, r)
}

func TestCreate_LostRaceIsAValidationError(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, now)
	m := booking.NewManager(racingStore{Store: store.NewGormStore(db), db: db}, nil,
		booking.WithClock(func() time.Time { return now }))
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 2)

	_, err := m.Create(context.Background(), booking.CreateRequest{
		OccurrenceID:    occ.ID,
		AttendeeNumber:  2,
		PaidAmountCents: 100000,
		UserID:          f.Tourist.ID,
	})
	verr := requireValidation(t, err)
	assert.True(t, verr.Has(booking.NonFieldErrors, booking.MsgNotEnoughVacancies))
	assert.Equal(t, 0, f.Vacancies(t, occ.ID))
}

func TestCancel(t *testing.T) {
	f, m, n := setup(t)
	ctx := context.Background()
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 10)
	r := f.AddReservation(t, occ, f.Tourist, 3)
	require.Equal(t, 7, f.Vacancies(t, occ.ID))

	_, err := m.Cancel(ctx, r.ID, booking.Actor{UserID: f.Other.ID}, "")
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)

	out, err := m.Cancel(ctx, r.ID, tourist(f), "")
	require.NoError(t, err)
	assert.Equal(t, booking.MsgReservationCancelled, out.Message)
	assert.False(t, out.AlreadyCancelled)
	assert.Equal(t, 10, f.Vacancies(t, occ.ID))
	assert.Equal(t, model.StatusCancelled, f.Status(t, r.ID))

	sent := n.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.TemplateReservationCancelled, sent[0].Template)
	assert.Equal(t, "tina@example.com", sent[0].To.Email)
	assert.Equal(t, "Tina", sent[0].Context["first_name"])
	assert.Equal(t, "Bodega Norton", sent[0].Context["winery"])
	assert.Equal(t, r.ID, sent[0].Context["reservation_id"])
	assert.Equal(t, "2019-08-22 12:00", sent[0].Context["date"])
	assert.Equal(t, "Cancelled by the user", sent[0].Context["reason"])

	out, err = m.Cancel(ctx, r.ID, tourist(f), "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, booking.MsgReservationAlreadyCancelled, out.Message)
	assert.True(t, out.AlreadyCancelled)
	assert.Equal(t, 10, f.Vacancies(t, occ.ID))
	assert.Len(t, n.all(), 1)

	_, err = m.Cancel(ctx, 999, tourist(f), "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCancel_NotificationFailureIsNotAnError(t *testing.T) {
	f, m, n := setup(t)
	n.err = errors.New("queue unreachable")
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 4)
	r := f.AddReservation(t, occ, f.Tourist, 1)

	out, err := m.Cancel(context.Background(), r.ID, tourist(f), "rain")
	require.NoError(t, err)
	assert.Equal(t, booking.MsgReservationCancelled, out.Message)
	assert.Equal(t, 4, f.Vacancies(t, occ.ID))
}

func TestCancelEvent_CascadesToFutureOccurrences(t *testing.T) {
	f, m, n := setup(t)
	ctx := context.Background()

	past := f.AddOccurrence(t, now.Add(-24*time.Hour), 10)
	first := f.AddOccurrence(t, now.Add(24*time.Hour), 10)
	second := f.AddOccurrence(t, now.Add(72*time.Hour), 10)

	rPast := f.AddReservation(t, past, f.Tourist, 2)
	rFirst := f.AddReservation(t, first, f.Tourist, 2)
	rSecond := f.AddReservation(t, second, f.Other, 3)

	_, err := m.CancelEvent(ctx, f.Event.ID, tourist(f), "")
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)

	out, err := m.CancelEvent(ctx, f.Event.ID, owner(f), "")
	require.NoError(t, err)
	assert.Equal(t, booking.MsgEventHasBeenCancelled, out.Message)
	assert.ElementsMatch(t, []uint{rFirst.ID, rSecond.ID}, out.Cancelled)
	assert.Empty(t, out.Failures)

	assert.Equal(t, model.StatusCancelled, f.Status(t, rFirst.ID))
	assert.Equal(t, model.StatusCancelled, f.Status(t, rSecond.ID))
	assert.Equal(t, model.StatusConfirmed, f.Status(t, rPast.ID))
	assert.Equal(t, 10, f.Vacancies(t, first.ID))
	assert.Equal(t, 10, f.Vacancies(t, second.ID))
	assert.Equal(t, 8, f.Vacancies(t, past.ID))

	var ev model.Event
	require.NoError(t, f.DB.First(&ev, f.Event.ID).Error)
	require.NotNil(t, ev.Cancelled)
	assert.Equal(t, "The event has been cancelled by the winery", ev.CancelReason)

	sent := n.all()
	require.Len(t, sent, 2)
	for _, s := range sent {
		assert.Equal(t, notification.TemplateEventCancelled, s.Template)
		assert.Equal(t, "Malbec tasting", s.Context["event"])
	}

	again, err := m.CancelEvent(ctx, f.Event.ID, owner(f), "")
	require.NoError(t, err)
	assert.Equal(t, booking.MsgEventAlreadyCancelled, again.Message)
	assert.True(t, again.AlreadyCancelled)
	assert.Len(t, n.all(), 2)

	_, err = m.CancelEvent(ctx, 4242, owner(f), "")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCancelEvent_TodayIsInTheBookingZone(t *testing.T) {
	art := time.FixedZone("ART", -3*60*60)
	f, m, _ := setup(t, booking.WithLocation(art))

	// 22:00 on the 20th in ART: still today there, tomorrow in UTC.
	tonight := f.AddOccurrence(t, time.Date(2019, 8, 21, 1, 0, 0, 0, time.UTC), 6)
	tomorrow := f.AddOccurrence(t, time.Date(2019, 8, 21, 3, 0, 0, 0, time.UTC), 6)
	rTonight := f.AddReservation(t, tonight, f.Tourist, 1)
	rTomorrow := f.AddReservation(t, tomorrow, f.Tourist, 1)

	out, err := m.CancelEvent(context.Background(), f.Event.ID, owner(f), "flooding")
	require.NoError(t, err)
	assert.Equal(t, []uint{rTomorrow.ID}, out.Cancelled)
	assert.Equal(t, model.StatusConfirmed, f.Status(t, rTonight.ID))
}

// flakyStore fails to cancel one reservation.
type flakyStore struct {
	store.Store
	failID uint
}

func (s flakyStore) CancelReservation(ctx context.Context, id uint) (bool, error) {
	if id == s.failID {
		return false, errors.New("connection reset")
	}
	return s.Store.CancelReservation(ctx, id)
}

func TestCancelEvent_ReportsFailuresAndCarriesOn(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, now)
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 10)
	r1 := f.AddReservation(t, occ, f.Tourist, 1)
	r2 := f.AddReservation(t, occ, f.Other, 1)
	r3 := f.AddReservation(t, occ, f.Tourist, 1)

	m := booking.NewManager(flakyStore{Store: store.NewGormStore(db), failID: r2.ID}, nil,
		booking.WithClock(func() time.Time { return now }))

	out, err := m.CancelEvent(context.Background(), f.Event.ID, owner(f), "storm")
	require.NoError(t, err)
	assert.Equal(t, []uint{r1.ID, r3.ID}, out.Cancelled)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, r2.ID, out.Failures[0].ReservationID)
	assert.Equal(t, model.StatusConfirmed, f.Status(t, r2.ID))
	assert.Equal(t, 9, f.Vacancies(t, occ.ID))
}

func TestCancelOccurrence(t *testing.T) {
	f, m, n := setup(t)
	ctx := context.Background()

	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 5)
	other := f.AddOccurrence(t, now.Add(72*time.Hour), 5)
	r := f.AddReservation(t, occ, f.Tourist, 2)
	untouched := f.AddReservation(t, other, f.Tourist, 2)

	_, err := m.CancelOccurrence(ctx, occ.ID, tourist(f), "")
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)

	out, err := m.CancelOccurrence(ctx, occ.ID, owner(f), "")
	require.NoError(t, err)
	assert.Equal(t, booking.MsgOccurrenceCancelled, out.Message)
	assert.Equal(t, []uint{r.ID}, out.Cancelled)
	assert.Equal(t, 5, f.Vacancies(t, occ.ID))
	assert.Equal(t, model.StatusConfirmed, f.Status(t, untouched.ID))
	assert.Len(t, n.all(), 1)

	out, err = m.CancelOccurrence(ctx, occ.ID, owner(f), "")
	require.NoError(t, err)
	assert.True(t, out.AlreadyCancelled)
	assert.Equal(t, booking.MsgOccurrenceAlreadyCancelled, out.Message)

	_, err = m.Create(ctx, booking.CreateRequest{OccurrenceID: occ.ID, AttendeeNumber: 1, PaidAmountCents: 50000, UserID: f.Tourist.ID})
	verr := requireValidation(t, err)
	assert.True(t, verr.Has(booking.NonFieldErrors, booking.MsgVenueNotAvailable))

	started := f.AddOccurrence(t, now.Add(-time.Hour), 5)
	_, err = m.CancelOccurrence(ctx, started.ID, owner(f), "")
	verr = requireValidation(t, err)
	assert.True(t, verr.Has(booking.NonFieldErrors, booking.MsgDateNotAvailable))
}

func TestValidationError(t *testing.T) {
	verr := &booking.ValidationError{}
	assert.True(t, verr.Empty())

	verr.Add("attendee_number", booking.MsgGreaterThanZero)
	verr.AddGlobal(booking.MsgInvalidPaidAmount)

	assert.False(t, verr.Empty())
	assert.True(t, verr.Has("attendee_number", booking.MsgGreaterThanZero))
	assert.False(t, verr.Has("attendee_number", booking.MsgInvalidPaidAmount))
	assert.Equal(t,
		"validation failed: attendee_number: Must be greater than zero, non_field_errors: The paid amount is not valid",
		verr.Error())
}
