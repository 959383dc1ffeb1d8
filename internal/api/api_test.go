package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winecompanion-backend/internal/auth"
	"winecompanion-backend/internal/booking"
	"winecompanion-backend/internal/model"
	"winecompanion-backend/internal/mw"
	"winecompanion-backend/internal/notification"
	"winecompanion-backend/internal/store"
	"winecompanion-backend/internal/testutil"
)

var now = time.Date(2019, 8, 20, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Template
	}
	return out
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	fixture  *testutil.Fixture
	store    store.Store
	issuer   *auth.Issuer
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, now)
	s := store.NewGormStore(db)
	n := &recordingNotifier{}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	m := booking.NewManager(s, n, booking.WithClock(func() time.Time { return now }))

	h := NewHandler(s, m, issuer, n, &webpush.Options{VAPIDPublicKey: "public-key"}, Settings{BaseURL: "https://api.example.com/"})
	h.now = func() time.Time { return now }

	router := NewRouter(h, RouterConfig{
		RateLimit: 1000,
		Burst:     1000,
		Cache:     mw.NewMemoryCache(time.Minute, time.Minute),
		CacheTTL:  time.Minute,
		Tokens:    issuer,
	})
	return &testServer{t: t, router: router, fixture: f, store: s, issuer: issuer, notifier: n}
}

func (ts *testServer) token(u model.User) string {
	ts.t.Helper()
	token, _, err := ts.issuer.Issue(&u)
	require.NoError(ts.t, err)
	return token
}

func (ts *testServer) do(method, path string, body any, as *model.User) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(bs)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+ts.token(*as))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "new@example.com", "password": "correct horse", "first_name": "Nina",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://api.example.com/api/users/me", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "correct horse")
	assert.Equal(t, []string{notification.TemplateWelcome}, ts.notifier.templates())

	w = ts.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "new@example.com", "password": "another password",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":{"email":["A user with this email already exists."]}}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "new@example.com", "password": "wrong password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "new@example.com", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Bearer", body["token_type"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new@example.com", decode(t, rec)["email"])
}

func TestRegisterWineryOwner(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/auth/register", gin.H{
		"email": "owner@catena.example", "password": "malbec-1902",
		"winery": gin.H{"name": "Catena Zapata"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, string(model.RoleWinery), body["role"])

	w = ts.do(http.MethodGet, "/api/wineries/pending", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	admin := model.User{ID: 999, Role: model.RoleAdmin}
	w = ts.do(http.MethodGet, "/api/wineries/pending", nil, &admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Catena Zapata")
}

func TestCreateEvent(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture

	payload := gin.H{
		"name":        "Harvest dinner",
		"price_cents": 120000,
		"vacancies":   12,
		"schedule": []gin.H{{
			"from_date":  "2019-08-26",
			"to_date":    "2019-09-08",
			"start_time": "20:00",
			"end_time":   "23:00",
			"weekdays":   []any{5, "sat"},
		}},
	}

	w := ts.do(http.MethodPost, "/api/events", payload, &f.Tourist)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, "/api/events", payload, &f.Owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	occurrences, _ := body["occurrences"].([]any)
	// Fridays and Saturdays between 2019-08-26 and 2019-09-08.
	require.Len(t, occurrences, 4)
	first := occurrences[0].(map[string]any)
	assert.Equal(t, "2019-08-30T20:00:00Z", first["start"])
	assert.EqualValues(t, 12, first["vacancies"])
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://api.example.com/api/events/"))
}

func TestCreateEvent_Validation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/events", gin.H{
		"name":      "Broken",
		"vacancies": 0,
		"tags":      []int{42},
		"schedule": []gin.H{{
			"from_date":  "2019-02-30",
			"start_time": "21:00",
			"end_time":   "20:00",
		}},
	}, &ts.fixture.Owner)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{booking.MsgGreaterThanZero}, body.Errors["vacancies"])
	assert.Equal(t, []string{"Unknown tag."}, body.Errors["tags"])
	assert.Contains(t, body.Errors, "schedule[0].from_date")
	assert.NotContains(t, body.Errors, "schedule[0].end_time", "entries that fail to parse are not validated further")
}

func TestCreateEvent_UnapprovedWinery(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	require.NoError(t, f.DB.Model(&model.Winery{}).Where("id = ?", f.Winery.ID).Update("available_since", nil).Error)

	w := ts.do(http.MethodPost, "/api/events", gin.H{"name": "Too soon"}, &f.Owner)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not been approved")
}

func TestReservationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 10)

	w := ts.do(http.MethodPost, "/api/reservations", gin.H{
		"occurrence": occ.ID, "attendee_number": 2, "paid_amount_cents": 100000,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/reservations", gin.H{
		"occurrence": occ.ID, "attendee_number": 2, "paid_amount_cents": 99999,
	}, &f.Tourist)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":{"non_field_errors":["The paid amount is not valid"]}}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/reservations", gin.H{
		"occurrence": occ.ID, "attendee_number": 2, "paid_amount_cents": 100000,
	}, &f.Tourist)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 8, body["vacancies"])
	assert.NotEmpty(t, body["code"])
	id := uint(body["id"].(float64))
	path := "/api/reservations/" + jsonNumber(id)

	w = ts.do(http.MethodGet, path, nil, &f.Other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, path+"/qr", nil, &f.Tourist)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = ts.do(http.MethodPost, path+"/cancel", nil, &f.Other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, path+"/cancel", gin.H{"reason": "Flight moved"}, &f.Tourist)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"detail":"The reservation has been cancelled"}`, w.Body.String())
	assert.Equal(t, 10, f.Vacancies(t, occ.ID))

	w = ts.do(http.MethodPost, path+"/cancel", nil, &f.Tourist)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"detail":"The reservation was already cancelled"}`, w.Body.String())
	assert.Equal(t, 10, f.Vacancies(t, occ.ID))

	w = ts.do(http.MethodGet, "/api/users/me/reservations", nil, &f.Tourist)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, model.StatusCancelled, mine[0].Status)
}

func TestCancelEvent(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	later := f.AddOccurrence(t, now.Add(72*time.Hour), 10)
	today := f.AddOccurrence(t, now.Add(3*time.Hour), 10)
	r1 := f.AddReservation(t, later, f.Tourist, 2)
	r2 := f.AddReservation(t, today, f.Other, 1)

	w := ts.do(http.MethodPost, "/api/events/"+jsonNumber(f.Event.ID)+"/cancel", nil, &f.Tourist)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, "/api/events/"+jsonNumber(f.Event.ID)+"/cancel", gin.H{"reason": "Hail storm"}, &f.Owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, booking.MsgEventHasBeenCancelled, body["detail"])
	assert.Equal(t, []any{float64(r1.ID)}, body["cancelled_reservations"])
	assert.Empty(t, body["failures"])

	assert.Equal(t, model.StatusCancelled, f.Status(t, r1.ID))
	assert.Equal(t, model.StatusConfirmed, f.Status(t, r2.ID))
	assert.Equal(t, 10, f.Vacancies(t, later.ID))

	w = ts.do(http.MethodPost, "/api/events/"+jsonNumber(f.Event.ID)+"/cancel", nil, &f.Owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, booking.MsgEventAlreadyCancelled, decode(t, w)["detail"])

	w = ts.do(http.MethodPost, "/api/reservations", gin.H{
		"occurrence": later.ID, "attendee_number": 1, "paid_amount_cents": 50000,
	}, &f.Tourist)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), booking.MsgEventCancelled)
}

func TestCancelOccurrence(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	occ := f.AddOccurrence(t, now.Add(24*time.Hour), 6)
	r := f.AddReservation(t, occ, f.Tourist, 3)

	w := ts.do(http.MethodPost, "/api/occurrences/"+jsonNumber(occ.ID)+"/cancel", nil, &f.Owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, booking.MsgOccurrenceCancelled, decode(t, w)["detail"])
	assert.Equal(t, model.StatusCancelled, f.Status(t, r.ID))
	assert.Equal(t, 6, f.Vacancies(t, occ.ID))
	assert.Contains(t, ts.notifier.templates(), notification.TemplateEventCancelled)
}

func TestCreateOccurrence(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	path := "/api/events/" + jsonNumber(f.Event.ID) + "/occurrences"

	w := ts.do(http.MethodPost, path, gin.H{
		"start": now.Add(-time.Hour), "end": now.Add(-2 * time.Hour), "vacancies": 0,
	}, &f.Owner)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Errors, 3)

	w = ts.do(http.MethodPost, path, gin.H{
		"start": now.Add(24 * time.Hour), "end": now.Add(26 * time.Hour), "vacancies": 4,
	}, &f.Owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var occurrences []model.Occurrence
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &occurrences))
	require.Len(t, occurrences, 1)
	assert.Equal(t, 4, occurrences[0].Capacity)
}

func TestListEventsAndCalendar(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	f.AddOccurrence(t, now.Add(48*time.Hour), 10)

	w := ts.do(http.MethodGet, "/api/events?search=malbec", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "Malbec tasting")

	w = ts.do(http.MethodGet, "/api/events?search=malbec", nil, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = ts.do(http.MethodGet, "/api/events?start_after=nonsense", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/events/"+jsonNumber(f.Event.ID)+"/calendar.ics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/calendar"))
	assert.Contains(t, w.Body.String(), "occurrence-")
	assert.Contains(t, w.Body.String(), "@api.example.com")

	w = ts.do(http.MethodGet, "/api/events/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodGet, "/api/events/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatings(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	path := "/api/events/" + jsonNumber(f.Event.ID) + "/ratings"

	w := ts.do(http.MethodPost, path, gin.H{"rate": 6}, &f.Tourist)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, path, gin.H{"rate": 5, "comment": "Superb"}, &f.Tourist)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, path, gin.H{"rate": 4}, &f.Tourist)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "You have already rated this event.")

	w = ts.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Superb")
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	sub := gin.H{"endpoint": "https://push.example.com/abc", "p256dh": "key", "auth": "secret"}

	w := ts.do(http.MethodPut, "/api/subscriptions", sub, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": "not a url"}, &f.Tourist)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPut, "/api/subscriptions", sub, &f.Tourist)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, "/api/subscriptions", nil, &f.Tourist)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"endpoints":["https://push.example.com/abc"]}`, w.Body.String())

	w = ts.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example.com/abc"}, &f.Other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example.com/abc"}, &f.Tourist)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/vapid_public_key", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())
}

func TestGetVAPIDPublicKey_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil, nil, nil, Settings{})
	r := gin.New()
	r.GET("/api/vapid_public_key", h.GetVAPIDPublicKey)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vapid_public_key", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetEvent_ShowsCurrentVacancies(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	occ := f.AddOccurrence(t, now.Add(48*time.Hour), 10)
	path := "/api/events/" + jsonNumber(f.Event.ID)

	w := ts.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `"vacancies":10`)

	w = ts.do(http.MethodPost, "/api/reservations", gin.H{
		"occurrence": occ.ID, "attendee_number": 3, "paid_amount_cents": 150000,
	}, &f.Tourist)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"vacancies":7`)

	w = ts.do(http.MethodPost, path+"/cancel", nil, &f.Owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, path+"/calendar.ics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "STATUS:CANCELLED")
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/events", nil)

	respondError(c, errors.New(`pq: relation "events" does not exist`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func jsonNumber(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestWineCatalogue(t *testing.T) {
	ts := newTestServer(t)
	f := ts.fixture
	base := "/api/wineries/" + jsonNumber(f.Winery.ID) + "/wine-lines"

	w := ts.do(http.MethodGet, "/api/varietals", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `{"id":1,"value":"Malbec"}`)

	w = ts.do(http.MethodPost, base, gin.H{"name": "Reserva"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(http.MethodPost, base, gin.H{"name": "Reserva"}, &f.Tourist)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, base, gin.H{"name": "Reserva", "description": "Oak aged"}, &f.Owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lineID := uint(decode(t, w)["id"].(float64))
	linePath := base + "/" + jsonNumber(lineID)

	w = ts.do(http.MethodPost, linePath+"/wines", gin.H{"name": "Blend", "varietal": 9}, &f.Owner)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":{"varietal":["Not a valid choice."]}}`, w.Body.String())

	w = ts.do(http.MethodPost, linePath+"/wines", gin.H{"name": "Gran Malbec", "varietal": 1}, &f.Owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wineID := uint(decode(t, w)["id"].(float64))

	w = ts.do(http.MethodPost, linePath+"/wines", gin.H{"name": "House red"}, &f.Owner)
	require.Equal(t, http.StatusCreated, w.Code)
	houseID := uint(decode(t, w)["id"].(float64))
	w = ts.do(http.MethodGet, linePath+"/wines/"+jsonNumber(houseID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, model.VarietalMerlot, decode(t, w)["varietal"])

	w = ts.do(http.MethodGet, "/api/wineries/"+jsonNumber(f.Winery.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gran Malbec")

	w = ts.do(http.MethodPatch, linePath+"/wines/"+jsonNumber(wineID), gin.H{"name": "Gran Malbec", "varietal": 5}, &f.Tourist)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(http.MethodPatch, linePath+"/wines/"+jsonNumber(wineID), gin.H{"name": "Gran Malbec", "varietal": 5}, &f.Owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, model.VarietalOther, decode(t, w)["varietal"])

	other := model.Winery{Name: "Catena Zapata"}
	require.NoError(t, f.DB.Create(&other).Error)
	w = ts.do(http.MethodGet, "/api/wineries/"+jsonNumber(other.ID)+"/wine-lines/"+jsonNumber(lineID), nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "don't match")

	w = ts.do(http.MethodDelete, linePath, nil, &f.Owner)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodGet, linePath+"/wines/"+jsonNumber(wineID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
