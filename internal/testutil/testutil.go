// Package testutil provides an in-memory SQLite database and fixtures for
// tests across packages.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"winecompanion-backend/internal/db"
	"winecompanion-backend/internal/model"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
// It uses a single connection, so code under test must not query outside
// an open transaction's handle.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// Fixture is a small world: an approved winery with its owner, two
// tourists and one event priced at 500.00.
type Fixture struct {
	DB      *gorm.DB
	Winery  model.Winery
	Owner   model.User
	Tourist model.User
	Other   model.User
	Event   model.Event
}

// Seed creates the fixture rows. now stamps the winery approval.
func Seed(t testing.TB, gormDB *gorm.DB, now time.Time) *Fixture {
	t.Helper()
	f := &Fixture{DB: gormDB}

	approved := now.Add(-30 * 24 * time.Hour)
	f.Winery = model.Winery{Name: "Bodega Norton", Description: "Malbec since 1895", AvailableSince: &approved}
	require.NoError(t, gormDB.Create(&f.Winery).Error)

	f.Owner = model.User{Email: "owner@norton.example", PasswordHash: "x", FirstName: "Olga", LastName: "Owner", Role: model.RoleWinery, WineryID: &f.Winery.ID}
	f.Tourist = model.User{Email: "tina@example.com", PasswordHash: "x", FirstName: "Tina", LastName: "Tourist", Role: model.RoleTourist}
	f.Other = model.User{Email: "oscar@example.com", PasswordHash: "x", FirstName: "Oscar", Role: model.RoleTourist}
	for _, u := range []*model.User{&f.Owner, &f.Tourist, &f.Other} {
		require.NoError(t, gormDB.Omit("Winery").Create(u).Error)
	}

	f.Event = model.Event{Name: "Malbec tasting", Description: "Five wines", PriceCents: 50000, WineryID: f.Winery.ID}
	require.NoError(t, gormDB.Omit("Winery").Create(&f.Event).Error)
	f.Event.Winery = f.Winery
	return f
}

// AddOccurrence attaches an occurrence of two hours to the fixture event.
func (f *Fixture) AddOccurrence(t testing.TB, start time.Time, vacancies int) model.Occurrence {
	t.Helper()
	occ := model.Occurrence{
		EventID:   f.Event.ID,
		Start:     start,
		End:       start.Add(2 * time.Hour),
		Vacancies: vacancies,
		Capacity:  vacancies,
	}
	require.NoError(t, f.DB.Omit("Event").Create(&occ).Error)
	return occ
}

// AddReservation books attendees on occ for user, taking the vacancies
// off the occurrence the way a real booking does.
func (f *Fixture) AddReservation(t testing.TB, occ model.Occurrence, user model.User, attendees int) model.Reservation {
	t.Helper()
	r := model.Reservation{
		AttendeeNumber:  attendees,
		PaidAmountCents: int64(attendees) * f.Event.PriceCents,
		Status:          model.StatusConfirmed,
		UserID:          user.ID,
		OccurrenceID:    occ.ID,
	}
	require.NoError(t, f.DB.Omit("User", "Occurrence").Create(&r).Error)
	require.NoError(t, f.DB.Model(&model.Occurrence{}).
		Where("id = ?", occ.ID).
		Update("vacancies", gorm.Expr("vacancies - ?", attendees)).Error)
	return r
}

// Vacancies reads the current vacancies of an occurrence.
func (f *Fixture) Vacancies(t testing.TB, occurrenceID uint) int {
	t.Helper()
	var occ model.Occurrence
	require.NoError(t, f.DB.Select("vacancies").First(&occ, occurrenceID).Error)
	return occ.Vacancies
}

// Status reads the current status of a reservation.
func (f *Fixture) Status(t testing.TB, reservationID uint) model.ReservationStatus {
	t.Helper()
	var r model.Reservation
	require.NoError(t, f.DB.Select("status").First(&r, reservationID).Error)
	return r.Status
}
