package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"winecompanion-backend/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique business key already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrInsufficientVacancies is returned when the guarded capacity
	// decrement matched no row.
	ErrInsufficientVacancies = errors.New("not enough vacancies")
)

// Store defines the interface for all database operations.
type Store interface {
	// Wineries and catalog
	ListWineries(ctx context.Context, f WineryFilter) ([]model.Winery, error)
	GetWinery(ctx context.Context, id uint) (*model.Winery, error)
	UpdateWinery(ctx context.Context, id uint, changes WineryChanges) (*model.Winery, error)
	ApproveWinery(ctx context.Context, id uint, at time.Time) (*model.Winery, error)
	ListCategories(ctx context.Context) ([]model.EventCategory, error)
	CreateCategory(ctx context.Context, c *model.EventCategory) error
	FindCategories(ctx context.Context, ids []uint) ([]model.EventCategory, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, t *model.Tag) error
	FindTags(ctx context.Context, ids []uint) ([]model.Tag, error)

	// Wine catalogue
	ListWineLines(ctx context.Context, wineryID uint) ([]model.WineLine, error)
	GetWineLine(ctx context.Context, id uint) (*model.WineLine, error)
	CreateWineLine(ctx context.Context, line *model.WineLine) error
	UpdateWineLine(ctx context.Context, line *model.WineLine) error
	DeleteWineLine(ctx context.Context, id uint) error
	ListWines(ctx context.Context, lineID uint) ([]model.Wine, error)
	GetWine(ctx context.Context, id uint) (*model.Wine, error)
	CreateWine(ctx context.Context, w *model.Wine) error
	UpdateWine(ctx context.Context, w *model.Wine) error
	DeleteWine(ctx context.Context, id uint) error

	// Events and occurrences
	CreateEvent(ctx context.Context, ev *model.Event) error
	UpdateEvent(ctx context.Context, ev *model.Event, added []model.Occurrence) error
	GetEvent(ctx context.Context, id uint) (*model.Event, error)
	GetEventWithOccurrences(ctx context.Context, id uint, since time.Time) (*model.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error)
	MarkEventCancelled(ctx context.Context, id uint, at time.Time, reason string) (bool, error)
	ListOccurrences(ctx context.Context, eventID uint) ([]model.Occurrence, error)
	CreateOccurrence(ctx context.Context, occ *model.Occurrence) error
	GetOccurrence(ctx context.Context, id uint) (*model.Occurrence, error)
	MarkOccurrenceCancelled(ctx context.Context, id uint, at time.Time) (bool, error)

	// Reservations
	CreateReservation(ctx context.Context, r *model.Reservation) (int, error)
	GetReservation(ctx context.Context, id uint) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id uint) (bool, error)
	ListActiveReservations(ctx context.Context, f CascadeFilter) ([]model.Reservation, error)
	ListUserReservations(ctx context.Context, userID uint) ([]model.Reservation, error)
	ListReservations(ctx context.Context, limit, offset int) ([]model.Reservation, error)

	// Users and ratings
	CreateUser(ctx context.Context, u *model.User, winery *model.Winery) error
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateRating(ctx context.Context, r *model.Rating) error
	ListRatings(ctx context.Context, eventID uint) ([]model.Rating, error)

	// Push subscriptions
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListUserSubscriptions(ctx context.Context, userID uint) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// notFound maps gorm's sentinel to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
