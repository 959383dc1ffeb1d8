package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"winecompanion-backend/internal/model"
)

// CreateReservation inserts r and takes its attendees off the occurrence
// in one transaction. The decrement is guarded by the remaining
// vacancies, so a concurrent booking that got there first makes this one
// fail with ErrInsufficientVacancies and nothing is written. It returns
// the vacancies left after the booking.
func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) (int, error) {
	var remaining int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Occurrence{}).
			Where("id = ? AND vacancies >= ?", r.OccurrenceID, r.AttendeeNumber).
			Update("vacancies", gorm.Expr("vacancies - ?", r.AttendeeNumber))
		if res.Error != nil {
			return fmt.Errorf("failed to take vacancies from occurrence %d: %w", r.OccurrenceID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientVacancies
		}

		if err := tx.Omit("User", "Occurrence").Create(r).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		var occ model.Occurrence
		if err := tx.Select("vacancies").First(&occ, r.OccurrenceID).Error; err != nil {
			return fmt.Errorf("failed to read vacancies of occurrence %d: %w", r.OccurrenceID, err)
		}
		remaining = occ.Vacancies
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// GetReservation loads a reservation with its user and occurrence,
// including the event and winery.
func (s *gormStore) GetReservation(ctx context.Context, id uint) (*model.Reservation, error) {
	var r model.Reservation
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Occurrence.Event.Winery").
		First(&r, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

// CancelReservation flips the reservation to Cancelled and gives its
// attendees back to the occurrence, never above the occurrence capacity.
// It reports false without touching anything when the reservation was
// already cancelled.
func (s *gormStore) CancelReservation(ctx context.Context, id uint) (bool, error) {
	cancelled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.Reservation
		if err := tx.Select("id", "occurrence_id", "attendee_number").First(&r, id).Error; err != nil {
			return notFound(err)
		}

		res := tx.Model(&model.Reservation{}).
			Where("id = ? AND status <> ?", id, model.StatusCancelled).
			Update("status", model.StatusCancelled)
		if res.Error != nil {
			return fmt.Errorf("failed to cancel reservation %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		res = tx.Model(&model.Occurrence{}).
			Where("id = ?", r.OccurrenceID).
			Update("vacancies", gorm.Expr(
				"CASE WHEN vacancies + ? > capacity THEN capacity ELSE vacancies + ? END",
				r.AttendeeNumber, r.AttendeeNumber,
			))
		if res.Error != nil {
			return fmt.Errorf("failed to return vacancies to occurrence %d: %w", r.OccurrenceID, res.Error)
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return cancelled, nil
}

// ListActiveReservations returns the not-yet-cancelled reservations a
// cancellation fans out to, oldest first.
func (s *gormStore) ListActiveReservations(ctx context.Context, f CascadeFilter) ([]model.Reservation, error) {
	q := s.db.WithContext(ctx).
		Joins("JOIN occurrences ON occurrences.id = reservations.occurrence_id").
		Where("reservations.status <> ?", model.StatusCancelled)
	if f.EventID != 0 {
		q = q.Where("occurrences.event_id = ?", f.EventID)
	}
	if f.OccurrenceID != 0 {
		q = q.Where("occurrences.id = ?", f.OccurrenceID)
	}
	if f.StartFrom != nil {
		q = q.Where("occurrences.start >= ?", f.StartFrom.UTC())
	}

	var out []model.Reservation
	err := q.Preload("User").
		Preload("Occurrence.Event.Winery").
		Order("reservations.id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations to cancel: %w", err)
	}
	return out, nil
}

// ListUserReservations returns a user's reservations, newest first.
func (s *gormStore) ListUserReservations(ctx context.Context, userID uint) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).
		Preload("Occurrence.Event").
		Where("user_id = ?", userID).
		Order("created_on DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations of user %d: %w", userID, err)
	}
	return out, nil
}

// ListReservations pages through every reservation, newest first.
func (s *gormStore) ListReservations(ctx context.Context, limit, offset int) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).
		Preload("Occurrence").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return out, nil
}
