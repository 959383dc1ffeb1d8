package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"winecompanion-backend/internal/model"
)

// CreateUser registers u. When winery is non-nil it is created in the
// same transaction and u becomes its owner.
func (s *gormStore) CreateUser(ctx context.Context, u *model.User, winery *model.Winery) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return ErrDuplicate
		}

		if winery != nil {
			if err := tx.Create(winery).Error; err != nil {
				return fmt.Errorf("failed to create winery: %w", err)
			}
			u.WineryID = &winery.ID
			u.Role = model.RoleWinery
		}
		if u.Role == "" {
			u.Role = model.RoleTourist
		}
		if err := tx.Omit("Winery").Create(u).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		u.Winery = winery
		return nil
	})
}

func (s *gormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Preload("Winery").First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Preload("Winery").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// CreateRating stores r unless the user already rated the event.
func (s *gormStore) CreateRating(ctx context.Context, r *model.Rating) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Rating{}).
			Where("event_id = ? AND user_id = ?", r.EventID, r.UserID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing rating: %w", err)
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Omit("Event", "User").Create(r).Error; err != nil {
			return fmt.Errorf("failed to create rating: %w", err)
		}
		return nil
	})
}

// ListRatings returns the ratings of an event with their authors, newest first.
func (s *gormStore) ListRatings(ctx context.Context, eventID uint) ([]model.Rating, error) {
	var out []model.Rating
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings of event %d: %w", eventID, err)
	}
	return out, nil
}
