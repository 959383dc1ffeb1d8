package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"winecompanion-backend/internal/model"
)

// ListWineries returns approved wineries, or pending ones when f.Pending
// is set, ordered by name.
func (s *gormStore) ListWineries(ctx context.Context, f WineryFilter) ([]model.Winery, error) {
	q := s.db.WithContext(ctx)
	if f.Pending {
		q = q.Where("available_since IS NULL")
	} else {
		q = q.Where("available_since IS NOT NULL")
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var out []model.Winery
	if err := q.Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list wineries: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetWinery(ctx context.Context, id uint) (*model.Winery, error) {
	var w model.Winery
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// UpdateWinery applies the non-nil changes and returns the stored row.
func (s *gormStore) UpdateWinery(ctx context.Context, id uint, changes WineryChanges) (*model.Winery, error) {
	updates := map[string]any{}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Description != nil {
		updates["description"] = *changes.Description
	}
	if changes.Website != nil {
		updates["website"] = *changes.Website
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&model.Winery{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update winery %d: %w", id, res.Error)
		}
	}
	return s.GetWinery(ctx, id)
}

// ApproveWinery sets available_since unless the winery is already approved.
func (s *gormStore) ApproveWinery(ctx context.Context, id uint, at time.Time) (*model.Winery, error) {
	res := s.db.WithContext(ctx).Model(&model.Winery{}).
		Where("id = ? AND available_since IS NULL", id).
		Update("available_since", at)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to approve winery %d: %w", id, res.Error)
	}
	return s.GetWinery(ctx, id)
}

func (s *gormStore) ListCategories(ctx context.Context) ([]model.EventCategory, error) {
	var out []model.EventCategory
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return out, nil
}

// CreateCategory inserts c, rejecting names already in use.
func (s *gormStore) CreateCategory(ctx context.Context, c *model.EventCategory) error {
	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.EventCategory{}).Where("LOWER(name) = ?", strings.ToLower(c.Name)).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check category name: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}
	if err := db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// FindCategories loads the categories with the given ids. Unknown ids are
// absent from the result.
func (s *gormStore) FindCategories(ctx context.Context, ids []uint) ([]model.EventCategory, error) {
	out := []model.EventCategory{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return out, nil
}

func (s *gormStore) ListTags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return out, nil
}

// CreateTag inserts t, rejecting names already in use.
func (s *gormStore) CreateTag(ctx context.Context, t *model.Tag) error {
	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Tag{}).Where("LOWER(name) = ?", strings.ToLower(t.Name)).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check tag name: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}
	if err := db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

// FindTags loads the tags with the given ids. Unknown ids are absent from
// the result.
func (s *gormStore) FindTags(ctx context.Context, ids []uint) ([]model.Tag, error) {
	out := []model.Tag{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	return out, nil
}
