package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"winecompanion-backend/internal/model"
)

// ListWineLines returns the lines of a winery with their wines.
func (s *gormStore) ListWineLines(ctx context.Context, wineryID uint) ([]model.WineLine, error) {
	out := []model.WineLine{}
	err := s.db.WithContext(ctx).
		Preload("Wines", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Where("winery_id = ?", wineryID).
		Order("name").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wine lines of winery %d: %w", wineryID, err)
	}
	return out, nil
}

func (s *gormStore) GetWineLine(ctx context.Context, id uint) (*model.WineLine, error) {
	var line model.WineLine
	if err := s.db.WithContext(ctx).Preload("Wines").First(&line, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

func (s *gormStore) CreateWineLine(ctx context.Context, line *model.WineLine) error {
	if err := s.db.WithContext(ctx).Omit("Wines").Create(line).Error; err != nil {
		return fmt.Errorf("failed to create wine line: %w", err)
	}
	return nil
}

// UpdateWineLine saves the name and description of line.
func (s *gormStore) UpdateWineLine(ctx context.Context, line *model.WineLine) error {
	res := s.db.WithContext(ctx).Model(&model.WineLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{"name": line.Name, "description": line.Description})
	if res.Error != nil {
		return fmt.Errorf("failed to update wine line %d: %w", line.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWineLine removes a line together with its wines.
func (s *gormStore) DeleteWineLine(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wine_line_id = ?", id).Delete(&model.Wine{}).Error; err != nil {
			return fmt.Errorf("failed to delete wines of line %d: %w", id, err)
		}
		res := tx.Delete(&model.WineLine{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete wine line %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *gormStore) ListWines(ctx context.Context, lineID uint) ([]model.Wine, error) {
	out := []model.Wine{}
	if err := s.db.WithContext(ctx).Where("wine_line_id = ?", lineID).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list wines of line %d: %w", lineID, err)
	}
	return out, nil
}

func (s *gormStore) GetWine(ctx context.Context, id uint) (*model.Wine, error) {
	var w model.Wine
	if err := s.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (s *gormStore) CreateWine(ctx context.Context, w *model.Wine) error {
	if err := s.db.WithContext(ctx).Omit("Winery").Create(w).Error; err != nil {
		return fmt.Errorf("failed to create wine: %w", err)
	}
	return nil
}

// UpdateWine saves the name, description and varietal of w.
func (s *gormStore) UpdateWine(ctx context.Context, w *model.Wine) error {
	res := s.db.WithContext(ctx).Model(&model.Wine{}).
		Where("id = ?", w.ID).
		Updates(map[string]any{"name": w.Name, "description": w.Description, "varietal": w.Varietal})
	if res.Error != nil {
		return fmt.Errorf("failed to update wine %d: %w", w.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteWine(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Wine{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete wine %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
