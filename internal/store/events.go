package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"winecompanion-backend/internal/model"
)

const (
	futureOccurrenceClause = "EXISTS (SELECT 1 FROM occurrences o WHERE o.event_id = events.id AND o.start > ?)"
	restaurantClause       = "EXISTS (SELECT 1 FROM event_category_links l JOIN event_categories c ON c.id = l.event_category_id " +
		"WHERE l.event_id = events.id AND LOWER(c.name) LIKE '%restaurant%')"
)

// CreateEvent inserts the event with its category and tag links and the
// occurrences already attached to it.
func (s *gormStore) CreateEvent(ctx context.Context, ev *model.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Winery", "Categories.*", "Tags.*").Create(ev).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		return nil
	})
}

// UpdateEvent saves the editable fields and links of ev and appends the
// added occurrences.
func (s *gormStore) UpdateEvent(ctx context.Context, ev *model.Event, added []model.Occurrence) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(ev).Updates(map[string]any{
			"name":        ev.Name,
			"description": ev.Description,
			"price_cents": ev.PriceCents,
		}).Error; err != nil {
			return fmt.Errorf("failed to update event %d: %w", ev.ID, err)
		}
		if err := tx.Model(ev).Association("Categories").Replace(ev.Categories); err != nil {
			return fmt.Errorf("failed to update categories of event %d: %w", ev.ID, err)
		}
		if err := tx.Model(ev).Association("Tags").Replace(ev.Tags); err != nil {
			return fmt.Errorf("failed to update tags of event %d: %w", ev.ID, err)
		}
		if len(added) == 0 {
			return nil
		}
		for i := range added {
			added[i].EventID = ev.ID
		}
		if err := tx.Omit("Event").Create(&added).Error; err != nil {
			return fmt.Errorf("failed to add occurrences to event %d: %w", ev.ID, err)
		}
		ev.Occurrences = append(ev.Occurrences, added...)
		return nil
	})
}

// GetEvent loads an event with its winery, categories and tags.
func (s *gormStore) GetEvent(ctx context.Context, id uint) (*model.Event, error) {
	var ev model.Event
	err := s.db.WithContext(ctx).
		Preload("Winery").
		Preload("Categories").
		Preload("Tags").
		First(&ev, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

// GetEventWithOccurrences is GetEvent plus the occurrences starting after
// since, in chronological order.
func (s *gormStore) GetEventWithOccurrences(ctx context.Context, id uint, since time.Time) (*model.Event, error) {
	var ev model.Event
	err := s.db.WithContext(ctx).
		Preload("Winery").
		Preload("Categories").
		Preload("Tags").
		Preload("Occurrences", func(db *gorm.DB) *gorm.DB {
			return db.Where("start > ?", since.UTC()).Order("start")
		}).
		First(&ev, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

// ListEvents returns active events with at least one upcoming occurrence,
// filtered by f. The preloaded occurrences are the upcoming ones only.
func (s *gormStore) ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error) {
	now := f.Now.UTC()
	visible := "(events.cancelled IS NULL AND " + futureOccurrenceClause + ")"
	args := []any{now}
	if f.OwnerWineryID != 0 {
		visible = "(" + visible + " OR events.winery_id = ?)"
		args = append(args, f.OwnerWineryID)
	}

	q := s.db.WithContext(ctx).Model(&model.Event{}).Where(visible, args...)
	if f.Restaurants {
		q = q.Where(restaurantClause)
	} else {
		q = q.Where("NOT " + restaurantClause)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(events.name) LIKE ? OR LOWER(events.description) LIKE ?)", like, like)
	}
	if f.WineryID != 0 {
		q = q.Where("events.winery_id = ?", f.WineryID)
	}
	if f.CategoryID != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM event_category_links l WHERE l.event_id = events.id AND l.event_category_id = ?)", f.CategoryID)
	}
	if f.TagID != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM event_tag_links l WHERE l.event_id = events.id AND l.tag_id = ?)", f.TagID)
	}
	if f.StartAfter != nil {
		q = q.Where("EXISTS (SELECT 1 FROM occurrences o WHERE o.event_id = events.id AND o.start >= ?)", f.StartAfter.UTC())
	}
	if f.StartBefore != nil {
		q = q.Where("EXISTS (SELECT 1 FROM occurrences o WHERE o.event_id = events.id AND o.start <= ? AND o.start > ?)", f.StartBefore.UTC(), now)
	}

	var out []model.Event
	err := q.Preload("Winery").
		Preload("Categories").
		Preload("Tags").
		Preload("Occurrences", func(db *gorm.DB) *gorm.DB {
			return db.Where("start > ?", now).Order("start")
		}).
		Order("events.id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return out, nil
}

// MarkEventCancelled stamps the cancellation on an active event. It
// reports false when the event was already cancelled.
func (s *gormStore) MarkEventCancelled(ctx context.Context, id uint, at time.Time, reason string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND cancelled IS NULL", id).
		Updates(map[string]any{"cancelled": at, "cancel_reason": reason})
	if res.Error != nil {
		return false, fmt.Errorf("failed to cancel event %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListOccurrences returns every occurrence of an event in chronological order.
func (s *gormStore) ListOccurrences(ctx context.Context, eventID uint) ([]model.Occurrence, error) {
	var out []model.Occurrence
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("start").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list occurrences of event %d: %w", eventID, err)
	}
	return out, nil
}

// CreateOccurrence inserts a single occurrence.
func (s *gormStore) CreateOccurrence(ctx context.Context, occ *model.Occurrence) error {
	if err := s.db.WithContext(ctx).Omit("Event").Create(occ).Error; err != nil {
		return fmt.Errorf("failed to create occurrence: %w", err)
	}
	return nil
}

// GetOccurrence loads an occurrence with its event and winery.
func (s *gormStore) GetOccurrence(ctx context.Context, id uint) (*model.Occurrence, error) {
	var occ model.Occurrence
	if err := s.db.WithContext(ctx).Preload("Event.Winery").First(&occ, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &occ, nil
}

// MarkOccurrenceCancelled stamps the cancellation on an occurrence. It
// reports false when the occurrence was already cancelled.
func (s *gormStore) MarkOccurrenceCancelled(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Occurrence{}).
		Where("id = ? AND cancelled IS NULL", id).
		Update("cancelled", at)
	if res.Error != nil {
		return false, fmt.Errorf("failed to cancel occurrence %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
