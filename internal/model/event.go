package model

import "time"

// EventCategory classifies events (tasting, tour, restaurant...).
type EventCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// Tag is a free-form label attached to events.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// Event is a winery-hosted activity. Prices are stored in cents.
type Event struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:80;not null" json:"name"`
	Description  string     `json:"description"`
	PriceCents   int64      `gorm:"not null;default:0;check:price_cents >= 0" json:"price_cents"`
	Cancelled    *time.Time `json:"cancelled"`
	CancelReason string     `gorm:"size:512" json:"cancel_reason,omitempty"`
	WineryID     uint       `gorm:"index;not null" json:"winery_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"-"`

	// Associations
	Winery      Winery          `gorm:"constraint:OnDelete:CASCADE" json:"winery"`
	Categories  []EventCategory `gorm:"many2many:event_category_links" json:"categories"`
	Tags        []Tag           `gorm:"many2many:event_tag_links" json:"tags"`
	Occurrences []Occurrence    `gorm:"constraint:OnDelete:CASCADE" json:"occurrences,omitempty"`
}

// IsCancelled reports whether the event has been cancelled.
func (e *Event) IsCancelled() bool {
	return e.Cancelled != nil
}
