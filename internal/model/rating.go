package model

import "time"

// Rating is a tourist's 1..5 score for an event. A user rates an event
// at most once.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_ratings_event_user" json:"event_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_ratings_event_user" json:"user_id"`
	Rate      int       `gorm:"not null;check:rate BETWEEN 1 AND 5" json:"rate"`
	Comment   string    `gorm:"size:1024" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	// Associations
	Event *Event `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User  *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
