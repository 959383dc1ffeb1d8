package model

import "time"

// Winery is a producer hosting events. A nil AvailableSince means the
// winery is still waiting for admin approval.
type Winery struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"size:30;not null" json:"name"`
	Description    string     `json:"description"`
	Website        string     `gorm:"size:256" json:"website"`
	AvailableSince *time.Time `json:"available_since"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"-"`

	WineLines []WineLine `gorm:"constraint:OnDelete:CASCADE" json:"wine_lines,omitempty"`
}

// Approved reports whether the winery can publish events.
func (w *Winery) Approved() bool {
	return w.AvailableSince != nil
}
