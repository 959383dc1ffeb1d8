package model

import (
	"time"

	"gorm.io/gorm"
)

// Occurrence is one concrete, bookable instance of an Event.
// Vacancies is the remaining capacity; Capacity is the value the
// occurrence was created with and bounds Vacancies from above.
type Occurrence struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	EventID   uint       `gorm:"index;not null" json:"event_id"`
	Start     time.Time  `gorm:"not null;index" json:"start"`
	End       time.Time  `gorm:"not null" json:"end"`
	Vacancies int        `gorm:"not null;check:vacancies >= 0" json:"vacancies"`
	Capacity  int        `gorm:"not null" json:"capacity"`
	Cancelled *time.Time `json:"cancelled"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`

	// Associations
	Event *Event `json:"-"`
}

// IsCancelled reports whether the occurrence itself was called off.
func (o *Occurrence) IsCancelled() bool {
	return o.Cancelled != nil
}

// BeforeCreate stores instants in UTC so range filters compare consistently
// across drivers.
func (o *Occurrence) BeforeCreate(tx *gorm.DB) error {
	o.Start = o.Start.UTC()
	o.End = o.End.UTC()
	return nil
}
