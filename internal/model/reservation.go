package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus int

const (
	StatusCreated ReservationStatus = iota + 1
	StatusConfirmed
	StatusRejected
	StatusCancelled
	StatusPaidOut
)

func (s ReservationStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusConfirmed:
		return "confirmed"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	case StatusPaidOut:
		return "paid_out"
	default:
		return "unknown"
	}
}

// Reservation books AttendeeNumber places on one Occurrence. Code is the
// public reference printed on tickets.
type Reservation struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Code            string            `gorm:"size:36;uniqueIndex;not null" json:"code"`
	AttendeeNumber  int               `gorm:"not null;check:attendee_number > 0" json:"attendee_number"`
	PaidAmountCents int64             `gorm:"not null;check:paid_amount_cents >= 0" json:"paid_amount_cents"`
	Observations    string            `gorm:"size:512" json:"observations,omitempty"`
	Status          ReservationStatus `gorm:"not null;default:2;index" json:"status"`
	UserID          uint              `gorm:"index;not null" json:"user_id"`
	OccurrenceID    uint              `gorm:"index;not null" json:"occurrence_id"`
	CreatedOn       time.Time         `gorm:"autoCreateTime;<-:create;not null" json:"created_on"`
	UpdatedAt       time.Time         `json:"-"`

	// Associations
	User       *User       `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Occurrence *Occurrence `gorm:"constraint:OnDelete:RESTRICT" json:"occurrence,omitempty"`
}

// BeforeCreate assigns the public reference code.
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.Code == "" {
		r.Code = uuid.NewString()
	}
	return nil
}
