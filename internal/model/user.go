package model

import (
	"strings"
	"time"
)

// Role decides what a user may do.
type Role string

const (
	RoleTourist Role = "TOURIST"
	RoleWinery  Role = "WINERY"
	RoleAdmin   Role = "ADMIN"
)

// User is an account. Winery owners carry the id of the winery they run.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FirstName    string    `gorm:"size:64" json:"first_name"`
	LastName     string    `gorm:"size:64" json:"last_name"`
	Role         Role      `gorm:"size:16;not null;default:TOURIST" json:"role"`
	WineryID     *uint     `gorm:"index" json:"winery_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`

	// Associations
	Winery *Winery `gorm:"constraint:OnDelete:SET NULL" json:"winery,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Owns reports whether the user runs the given winery.
func (u *User) Owns(wineryID uint) bool {
	return u.WineryID != nil && *u.WineryID == wineryID
}
