package store

import "time"

// WineryFilter narrows ListWineries.
type WineryFilter struct {
	Search string
	// Pending lists wineries still waiting for approval instead of the
	// approved ones.
	Pending bool
}

// WineryChanges carries the editable winery fields; nil means unchanged.
type WineryChanges struct {
	Name        *string
	Description *string
	Website     *string
}

// EventFilter narrows ListEvents. Now anchors "upcoming".
type EventFilter struct {
	Now         time.Time
	Search      string
	CategoryID  uint
	TagID       uint
	WineryID    uint
	StartAfter  *time.Time
	StartBefore *time.Time
	// Restaurants selects events in a restaurant category; otherwise
	// they are excluded.
	Restaurants bool
	// OwnerWineryID also returns that winery's cancelled or past events.
	OwnerWineryID uint
}

// CascadeFilter selects the reservations a cancellation fans out to.
type CascadeFilter struct {
	EventID      uint
	OccurrenceID uint
	// StartFrom keeps occurrences starting at or after this instant.
	StartFrom *time.Time
}
