package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"winecompanion-backend/internal/parse"
)

// Weekday uses the ISO numbering: Monday = 1 ... Sunday = 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// ErrInvalidWeekday is returned for weekday values outside 1..7.
var ErrInvalidWeekday = errors.New("weekday must be between 1 (Monday) and 7 (Sunday)")

// Valid reports whether w is within 1..7.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

// WeekdayOf returns the ISO weekday of t.
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

func (w Weekday) rrule() rrule.Weekday {
	return [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}[w-1]
}

// UnmarshalJSON accepts either the number or a day name ("mon", "Friday").
func (w *Weekday) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		raw = s
	}
	n, err := parse.Weekday(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWeekday, err)
	}
	*w = Weekday(n)
	return nil
}
