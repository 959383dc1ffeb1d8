package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Expand returns the calendar dates in [from, to] that fall on one of
// weekdays, ascending and without duplicates.
//
// A nil to means a one-off date: the result is exactly [from] whatever
// weekdays holds. With a to date, an empty weekdays set matches nothing.
func Expand(from time.Time, to *time.Time, weekdays []Weekday) ([]time.Time, error) {
	start := Day(from)
	if to == nil {
		return []time.Time{start}, nil
	}

	byday, err := rruleWeekdays(weekdays)
	if err != nil {
		return nil, err
	}
	until := Day(*to)
	// rrule treats an empty BYDAY as "every day".
	if len(byday) == 0 || until.Before(start) {
		return []time.Time{}, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Interval:  1,
		Dtstart:   start,
		Until:     until,
		Byweekday: byday,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	dates := rule.All()
	for i := range dates {
		dates[i] = Day(dates[i])
	}
	return dates, nil
}

func rruleWeekdays(weekdays []Weekday) ([]rrule.Weekday, error) {
	seen := make(map[Weekday]bool, len(weekdays))
	ordered := make([]Weekday, 0, len(weekdays))
	for _, w := range weekdays {
		if !w.Valid() {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidWeekday, int(w))
		}
		if !seen[w] {
			seen[w] = true
			ordered = append(ordered, w)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	out := make([]rrule.Weekday, len(ordered))
	for i, w := range ordered {
		out[i] = w.rrule()
	}
	return out, nil
}
