package schedule

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Entry is one schedule line submitted with an event: a date range, the
// weekdays it repeats on and the time of day each occurrence spans.
type Entry struct {
	FromDate  time.Time
	ToDate    *time.Time
	StartTime time.Duration
	EndTime   time.Duration
	Weekdays  []Weekday
}

// Slot is a materialized occurrence not yet persisted.
type Slot struct {
	Start     time.Time
	End       time.Time
	Vacancies int
}

// Validate returns field errors keyed by the request field names.
func (e Entry) Validate() map[string][]string {
	errs := map[string][]string{}
	if e.FromDate.IsZero() {
		errs["from_date"] = append(errs["from_date"], "This field is required.")
	}
	if e.StartTime < 0 || e.StartTime >= day {
		errs["start_time"] = append(errs["start_time"], "Must be a time of day.")
	}
	if e.EndTime < 0 || e.EndTime >= day {
		errs["end_time"] = append(errs["end_time"], "Must be a time of day.")
	}
	if e.EndTime <= e.StartTime {
		errs["end_time"] = append(errs["end_time"], "Must be after start_time.")
	}
	for _, w := range e.Weekdays {
		if !w.Valid() {
			errs["weekdays"] = append(errs["weekdays"], fmt.Sprintf("%d is not a valid weekday.", int(w)))
		}
	}
	return errs
}

// at returns the wall-clock time clock on date d in loc. On DST transition
// days this differs from midnight plus clock.
func at(d time.Time, clock time.Duration, loc *time.Location) time.Time {
	h := int(clock / time.Hour)
	m := int(clock % time.Hour / time.Minute)
	sec := int(clock % time.Minute / time.Second)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, sec, 0, loc)
}

// Materialize expands every entry independently and combines each date
// with the entry's start and end time in loc. Overlapping entries are
// not deduplicated.
func Materialize(entries []Entry, vacancies int, loc *time.Location) ([]Slot, error) {
	if loc == nil {
		loc = time.UTC
	}
	var slots []Slot
	for i, e := range entries {
		dates, err := Expand(e.FromDate, e.ToDate, e.Weekdays)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
		for _, d := range dates {
			slots = append(slots, Slot{
				Start:     at(d, e.StartTime, loc),
				End:       at(d, e.EndTime, loc),
				Vacancies: vacancies,
			})
		}
	}
	return slots, nil
}
