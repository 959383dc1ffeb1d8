package booking

import (
	"errors"
	"sort"
	"strings"
)

// NonFieldErrors is the key global validation messages are reported under.
const NonFieldErrors = "non_field_errors"

// Validation messages.
const (
	MsgInvalidPaidAmount  = "The paid amount is not valid"
	MsgNotEnoughVacancies = "Not enough vacancies for the reservation"
	MsgDateNotAvailable   = "The date is no longer available"
	MsgEventCancelled     = "The event is cancelled"
	MsgVenueNotAvailable  = "The venue is no longer available"
	MsgGreaterThanZero    = "Must be greater than zero"
	MsgNotNegative        = "Must not be negative"
)

var (
	// ErrNotFound is returned when the reservation, occurrence or event
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when the acting user does not own
	// the reservation or event.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError collects every rule a request broke, keyed by field.
// Messages not tied to a field are under NonFieldErrors.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// AddGlobal records a message that is not tied to a field.
func (e *ValidationError) AddGlobal(msg string) {
	e.Add(NonFieldErrors, msg)
}

// Empty reports whether nothing was recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Has reports whether msg was recorded against field.
func (e *ValidationError) Has(field, msg string) bool {
	for _, m := range e.Fields[field] {
		if m == msg {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
