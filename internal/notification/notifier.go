package notification

import "context"

// Template names understood by Render.
const (
	TemplateReservationCancelled = "reservation_cancelled"
	TemplateEventCancelled       = "event_cancelled"
	TemplateWelcome              = "welcome"
)

// Recipient identifies who a notification is for.
type Recipient struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Notification is a request to tell a user something. Context carries the
// values the template refers to.
type Notification struct {
	To       Recipient      `json:"to"`
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

// Notifier hands notifications off for delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(context.Context, Notification) error { return nil }
