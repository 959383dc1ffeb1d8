package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))

	subjects = map[string]string{
		TemplateReservationCancelled: "Your reservation has been cancelled",
		TemplateEventCancelled:       "An event you booked has been cancelled",
		TemplateWelcome:              "Welcome to Wine Companion",
	}
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Render fills the named template with the notification context.
func Render(n Notification) (Message, error) {
	subject, ok := subjects[n.Template]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification template %q", n.Template)
	}

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, n.Template+".txt", n.Context); err != nil {
		return Message{}, fmt.Errorf("failed to render %s text: %w", n.Template, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, n.Template+".html", n.Context); err != nil {
		return Message{}, fmt.Errorf("failed to render %s html: %w", n.Template, err)
	}
	return Message{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
