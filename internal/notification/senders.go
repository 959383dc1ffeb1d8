package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/mailjet/mailjet-apiv3-go"

	"winecompanion-backend/internal/model"
)

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n Notification, msg Message) error {
	log.Printf("[mail disabled] to=%s subject=%q\n%s", n.To.Email, msg.Subject, msg.Text)
	return nil
}

// MailjetSender delivers notifications as e-mail through Mailjet.
type MailjetSender struct {
	fromEmail string
	fromName  string
	send      func(*mailjet.MessagesV31) error
}

// NewMailjetSender creates a sender authenticated with the given key pair.
func NewMailjetSender(apiKey, secretKey, fromEmail, fromName string) *MailjetSender {
	client := mailjet.NewMailjetClient(apiKey, secretKey)
	return &MailjetSender{
		fromEmail: fromEmail,
		fromName:  fromName,
		send: func(m *mailjet.MessagesV31) error {
			_, err := client.SendMailV31(m)
			return err
		},
	}
}

func (s *MailjetSender) Send(_ context.Context, n Notification, msg Message) error {
	if n.To.Email == "" {
		return nil
	}
	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From: &mailjet.RecipientV31{Email: s.fromEmail, Name: s.fromName},
		To: &mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: n.To.Email, Name: n.To.Name},
		},
		Subject:  msg.Subject,
		TextPart: msg.Text,
		HTMLPart: msg.HTML,
	}}}
	if err := s.send(&messages); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", n.To.Email, err)
	}
	return nil
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store PushSender needs.
type SubscriptionStore interface {
	ListUserSubscriptions(ctx context.Context, userID uint) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushSender delivers notifications to every browser the recipient
// subscribed with.
type PushSender struct {
	subs    SubscriptionStore
	options *webpush.Options
	client  NotificationSender
}

// NewPushSender creates a push sender using the given VAPID options.
func NewPushSender(subs SubscriptionStore, options *webpush.Options) *PushSender {
	return &PushSender{
		subs:    subs,
		options: options,
		client:  &WebPushSender{},
	}
}

func (s *PushSender) Send(ctx context.Context, n Notification, msg Message) error {
	if n.To.UserID == 0 {
		return nil
	}
	subscriptions, err := s.subs.ListUserSubscriptions(ctx, n.To.UserID)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{Title: msg.Subject, Body: msg.Text})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}
	for _, sub := range subscriptions {
		s.push(ctx, sub, payload)
	}
	return nil
}

func (s *PushSender) push(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := s.client.Send(payload, wpSub, s.options)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := s.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
