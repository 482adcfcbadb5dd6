// Package notify wraps the outbound email and in-app notification sinks.
// Both are best-effort: failures are logged and never propagate into the
// financial paths that trigger them.
package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"invest/internal/store"
)

type EmailSender interface {
	SendEmail(to, subject, text string) error
}

type SendgridSender struct {
	client *sendgrid.Client
	from   string
}

func NewSendgridSender(apiKey, from string) *SendgridSender {
	return &SendgridSender{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (s *SendgridSender) SendEmail(to, subject, text string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail("", s.from),
		subject,
		mail.NewEmail("", to),
		text,
		text,
	)
	_, err := s.client.Send(message)
	return err
}

// NoopSender is used in development when no API key is configured.
type NoopSender struct{}

func (NoopSender) SendEmail(to, subject, text string) error {
	log.Printf("email (noop) to=%s subject=%q", to, subject)
	return nil
}

type NotificationInserter interface {
	Insert(ctx context.Context, exec store.Execer, id, userID, notifType, title, message string) error
}

type Notifier struct {
	email         EmailSender
	notifications NotificationInserter
	db            store.DB
}

func NewNotifier(email EmailSender, notifications NotificationInserter, db store.DB) *Notifier {
	return &Notifier{email: email, notifications: notifications, db: db}
}

// SendEmail delivers best-effort; a failure is logged, never returned.
func (n *Notifier) SendEmail(to, subject, text string) {
	if to == "" {
		return
	}
	if err := n.email.SendEmail(to, subject, text); err != nil {
		log.Printf("email send failed to=%s subject=%q: %v", to, subject, err)
	}
}

// SendNotification inserts an in-app notification row best-effort, outside
// any caller transaction.
func (n *Notifier) SendNotification(ctx context.Context, userID, notifType, title, message string) {
	if err := n.notifications.Insert(ctx, n.db, uuid.NewString(), userID, notifType, title, message); err != nil {
		log.Printf("notification insert failed user=%s type=%s: %v", userID, notifType, err)
	}
}
