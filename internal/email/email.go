// Package email builds and dispatches outgoing mail. Actual delivery through a
// provider is not wired; LogSender writes messages to the log instead.
package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/01moynul/collabhub-golang/internal/queue"
	"go.uber.org/zap"
)

// Topic is the queue topic carrying outgoing mail.
const Topic = "emails"

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender is the placeholder Sender: it logs the email instead of sending it.
// Bodies carry verification codes, so they are only logged when ShowBody is set.
type LogSender struct {
	Log      *zap.Logger
	ShowBody bool
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	}
	if s.ShowBody {
		fields = append(fields, zap.String("body", msg.Body))
	}
	s.Log.Info("email (placeholder delivery)", fields...)
	return nil
}

// Dispatcher queues email so request handlers never block on delivery.
type Dispatcher struct {
	q   queue.Queue
	log *zap.Logger
}

// NewDispatcher creates a dispatcher publishing to q.
func NewDispatcher(q queue.Queue, log *zap.Logger) *Dispatcher {
	return &Dispatcher{q: q, log: log}
}

// Start subscribes sender to the email topic.
func (d *Dispatcher) Start(sender Sender) error {
	return d.q.Subscribe(Topic, func(ctx context.Context, body []byte) error {
		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			// A malformed message will never succeed; drop it.
			d.log.Error("dropping malformed email message", zap.Error(err))
			return nil
		}
		return sender.Send(ctx, msg)
	})
}

// Enqueue publishes msg for delivery.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := d.q.Publish(ctx, Topic, body); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// VerificationEmail is sent after registration and on resend.
func VerificationEmail(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Verify your CollabHub account",
		Body: fmt.Sprintf(
			"Welcome to CollabHub!\n\nYour verification code is: %s\n\nThis code will expire in 15 minutes.",
			code,
		),
	}
}

// MOUOutcomeEmail tells a party that an MOU reached its final status.
func MOUOutcomeEmail(to, mouTitle, status, reason string) Message {
	body := fmt.Sprintf("The memorandum of understanding %q is now %s.", mouTitle, status)
	if reason != "" {
		body += "\n\nReason: " + reason
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("MOU %s: %s", status, mouTitle),
		Body:    body,
	}
}

// InvitationEmail tells an influencer about a new campaign invitation.
func InvitationEmail(to, brandName, campaignTitle string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s invited you to %s", brandName, campaignTitle),
		Body:    fmt.Sprintf("%s has invited you to join the campaign %q. Log in to accept or decline.", brandName, campaignTitle),
	}
}
