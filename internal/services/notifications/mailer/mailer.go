// Package mailer sends notification email.
package mailer

import "context"

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages to recipients.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Noop discards every message. Used in development and tests where no
// SMTP relay is available.
type Noop struct{}

// Send accepts and drops the message.
func (Noop) Send(ctx context.Context, msg Message) error {
	return nil
}
