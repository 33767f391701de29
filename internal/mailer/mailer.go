// Package mailer abstracts outbound email delivery. The notification layer
// composes messages; a Mailer only transports them. Delivery failures are the
// caller's problem to log, never to escalate.
package mailer

import "context"

// Address is a named email recipient.
type Address struct {
	Name  string
	Email string
}

// Message is a fully composed email ready for transport.
type Message struct {
	To       []Address
	Subject  string
	TextBody string
	HTMLBody string
}

// HasRecipients reports whether the message targets at least one address.
func (m Message) HasRecipients() bool {
	return len(m.To) > 0
}

// HasContent reports whether either body is non-empty.
func (m Message) HasContent() bool {
	return m.TextBody != "" || m.HTMLBody != ""
}

// Mailer is any service that can deliver a composed email.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}
