package mailer

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ConsoleMailer writes rendered messages to the log instead of a wire. It is
// the development and test transport; sent messages are retained so tests can
// assert on them.
type ConsoleMailer struct {
	from   Address
	prefix string
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsoleMailer constructs the console transport.
func NewConsoleMailer(from Address, appName string, logger zerolog.Logger) *ConsoleMailer {
	return &ConsoleMailer{
		from:   from,
		prefix: "[" + appName + "] ",
		logger: logger.With().Str("component", "console_mailer").Logger(),
	}
}

// Send logs the message and records it.
func (m *ConsoleMailer) Send(_ context.Context, message Message) error {
	if !message.HasRecipients() || !message.HasContent() {
		return nil
	}

	recipients := make([]string, 0, len(message.To))
	for _, to := range message.To {
		recipients = append(recipients, to.Email)
	}

	m.logger.Info().
		Str("from", m.from.Email).
		Str("to", strings.Join(recipients, ", ")).
		Str("subject", m.prefix+message.Subject).
		Str("body", message.TextBody).
		Msg("email delivered to console")

	m.mu.Lock()
	m.sent = append(m.sent, message)
	m.mu.Unlock()

	return nil
}

// Sent returns a copy of every message delivered so far.
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
