package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridMailer delivers email through the SendGrid v3 API.
type SendGridMailer struct {
	key    string
	from   *sgmail.Email
	prefix string
	logger zerolog.Logger
}

// NewSendGridMailer constructs the SendGrid transport.
func NewSendGridMailer(apiKey string, from Address, appName string, logger zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		key:    apiKey,
		from:   sgmail.NewEmail(from.Name, from.Email),
		prefix: "[" + appName + "] ",
		logger: logger.With().Str("component", "sendgrid_mailer").Logger(),
	}
}

// Send posts the message to the SendGrid mail-send endpoint.
func (m *SendGridMailer) Send(ctx context.Context, message Message) error {
	if !message.HasRecipients() || !message.HasContent() {
		return nil
	}

	personalization := sgmail.NewPersonalization()
	personalization.Subject = m.prefix + message.Subject
	for _, to := range message.To {
		personalization.AddTos(sgmail.NewEmail(to.Name, to.Email))
	}

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(personalization)

	if message.TextBody != "" {
		mail.AddContent(sgmail.NewContent("text/plain", message.TextBody))
	}
	if message.HTMLBody != "" {
		mail.AddContent(sgmail.NewContent("text/html", message.HTMLBody))
	}

	request := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	request.Method = http.MethodPost
	request.Body = sgmail.GetRequestBody(mail)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", response.StatusCode, response.Body)
	}

	m.logger.Debug().Str("subject", message.Subject).Msg("email handed to sendgrid")

	return nil
}
