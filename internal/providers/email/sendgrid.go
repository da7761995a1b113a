package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridProvider struct {
	client *sendgrid.Client
}

func NewSendGrid(apiKey string) *SendGridProvider {
	return &SendGridProvider{client: sendgrid.NewSendClient(apiKey)}
}

func (p *SendGridProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(msg.FromName, msg.FromAddress),
		msg.Subject,
		mail.NewEmail("", msg.To),
		"",
		msg.HTML,
	)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail(msg.FromName, msg.ReplyTo))
	}

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", response.StatusCode, response.Body)
	}
	return nil
}
