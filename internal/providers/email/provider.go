package email

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Message is a single outbound HTML e-mail.
type Message struct {
	To          string
	FromName    string
	FromAddress string
	ReplyTo     string
	Subject     string
	HTML        string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrMissingRecipient = errors.New("email_recipient_missing")
	ErrMissingSender    = errors.New("email_sender_missing")
)

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrMissingRecipient
	}
	if strings.TrimSpace(m.FromAddress) == "" {
		return ErrMissingSender
	}
	return nil
}

// NoOpProvider drops every message. It is the default outside production.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	p.log.Debug("email dropped", zap.String("subject", msg.Subject))
	return nil
}
