package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPProviderBuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotBody string
	)
	p := NewSMTP(SMTPConfig{Host: "mail.local", Port: 2525})
	p.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, string(msg)
		return nil
	}

	err := p.Send(context.Background(), Message{
		To:          "client@example.com",
		FromName:    "Jane",
		FromAddress: "no-reply@chaseless.app",
		ReplyTo:     "jane@example.com",
		Subject:     "Invoice #INV-2026-001 Sent",
		HTML:        "<p>hi</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "no-reply@chaseless.app", gotFrom)
	assert.Equal(t, []string{"client@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Reply-To: jane@example.com\r\n")
	assert.Contains(t, gotBody, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(gotBody, "<p>hi</p>"))
}

func TestProvidersRejectMissingRecipient(t *testing.T) {
	err := NewNoOp(nil).Send(context.Background(), Message{FromAddress: "a@b.test"})
	assert.ErrorIs(t, err, ErrMissingRecipient)

	err = NewSMTP(SMTPConfig{}).Send(context.Background(), Message{To: "c@d.test"})
	assert.ErrorIs(t, err, ErrMissingSender)
}
