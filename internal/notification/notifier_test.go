package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProvider struct {
	messages []email.Message
	err      error
}

func (p *recordingProvider) Send(_ context.Context, msg email.Message) error {
	p.messages = append(p.messages, msg)
	return p.err
}

func newTestNotifier(provider email.Provider) Notifier {
	cfg := config.Config{
		FrontendURL: "https://app.chaseless.test/",
		Email:       config.EmailConfig{FromAddress: "no-reply@chaseless.test", FromName: "Chaseless"},
		Stripe:      config.StripeConfig{Currency: "usd"},
	}
	return New(Params{Config: cfg, Provider: provider, Log: zap.NewNop()})
}

func TestInvoiceSentEmail(t *testing.T) {
	provider := &recordingProvider{}
	n := newTestNotifier(provider)

	err := n.InvoiceSent(context.Background(), InvoiceSent{
		Envelope: Envelope{
			InvoiceID:     "42",
			InvoiceNumber: "INV-2026-001",
			ClientName:    "Acme",
			ClientEmail:   "billing@acme.test",
			IssuerName:    "Jane",
			IssuerEmail:   "jane@example.com",
		},
		Amount:  decimal.RequireFromString("350"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, provider.messages, 1)

	msg := provider.messages[0]
	assert.Equal(t, "Invoice #INV-2026-001 Sent", msg.Subject)
	assert.Equal(t, "billing@acme.test", msg.To)
	assert.Equal(t, "Jane", msg.FromName)
	assert.Equal(t, "jane@example.com", msg.ReplyTo)
	assert.Contains(t, msg.HTML, "https://app.chaseless.test/invoice/42")
	assert.Contains(t, msg.HTML, "$350.00")
	assert.Contains(t, msg.HTML, "March 15, 2026")
}

func TestReminderEscapesMessage(t *testing.T) {
	provider := &recordingProvider{}
	n := newTestNotifier(provider)

	err := n.Reminder(context.Background(), Reminder{
		Envelope: Envelope{InvoiceID: "7", InvoiceNumber: "INV-2026-002", ClientName: "Acme", ClientEmail: "a@acme.test"},
		Message:  "Friendly nudge\n<script>alert(1)</script>",
	})
	require.NoError(t, err)
	require.Len(t, provider.messages, 1)

	msg := provider.messages[0]
	assert.Equal(t, "Reminder: Invoice #INV-2026-002", msg.Subject)
	assert.Equal(t, "Chaseless", msg.FromName)
	assert.Contains(t, msg.HTML, "<p>Friendly nudge</p>")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestNotifierReturnsTransportError(t *testing.T) {
	provider := &recordingProvider{err: errors.New("smtp down")}
	n := newTestNotifier(provider)

	err := n.Reminder(context.Background(), Reminder{
		Envelope: Envelope{InvoiceID: "7", InvoiceNumber: "INV-2026-002", ClientEmail: "a@acme.test"},
		Message:  "hi",
	})
	assert.EqualError(t, err, "smtp down")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$12.50", FormatMoney(decimal.RequireFromString("12.5"), "usd"))
	assert.Equal(t, "JPY 100.00", FormatMoney(decimal.NewFromInt(100), "jpy"))
}
