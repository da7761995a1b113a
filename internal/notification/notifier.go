// Package notification renders and sends client facing invoice e-mail.
package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	invoiceSentTmpl = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/invoice_sent.html"))
	reminderTmpl    = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/reminder.html"))
)

// Envelope carries the addressing shared by every client notification.
type Envelope struct {
	InvoiceID     string
	InvoiceNumber string
	ClientName    string
	ClientEmail   string
	IssuerName    string
	IssuerEmail   string
}

type InvoiceSent struct {
	Envelope
	Amount  decimal.Decimal
	DueDate time.Time
}

type Reminder struct {
	Envelope
	Message string
}

type Notifier interface {
	InvoiceSent(ctx context.Context, n InvoiceSent) error
	Reminder(ctx context.Context, n Reminder) error
}

type Params struct {
	fx.In

	Config   config.Config
	Provider email.Provider
	Log      *zap.Logger
}

type Service struct {
	provider    email.Provider
	frontendURL string
	fromAddress string
	fromName    string
	currency    string
	log         *zap.Logger
}

func New(p Params) Notifier {
	return &Service{
		provider:    p.Provider,
		frontendURL: strings.TrimRight(p.Config.FrontendURL, "/"),
		fromAddress: p.Config.Email.FromAddress,
		fromName:    p.Config.Email.FromName,
		currency:    p.Config.Stripe.Currency,
		log:         p.Log.Named("notification"),
	}
}

var Module = fx.Module("notification",
	fx.Provide(New),
)

type view struct {
	Subject       string
	Preheader     string
	Title         string
	Link          string
	CTA           string
	InvoiceNumber string
	Amount        string
	DueDate       string
	Paragraphs    []string
}

func (s *Service) InvoiceSent(ctx context.Context, n InvoiceSent) error {
	sender := s.senderName(n.Envelope)
	v := view{
		Subject:       fmt.Sprintf("Invoice #%s Sent", n.InvoiceNumber),
		Preheader:     fmt.Sprintf("Invoice #%s has been sent.", n.InvoiceNumber),
		Title:         fmt.Sprintf("New Invoice from %s", sender),
		Link:          s.InvoiceLink(n.InvoiceID),
		CTA:           "View & Pay Invoice",
		InvoiceNumber: n.InvoiceNumber,
		Amount:        FormatMoney(n.Amount, s.currency),
		DueDate:       n.DueDate.UTC().Format("January 2, 2006"),
	}
	return s.send(ctx, n.Envelope, invoiceSentTmpl, v)
}

func (s *Service) Reminder(ctx context.Context, n Reminder) error {
	v := view{
		Subject:       fmt.Sprintf("Reminder: Invoice #%s", n.InvoiceNumber),
		Preheader:     fmt.Sprintf("Reminder: Invoice #%s", n.InvoiceNumber),
		Title:         fmt.Sprintf("Hi %s,", n.ClientName),
		Link:          s.InvoiceLink(n.InvoiceID),
		CTA:           "View & Pay",
		InvoiceNumber: n.InvoiceNumber,
		Paragraphs:    paragraphs(n.Message),
	}
	return s.send(ctx, n.Envelope, reminderTmpl, v)
}

// InvoiceLink is the payer facing page for an invoice.
func (s *Service) InvoiceLink(invoiceID string) string {
	return fmt.Sprintf("%s/invoice/%s", s.frontendURL, invoiceID)
}

func (s *Service) send(ctx context.Context, env Envelope, tmpl *template.Template, v view) error {
	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout", v); err != nil {
		return fmt.Errorf("render %s: %w", v.Subject, err)
	}

	err := s.provider.Send(ctx, email.Message{
		To:          env.ClientEmail,
		FromName:    s.senderName(env),
		FromAddress: s.fromAddress,
		ReplyTo:     env.IssuerEmail,
		Subject:     v.Subject,
		HTML:        body.String(),
	})
	if err != nil {
		s.log.Warn("client notification failed",
			zap.String("invoice_id", env.InvoiceID),
			zap.String("subject", v.Subject),
			zap.Error(err),
		)
		return err
	}
	s.log.Info("client notified", zap.String("invoice_id", env.InvoiceID), zap.String("subject", v.Subject))
	return nil
}

func (s *Service) senderName(env Envelope) string {
	if name := strings.TrimSpace(env.IssuerName); name != "" {
		return name
	}
	return s.fromName
}

func paragraphs(message string) []string {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

var currencySymbols = map[string]string{
	"usd": "$",
	"cad": "$",
	"aud": "$",
	"eur": "€",
	"gbp": "£",
}

// FormatMoney renders an amount with two decimals and the currency symbol.
func FormatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if symbol, ok := currencySymbols[currency]; ok {
		return symbol + amount.StringFixed(2)
	}
	if currency == "" {
		return amount.StringFixed(2)
	}
	return strings.ToUpper(currency) + " " + amount.StringFixed(2)
}
