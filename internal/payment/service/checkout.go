package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"go.uber.org/zap"
)

// CreateCheckoutSession opens a hosted checkout for the payer. Every
// rejection happens before the processor is called, and nothing is stored
// unless the processor returned a session.
func (s *Service) CreateCheckoutSession(ctx context.Context, invoiceID string) (paymentdomain.CheckoutResult, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(invoiceID))
	if err != nil || id <= 0 {
		return paymentdomain.CheckoutResult{}, invoicedomain.ErrNotFound
	}

	invoice, err := s.invoiceRepo.FindPublic(ctx, s.db, id)
	if err != nil {
		return paymentdomain.CheckoutResult{}, err
	}
	if invoice == nil {
		return paymentdomain.CheckoutResult{}, invoicedomain.ErrNotFound
	}
	if !invoice.Status.Payable() {
		s.metrics.RecordCheckoutSession("not_payable")
		return paymentdomain.CheckoutResult{}, paymentdomain.ErrNotPayable
	}

	issuer, err := s.issuerSvc.GetByID(ctx, invoice.IssuerID)
	if err != nil {
		return paymentdomain.CheckoutResult{}, err
	}
	if issuer.StripeAccountID == nil || strings.TrimSpace(*issuer.StripeAccountID) == "" {
		s.metrics.RecordCheckoutSession("account_missing")
		return paymentdomain.CheckoutResult{}, paymentdomain.ErrAccountMissing
	}

	fees := paymentdomain.ComputeFees(invoice.TotalAmount, s.fees.Get(), s.currency)
	amount := paymentdomain.MinorUnits(fees.PayerAmount)
	if amount <= 0 {
		return paymentdomain.CheckoutResult{}, paymentdomain.ErrInvalidAmount
	}

	link := fmt.Sprintf("%s/invoice/%s", s.frontendURL, invoice.ID.String())
	session, err := s.gateway.CreateCheckoutSession(ctx, paymentdomain.CheckoutParams{
		AccountID:           strings.TrimSpace(*issuer.StripeAccountID),
		Currency:            s.currency,
		AmountMinor:         amount,
		ApplicationFeeMinor: paymentdomain.MinorUnits(fees.ApplicationFee),
		ProductName:         fmt.Sprintf("Invoice #%s", invoice.InvoiceNumber),
		CustomerEmail:       invoice.ClientEmail,
		SuccessURL:          link + "?payment_success=true",
		CancelURL:           link,
		IdempotencyKey:      fmt.Sprintf("checkout:%s:%d", invoice.ID.String(), amount),
		Metadata: map[string]string{
			"invoice_id":     invoice.ID.String(),
			"invoice_number": invoice.InvoiceNumber,
			"issuer_id":      invoice.IssuerID,
		},
	})
	if err != nil {
		s.metrics.RecordCheckoutSession("failed")
		return paymentdomain.CheckoutResult{}, s.processorError("checkout session for invoice "+invoice.ID.String(), err)
	}

	reference := session.PaymentIntentID
	if reference == "" {
		reference = session.ID
	}
	if err := s.invoiceRepo.SetCheckoutReference(ctx, s.db, invoice.ID, reference, session.ID, s.clock.Now()); err != nil {
		return paymentdomain.CheckoutResult{}, err
	}

	s.metrics.RecordCheckoutSession("created")
	s.log.Info("checkout session created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("session_id", session.ID),
		zap.String("payer_amount", fees.PayerAmount.StringFixed(2)),
	)
	return paymentdomain.CheckoutResult{
		URL:       session.URL,
		SessionID: session.ID,
		Fees:      fees,
	}, nil
}
