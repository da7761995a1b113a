package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// HandleWebhook authenticates a processor delivery and, for a confirmed
// payment, drives the invoice to paid. Each event id is processed once; a
// redelivery of a processed event returns ErrEventAlreadyProcessed.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.webhook.Verify(payload, headers); err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		return err
	}

	event, err := s.webhook.Parse(payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.metrics.RecordPaymentEvent("other", "ignored")
			return nil
		}
		return err
	}

	now := s.clock.Now()
	record := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		InvoiceID:       event.InvoiceID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return err
	}
	stored := &record
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.metrics.RecordPaymentEvent(event.Type, "duplicate")
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	result, invoiceID, err := s.settle(ctx, event, now)
	if err != nil {
		s.metrics.RecordPaymentEvent(event.Type, "error")
		return err
	}
	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, invoiceID, now); err != nil {
		return err
	}
	s.metrics.RecordPaymentEvent(event.Type, result)
	return nil
}

// settle applies a parsed event. Events that cannot be matched to an
// invoice are acknowledged so the processor stops redelivering them.
func (s *Service) settle(ctx context.Context, event *paymentdomain.PaymentEvent, now time.Time) (string, *snowflake.ID, error) {
	if !event.Paid {
		return "unpaid", event.InvoiceID, nil
	}

	invoiceID, err := s.resolveInvoice(ctx, event)
	if err != nil {
		return "", nil, err
	}
	if invoiceID == nil {
		s.log.Warn("payment event matches no invoice",
			zap.String("event_id", event.ProviderEventID),
			zap.String("reference", event.Reference),
		)
		return "unmatched", nil, nil
	}

	paidAt := event.OccurredAt
	if paidAt.IsZero() {
		paidAt = now
	}
	_, changed, err := s.invoiceSvc.MarkPaid(ctx, *invoiceID, paidAt)
	if errors.Is(err, invoicedomain.ErrNotFound) {
		s.log.Warn("payment event for unknown invoice", zap.String("invoice_id", invoiceID.String()))
		return "unmatched", invoiceID, nil
	}
	if err != nil {
		return "", nil, err
	}
	if !changed {
		return "already_paid", invoiceID, nil
	}
	s.log.Info("invoice paid",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("event_id", event.ProviderEventID),
	)
	return "paid", invoiceID, nil
}

func (s *Service) resolveInvoice(ctx context.Context, event *paymentdomain.PaymentEvent) (*snowflake.ID, error) {
	if event.InvoiceID != nil {
		return event.InvoiceID, nil
	}
	for _, ref := range []string{event.Reference, event.SessionID} {
		if ref == "" {
			continue
		}
		invoice, err := s.invoiceRepo.FindByPaymentReference(ctx, s.db, ref)
		if err != nil {
			return nil, err
		}
		if invoice != nil {
			return &invoice.ID, nil
		}
	}
	return nil, nil
}
