package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/internal/notification"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransitionStatus moves an invoice to status. The prior status is read under
// the row lock, so two concurrent moves into sent notify the client once.
func (s *Service) TransitionStatus(ctx context.Context, id string, status string) (invoicedomain.Mutation, error) {
	target, err := invoicedomain.ParseStatus(status)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	var (
		prior   invoicedomain.Status
		updated invoicedomain.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByIDForUpdate(ctx, tx, issuerID, invoiceID)
		if err != nil {
			return err
		}
		if current == nil {
			return invoicedomain.ErrNotFound
		}

		now := s.clock.Now()
		var paidAt *time.Time
		if target == invoicedomain.StatusPaid {
			paidAt = current.PaidAt
			if paidAt == nil {
				paidAt = &now
			}
		}
		if err := s.repo.UpdateStatus(ctx, tx, current.ID, target, paidAt, now); err != nil {
			return err
		}

		prior = current.Status
		updated = *current
		updated.Status = target
		updated.PaidAt = paidAt
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	s.metrics.RecordStatusTransition(string(prior), string(target))
	s.emitAudit(ctx, "update_invoice_status", &updated, map[string]any{
		"previous_status": string(prior),
	})

	result := invoicedomain.Mutation{Invoice: s.decorate(updated)}
	if invoicedomain.NotifiesClient(prior, target) {
		s.notifySent(ctx, &result)
	}
	return result, nil
}

// MarkPaid is the processor confirmation path. It is not issuer scoped and
// reports false when the invoice was already paid.
func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID, paidAt time.Time) (invoicedomain.Invoice, bool, error) {
	if id <= 0 {
		return invoicedomain.Invoice{}, false, invoicedomain.ErrInvalidID
	}

	var (
		updated invoicedomain.Invoice
		changed bool
		prior   invoicedomain.Status
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindAnyByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return invoicedomain.ErrNotFound
		}
		updated = *current
		if current.Status == invoicedomain.StatusPaid {
			return nil
		}

		paidAt = paidAt.UTC()
		now := s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, tx, current.ID, invoicedomain.StatusPaid, &paidAt, now); err != nil {
			return err
		}

		prior = current.Status
		updated.Status = invoicedomain.StatusPaid
		updated.PaidAt = &paidAt
		updated.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, false, err
	}
	if !changed {
		return s.decorate(updated), false, nil
	}

	if prior == invoicedomain.StatusVoid {
		s.log.Warn("payment confirmed for void invoice", zap.String("invoice_id", id.String()))
	}
	s.metrics.RecordStatusTransition(string(prior), string(invoicedomain.StatusPaid))
	s.emitAudit(ctx, "invoice_paid", &updated, map[string]any{
		"previous_status": string(prior),
	})
	return s.decorate(updated), true, nil
}

// notifySent runs after commit. Failures become a warning on the result; the
// committed status stands.
func (s *Service) notifySent(ctx context.Context, result *invoicedomain.Mutation) {
	invoice := result.Invoice
	recipient, err := s.repo.FindRecipient(ctx, s.db, invoice.ID)
	if err != nil {
		s.log.Warn("load invoice recipient failed", zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		result.Warning = invoicedomain.WarningNotificationFailed
		return
	}
	if recipient == nil || recipient.ClientEmail == "" {
		s.log.Warn("client has no e-mail", zap.String("invoice_id", invoice.ID.String()))
		result.Warning = invoicedomain.WarningEmailUnavailable
		return
	}

	err = s.notifier.InvoiceSent(ctx, notification.InvoiceSent{
		Envelope: notification.Envelope{
			InvoiceID:     invoice.ID.String(),
			InvoiceNumber: invoice.InvoiceNumber,
			ClientName:    recipient.ClientName,
			ClientEmail:   recipient.ClientEmail,
			IssuerName:    recipient.IssuerName,
			IssuerEmail:   recipient.IssuerEmail,
		},
		Amount:  invoice.TotalAmount,
		DueDate: invoice.DueDate,
	})
	s.metrics.RecordNotification("invoice_sent", err)
	if err != nil {
		result.Warning = invoicedomain.WarningNotificationFailed
		return
	}
	result.Notified = true
}
