package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	"github.com/smallbiznis/chaseless/internal/clock"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/internal/invoice/sequence"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/notification"
	"github.com/smallbiznis/chaseless/internal/observability/metrics"
	"github.com/smallbiznis/chaseless/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Sequence *sequence.Allocator
	Notifier notification.Notifier
	Validate *validator.Validate
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     invoicedomain.Repository
	sequence *sequence.Allocator
	notifier notification.Notifier
	validate *validator.Validate
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		sequence: p.Sequence,
		notifier: p.Notifier,
		validate: p.Validate,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

// draft is a validated create or replace payload.
type draft struct {
	clientID  snowflake.ID
	issueDate time.Time
	dueDate   time.Time
	items     []invoicedomain.ItemInput
	notes     *string
	status    invoicedomain.Status
	rules     invoicedomain.Rules
}

func (s *Service) Create(ctx context.Context, req invoicedomain.UpsertInvoiceRequest) (invoicedomain.Mutation, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	d, err := s.parseDraft(req)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}
	if d.status == "" {
		d.status = invoicedomain.StatusDraft
	}

	year := d.issueDate.Year()
	txCtx, release, err := s.sequence.Guard(ctx, issuerID, year)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}
	defer release()

	var created invoicedomain.Invoice
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.ClientBelongsToIssuer(txCtx, tx, issuerID, d.clientID, false)
		if err != nil {
			return err
		}
		if !ok {
			return invoicedomain.ErrClientNotFound
		}

		number, err := s.sequence.Next(txCtx, tx, issuerID, year)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		invoice := invoicedomain.Invoice{
			ID:            s.genID.Generate(),
			IssuerID:      issuerID,
			InvoiceNumber: number,
			CreatedAt:     now,
		}
		applyDraft(&invoice, d, now)
		invoice.Items = s.buildItems(invoice.ID, d.items, now)
		invoice.TotalAmount = invoicedomain.Total(invoice.Items)

		if err := s.repo.Insert(txCtx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				s.metrics.RecordNumberConflict(s.sequence.Strategy())
				s.log.Warn("invoice number already taken",
					zap.String("issuer_id", issuerID),
					zap.String("invoice_number", number),
				)
				return invoicedomain.ErrNumberConflict
			}
			return err
		}
		if err := s.repo.InsertItems(txCtx, tx, invoice.Items); err != nil {
			return err
		}

		created = invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	s.metrics.RecordInvoiceCreated(s.sequence.Strategy(), created.TotalAmount.InexactFloat64())
	s.emitAudit(ctx, "create_invoice", &created, nil)

	result := invoicedomain.Mutation{Invoice: s.decorate(created)}
	if invoicedomain.NotifiesClient("", created.Status) {
		s.notifySent(ctx, &result)
	}
	return result, nil
}

// Replace overwrites every mutable field and swaps the whole item set. The
// paid check reads the status under the same row lock as the write.
func (s *Service) Replace(ctx context.Context, id string, req invoicedomain.UpsertInvoiceRequest) (invoicedomain.Mutation, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	d, err := s.parseDraft(req)
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
		if current.Status == invoicedomain.StatusPaid {
			return invoicedomain.ErrPaidImmutable
		}

		if d.clientID != current.ClientID {
			ok, err := s.repo.ClientBelongsToIssuer(ctx, tx, issuerID, d.clientID, false)
			if err != nil {
				return err
			}
			if !ok {
				return invoicedomain.ErrClientNotFound
			}
		}

		prior = current.Status
		if d.status == "" {
			d.status = current.Status
		}

		now := s.clock.Now()
		updated = *current
		applyDraft(&updated, d, now)
		updated.Items = s.buildItems(updated.ID, d.items, now)
		updated.TotalAmount = invoicedomain.Total(updated.Items)

		if err := s.repo.UpdateContent(ctx, tx, &updated); err != nil {
			return err
		}
		if err := s.repo.DeleteItems(ctx, tx, updated.ID); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, updated.Items)
	})
	if err != nil {
		return invoicedomain.Mutation{}, err
	}

	if prior != updated.Status {
		s.metrics.RecordStatusTransition(string(prior), string(updated.Status))
	}
	s.emitAudit(ctx, "update_invoice", &updated, map[string]any{
		"previous_status": string(prior),
	})

	result := invoicedomain.Mutation{Invoice: s.decorate(updated)}
	if invoicedomain.NotifiesClient(prior, updated.Status) {
		s.notifySent(ctx, &result)
	}
	return result, nil
}

func (s *Service) parseDraft(req invoicedomain.UpsertInvoiceRequest) (draft, error) {
	clientRaw := strings.TrimSpace(req.ClientID)
	if clientRaw == "" {
		return draft{}, invoicedomain.ErrInvalidClient
	}
	clientID, err := snowflake.ParseString(clientRaw)
	if err != nil || clientID <= 0 {
		return draft{}, invoicedomain.ErrInvalidClient
	}

	issueDate, ok := parseDate(req.IssueDate)
	if !ok {
		return draft{}, invoicedomain.ErrInvalidIssueDate
	}
	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		return draft{}, invoicedomain.ErrInvalidDueDate
	}

	if len(req.Items) == 0 {
		return draft{}, invoicedomain.ErrEmptyItems
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.Description) == "" {
			return draft{}, invoicedomain.ErrInvalidItem
		}
	}

	var status invoicedomain.Status
	if strings.TrimSpace(req.Status) != "" {
		status, err = invoicedomain.ParseStatus(req.Status)
		if err != nil {
			return draft{}, err
		}
	}

	if err := s.validate.Struct(req.Rules); err != nil {
		return draft{}, invoicedomain.ErrInvalidReminderDays
	}

	return draft{
		clientID:  clientID,
		issueDate: issueDate,
		dueDate:   dueDate,
		items:     req.Items,
		notes:     trimmedOrNil(req.Notes),
		status:    status,
		rules: invoicedomain.Rules{
			AutoFollowupsEnabled:    req.AutoFollowupsEnabled,
			ViewReminderDays:        req.ViewReminderDays,
			DueReminderDays:         req.DueReminderDays,
			RepeatIntervalDays:      req.RepeatIntervalDays,
			FollowupMessageTemplate: trimmedOrNil(req.FollowupMessageTemplate),
		},
	}, nil
}

func applyDraft(invoice *invoicedomain.Invoice, d draft, now time.Time) {
	invoice.ClientID = d.clientID
	invoice.IssueDate = d.issueDate
	invoice.DueDate = d.dueDate
	invoice.Status = d.status
	invoice.Notes = d.notes
	invoice.AutoFollowupsEnabled = d.rules.AutoFollowupsEnabled
	invoice.ViewReminderDays = d.rules.ViewReminderDays
	invoice.DueReminderDays = d.rules.DueReminderDays
	invoice.RepeatIntervalDays = d.rules.RepeatIntervalDays
	invoice.FollowupMessageTemplate = d.rules.FollowupMessageTemplate
	invoice.UpdatedAt = now

	switch {
	case invoice.Status != invoicedomain.StatusPaid:
		invoice.PaidAt = nil
	case invoice.PaidAt == nil:
		paidAt := now
		invoice.PaidAt = &paidAt
	}
}

func (s *Service) buildItems(invoiceID snowflake.ID, inputs []invoicedomain.ItemInput, now time.Time) []invoicedomain.Item {
	items := make([]invoicedomain.Item, 0, len(inputs))
	for idx, in := range inputs {
		items = append(items, invoicedomain.Item{
			ID:          s.genID.Generate(),
			InvoiceID:   invoiceID,
			Position:    idx,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity.Decimal().Round(4),
			UnitPrice:   in.UnitPrice.Decimal().Round(2),
			CreatedAt:   now,
		})
	}
	return items
}

func (s *Service) decorate(invoice invoicedomain.Invoice) invoicedomain.Invoice {
	invoice.DisplayStatus = invoicedomain.DisplayStatus(invoice.Status, invoice.DueDate, s.clock.Now())
	return invoice
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"client_id":      invoice.ClientID.String(),
		"status":         string(invoice.Status),
		"total_amount":   invoice.TotalAmount.StringFixed(2),
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	actorType := ""
	if _, ok := issuercontext.IssuerIDFromContext(ctx); !ok {
		actorType = auditdomain.ActorSystem
	}
	targetID := invoice.ID.String()
	issuerID := invoice.IssuerID
	if err := s.auditSvc.AuditLog(ctx, &issuerID, actorType, action, "invoice", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) issuerIDFromContext(ctx context.Context) (string, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return "", invoicedomain.ErrInvalidIssuer
	}
	return issuerID, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}

// parseDate accepts a calendar date or a timestamp and keeps the calendar
// day as written.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
