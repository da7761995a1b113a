package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/followup/domain"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/notification"
	"github.com/smallbiznis/chaseless/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	Notifier    notification.Notifier
	Validate    *validator.Validate
	Metrics     *metrics.Metrics    `optional:"true"`
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	currency    string
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	notifier    notification.Notifier
	validate    *validator.Validate
	metrics     *metrics.Metrics
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("followup.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		currency:    p.Config.Stripe.Currency,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		notifier:    p.Notifier,
		validate:    p.Validate,
		metrics:     p.Metrics,
		auditSvc:    p.AuditSvc,
	}
}

// Record appends a follow-up and bumps the invoice counters in one
// transaction. E-mail goes out only after commit, so a transport failure
// leaves the record in place and comes back as a warning.
func (s *Service) Record(ctx context.Context, invoiceID string, req domain.RecordRequest) (domain.Result, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return domain.Result{}, invoicedomain.ErrInvalidIssuer
	}
	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return domain.Result{}, err
	}

	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validate.Var(req.Method, "required,oneof=email sms phone manual"); err != nil {
		return domain.Result{}, domain.ErrInvalidMethod
	}
	messageRule := "required,max=5000"
	if req.UseTemplate {
		messageRule = "max=5000"
	}
	if err := s.validate.Var(req.Message, messageRule); err != nil {
		return domain.Result{}, domain.ErrInvalidMessage
	}

	var (
		record    domain.FollowUp
		recipient *invoicedomain.Recipient
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(ctx, tx, issuerID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		recipient, err = s.invoiceRepo.FindRecipient(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}

		message := req.Message
		if message == "" && req.UseTemplate {
			if invoice.FollowupMessageTemplate != nil {
				message = strings.TrimSpace(*invoice.FollowupMessageTemplate)
			}
			if message == "" {
				message = domain.DefaultMessage
			}
		}

		now := s.clock.Now()
		data := domain.TemplateData{
			InvoiceNumber: invoice.InvoiceNumber,
			Amount:        notification.FormatMoney(invoice.TotalAmount, s.currency),
			DueDate:       invoice.DueDate,
			Now:           now,
		}
		if recipient != nil {
			data.ClientName = recipient.ClientName
		}

		record = domain.FollowUp{
			ID:        s.genID.Generate(),
			InvoiceID: invoice.ID,
			IssuerID:  issuerID,
			Method:    req.Method,
			Message:   domain.Render(message, data),
			SentAt:    now,
		}
		if err := s.repo.Insert(ctx, tx, &record); err != nil {
			return err
		}
		return s.invoiceRepo.IncrementFollowUpCount(ctx, tx, invoice.ID, now)
	})
	if err != nil {
		return domain.Result{}, err
	}

	s.metrics.RecordFollowUp(record.Method)
	s.emitAudit(ctx, issuerID, record)

	result := domain.Result{FollowUp: record}
	if record.Method == domain.MethodEmail {
		s.dispatch(ctx, recipient, &result)
	}
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, recipient *invoicedomain.Recipient, result *domain.Result) {
	record := result.FollowUp
	if recipient == nil || strings.TrimSpace(recipient.ClientEmail) == "" {
		s.log.Warn("follow-up recorded without e-mail recipient", zap.String("invoice_id", record.InvoiceID.String()))
		result.Warning = invoicedomain.WarningEmailUnavailable
		return
	}

	err := s.notifier.Reminder(ctx, notification.Reminder{
		Envelope: notification.Envelope{
			InvoiceID:     record.InvoiceID.String(),
			InvoiceNumber: recipient.InvoiceNumber,
			ClientName:    recipient.ClientName,
			ClientEmail:   recipient.ClientEmail,
			IssuerName:    recipient.IssuerName,
			IssuerEmail:   recipient.IssuerEmail,
		},
		Message: record.Message,
	})
	s.metrics.RecordNotification("reminder", err)
	if err != nil {
		s.log.Warn("follow-up e-mail failed",
			zap.String("invoice_id", record.InvoiceID.String()),
			zap.String("follow_up_id", record.ID.String()),
			zap.Error(err),
		)
		result.Warning = invoicedomain.WarningNotificationFailed
		return
	}
	result.Notified = true
}

func (s *Service) List(ctx context.Context, invoiceID string) ([]domain.FollowUp, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidIssuer
	}
	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, issuerID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}

	items, err := s.repo.ListByInvoice(ctx, s.db, issuerID, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.FollowUp{}
	}
	return items, nil
}

func (s *Service) DueReminders(ctx context.Context, invoiceID string) ([]domain.Reminder, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidIssuer
	}
	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, issuerID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}

	reminders := domain.DueReminders(*invoice, s.clock.Now())
	if reminders == nil {
		reminders = []domain.Reminder{}
	}
	return reminders, nil
}

func (s *Service) emitAudit(ctx context.Context, issuerID string, record domain.FollowUp) {
	if s.auditSvc == nil {
		return
	}
	targetID := record.InvoiceID.String()
	metadata := map[string]any{
		"follow_up_id": record.ID.String(),
		"method":       record.Method,
	}
	if err := s.auditSvc.AuditLog(ctx, &issuerID, "", "record_follow_up", "invoice", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", "record_follow_up"), zap.Error(err))
	}
}

func parseInvoiceID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invoicedomain.ErrInvalidID
	}
	return id, nil
}
