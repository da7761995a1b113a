package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const invoiceColumns = `i.id, i.issuer_id, i.client_id, i.invoice_number, i.issue_date, i.due_date,
	i.status, i.total_amount, i.notes, i.view_count, i.viewed_at, i.follow_up_count,
	i.last_follow_up_at, i.auto_followups_enabled, i.view_reminder_days, i.due_reminder_days,
	i.repeat_interval_days, i.followup_message_template, i.stripe_payment_intent_id,
	i.stripe_checkout_session_id, i.paid_at, i.created_at, i.updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, issuer_id, client_id, invoice_number, issue_date, due_date, status,
			total_amount, notes, auto_followups_enabled, view_reminder_days,
			due_reminder_days, repeat_interval_days, followup_message_template,
			paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.IssuerID,
		invoice.ClientID,
		invoice.InvoiceNumber,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Status,
		invoice.TotalAmount,
		invoice.Notes,
		invoice.AutoFollowupsEnabled,
		invoice.ViewReminderDays,
		invoice.DueReminderDays,
		invoice.RepeatIntervalDays,
		invoice.FollowupMessageTemplate,
		invoice.PaidAt,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, conn *gorm.DB, items []domain.Item) error {
	for _, item := range items {
		err := conn.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (id, invoice_id, sort_order, description, quantity, unit_price, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.InvoiceID,
			item.Position,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) DeleteItems(ctx context.Context, conn *gorm.DB, invoiceID snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM invoice_items WHERE invoice_id = ?`,
		invoiceID,
	).Error
}

func (r *repo) UpdateContent(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE invoices SET
			client_id = ?,
			issue_date = ?,
			due_date = ?,
			status = ?,
			total_amount = ?,
			notes = ?,
			auto_followups_enabled = ?,
			view_reminder_days = ?,
			due_reminder_days = ?,
			repeat_interval_days = ?,
			followup_message_template = ?,
			paid_at = ?,
			updated_at = ?
		 WHERE id = ? AND issuer_id = ?`,
		invoice.ClientID,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Status,
		invoice.TotalAmount,
		invoice.Notes,
		invoice.AutoFollowupsEnabled,
		invoice.ViewReminderDays,
		invoice.DueReminderDays,
		invoice.RepeatIntervalDays,
		invoice.FollowupMessageTemplate,
		invoice.PaidAt,
		invoice.UpdatedAt,
		invoice.ID,
		invoice.IssuerID,
	).Error
}

// UpdateStatus writes the status and paid_at together; paidAt is nil for
// every status but paid.
func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.Status, paidAt *time.Time, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ? WHERE id = ?`,
		status,
		paidAt,
		now,
		id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, issuerID string, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`, c.name AS client_name
		 FROM invoices i
		 LEFT JOIN clients c ON c.id = i.client_id
		 WHERE i.issuer_id = ? AND i.id = ?`,
		issuerID,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

// FindByIDForUpdate reads the invoice under a row lock. Use it only inside a
// transaction.
func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, issuerID string, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).
		Table("invoices AS i").
		Select(invoiceColumns).
		Clauses(db.ForUpdate()).
		Where("i.issuer_id = ? AND i.id = ?", issuerID, id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindAnyByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`, c.name AS client_name
		 FROM invoices i
		 LEFT JOIN clients c ON c.id = i.client_id
		 WHERE i.id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindAnyByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).
		Table("invoices AS i").
		Select(invoiceColumns).
		Clauses(db.ForUpdate()).
		Where("i.id = ?", id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, issuerID string) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := conn.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`, c.name AS client_name
		 FROM invoices i
		 LEFT JOIN clients c ON c.id = i.client_id
		 WHERE i.issuer_id = ?
		 ORDER BY i.issue_date DESC, i.id DESC`,
		issuerID,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListItems(ctx context.Context, conn *gorm.DB, invoiceID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := conn.WithContext(ctx).Raw(
		`SELECT id, invoice_id, sort_order, description, quantity, unit_price, created_at
		 FROM invoice_items
		 WHERE invoice_id = ?
		 ORDER BY sort_order ASC, created_at ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ClientBelongsToIssuer(ctx context.Context, conn *gorm.DB, issuerID string, clientID snowflake.ID, includeDeleted bool) (bool, error) {
	query := `SELECT COUNT(*) FROM clients WHERE issuer_id = ? AND id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	var count int64
	if err := conn.WithContext(ctx).Raw(query, issuerID, clientID).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindRecipient(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Recipient, error) {
	var row struct {
		InvoiceID     snowflake.ID
		InvoiceNumber string
		IssuerID      string
		ClientName    string
		ClientEmail   string
		IssuerName    *string
		IssuerEmail   *string
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT i.id AS invoice_id, i.invoice_number, i.issuer_id,
			c.name AS client_name, c.email AS client_email,
			s.display_name AS issuer_name, s.email AS issuer_email
		 FROM invoices i
		 JOIN clients c ON c.id = i.client_id
		 LEFT JOIN issuers s ON s.id = i.issuer_id
		 WHERE i.id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.InvoiceID == 0 {
		return nil, nil
	}
	recipient := &domain.Recipient{
		InvoiceID:     row.InvoiceID,
		InvoiceNumber: row.InvoiceNumber,
		IssuerID:      row.IssuerID,
		ClientName:    row.ClientName,
		ClientEmail:   strings.TrimSpace(row.ClientEmail),
	}
	if row.IssuerName != nil {
		recipient.IssuerName = *row.IssuerName
	}
	if row.IssuerEmail != nil {
		recipient.IssuerEmail = *row.IssuerEmail
	}
	return recipient, nil
}

func (r *repo) FindPublic(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.PublicInvoice, error) {
	var row struct {
		domain.Invoice
		ClientEmail   *string
		ClientAddress *string
		IssuerName    *string
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`, c.name AS client_name, c.email AS client_email,
			c.address AS client_address, s.display_name AS issuer_name
		 FROM invoices i
		 LEFT JOIN clients c ON c.id = i.client_id
		 LEFT JOIN issuers s ON s.id = i.issuer_id
		 WHERE i.id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	out := &domain.PublicInvoice{
		Invoice:       row.Invoice,
		ClientAddress: row.ClientAddress,
	}
	if row.ClientEmail != nil {
		out.ClientEmail = *row.ClientEmail
	}
	if row.IssuerName != nil {
		out.IssuerName = *row.IssuerName
	}
	return out, nil
}

func (r *repo) IncrementViewCount(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET view_count = COALESCE(view_count, 0) + 1, viewed_at = ?, updated_at = ?
		 WHERE id = ?`,
		now,
		now,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) IncrementFollowUpCount(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET follow_up_count = COALESCE(follow_up_count, 0) + 1, last_follow_up_at = ?, updated_at = ?
		 WHERE id = ?`,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetCheckoutReference(ctx context.Context, conn *gorm.DB, id snowflake.ID, paymentIntentID string, sessionID string, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET stripe_payment_intent_id = ?, stripe_checkout_session_id = ?, updated_at = ?
		 WHERE id = ?`,
		paymentIntentID,
		sessionID,
		now,
		id,
	).Error
}

func (r *repo) FindByPaymentReference(ctx context.Context, conn *gorm.DB, reference string) (*domain.Invoice, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var invoice domain.Invoice
	err := conn.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+`
		 FROM invoices i
		 WHERE i.stripe_payment_intent_id = ? OR i.stripe_checkout_session_id = ?
		 LIMIT 1`,
		reference,
		reference,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}
