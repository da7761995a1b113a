package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ItemInput struct {
	Description string  `json:"description"`
	Quantity    Numeric `json:"quantity"`
	UnitPrice   Numeric `json:"unit_price"`
}

// UpsertInvoiceRequest is the payload of both create and full replace.
// An empty Status means draft on create and "leave as is" on replace.
type UpsertInvoiceRequest struct {
	ClientID  string      `json:"client_id"`
	IssueDate string      `json:"issue_date"`
	DueDate   string      `json:"due_date"`
	Items     []ItemInput `json:"items"`
	Notes     *string     `json:"notes"`
	Status    string      `json:"status"`
	Rules
}

// Mutation is the result of a write that may notify the client.
type Mutation struct {
	Invoice  Invoice `json:"invoice"`
	Notified bool    `json:"notified"`
	Warning  string  `json:"warning,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req UpsertInvoiceRequest) (Mutation, error)
	Replace(ctx context.Context, id string, req UpsertInvoiceRequest) (Mutation, error)
	TransitionStatus(ctx context.Context, id string, status string) (Mutation, error)
	List(ctx context.Context) ([]Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	NextNumber(ctx context.Context) (string, error)
	Rules(ctx context.Context, id string) (Rules, error)
	GetPublic(ctx context.Context, id string) (PublicInvoice, error)
	Export(ctx context.Context, id string) (PublicInvoice, error)
	MarkPaid(ctx context.Context, id snowflake.ID, paidAt time.Time) (Invoice, bool, error)
}

const (
	WarningNotificationFailed = "notification_failed"
	WarningEmailUnavailable   = "client_email_unavailable"
)

var (
	ErrInvalidIssuer       = errors.New("invalid_issuer")
	ErrInvalidID           = errors.New("invalid_invoice_id")
	ErrNotFound            = errors.New("invoice_not_found")
	ErrInvalidClient       = errors.New("invalid_client")
	ErrClientNotFound      = errors.New("client_not_found")
	ErrInvalidIssueDate    = errors.New("invalid_issue_date")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrEmptyItems          = errors.New("invoice_items_required")
	ErrInvalidItem         = errors.New("invalid_item_description")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidReminderDays = errors.New("invalid_reminder_days")
	ErrPaidImmutable       = errors.New("invoice_paid_immutable")
	ErrNumberConflict      = errors.New("invoice_number_conflict")
)
