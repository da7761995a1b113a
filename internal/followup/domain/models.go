// Package domain holds the follow-up ledger: immutable records of reminders
// sent to a client about an invoice.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	MethodEmail  = "email"
	MethodSMS    = "sms"
	MethodPhone  = "phone"
	MethodManual = "manual"
)

// FollowUp is append only. Rows are never updated or deleted.
type FollowUp struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	IssuerID  string       `gorm:"not null" json:"-"`
	Method    string       `gorm:"not null" json:"method"`
	Message   string       `gorm:"not null" json:"message"`
	SentAt    time.Time    `gorm:"not null" json:"sent_at"`
}

func (FollowUp) TableName() string { return "follow_ups" }

// RecordRequest needs a message unless UseTemplate is set; a templated
// request with no message takes the invoice template, then DefaultMessage.
type RecordRequest struct {
	Method      string `json:"method"`
	Message     string `json:"message"`
	UseTemplate bool   `json:"use_template"`
}

// Result is a recorded follow-up plus the outcome of the e-mail dispatch.
// A warning never means the record was lost.
type Result struct {
	FollowUp FollowUp `json:"follow_up"`
	Notified bool     `json:"notified"`
	Warning  string   `json:"warning,omitempty"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, followUp *FollowUp) error
	ListByInvoice(ctx context.Context, db *gorm.DB, issuerID string, invoiceID snowflake.ID) ([]FollowUp, error)
}

type Service interface {
	Record(ctx context.Context, invoiceID string, req RecordRequest) (Result, error)
	List(ctx context.Context, invoiceID string) ([]FollowUp, error)
	DueReminders(ctx context.Context, invoiceID string) ([]Reminder, error)
}

var (
	ErrInvalidMethod  = errors.New("invalid_follow_up_method")
	ErrInvalidMessage = errors.New("invalid_follow_up_message")
)
