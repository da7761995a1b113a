// Package domain contains the invoice ledger models and the status rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Invoice is the persisted invoice header. TotalAmount is derived from the
// item set and written in the same transaction as the items.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	IssuerID      string          `gorm:"not null;index" json:"-"`
	ClientID      snowflake.ID    `gorm:"not null;index" json:"client_id"`
	InvoiceNumber string          `gorm:"not null" json:"invoice_number"`
	IssueDate     time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"type:date;not null" json:"due_date"`
	Status        Status          `gorm:"not null;default:'draft'" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Notes         *string         `json:"notes,omitempty"`

	ViewCount      int        `json:"view_count"`
	ViewedAt       *time.Time `json:"viewed_at,omitempty"`
	FollowUpCount  int        `json:"follow_up_count"`
	LastFollowUpAt *time.Time `json:"last_follow_up_at,omitempty"`

	AutoFollowupsEnabled    bool    `json:"auto_followups_enabled"`
	ViewReminderDays        *int    `json:"view_reminder_days,omitempty"`
	DueReminderDays         *int    `json:"due_reminder_days,omitempty"`
	RepeatIntervalDays      *int    `json:"repeat_interval_days,omitempty"`
	FollowupMessageTemplate *string `json:"followup_message_template,omitempty"`

	StripePaymentIntentID   *string    `json:"stripe_payment_intent_id,omitempty"`
	StripeCheckoutSessionID *string    `json:"-"`
	PaidAt                  *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Read-side fields.
	ClientName    string `gorm:"->" json:"client_name,omitempty"`
	DisplayStatus Status `gorm:"-" json:"display_status"`
	Items         []Item `gorm:"-" json:"items,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// Rules returns the follow-up configuration stored on the invoice.
func (i Invoice) Rules() Rules {
	return Rules{
		AutoFollowupsEnabled:    i.AutoFollowupsEnabled,
		ViewReminderDays:        i.ViewReminderDays,
		DueReminderDays:         i.DueReminderDays,
		RepeatIntervalDays:      i.RepeatIntervalDays,
		FollowupMessageTemplate: i.FollowupMessageTemplate,
	}
}

// Item is a line on an invoice. Items have no identity across edits: a
// replace deletes the whole set and inserts a new one.
type Item struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"-"`
	Position    int             `gorm:"column:sort_order;not null" json:"position"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (Item) TableName() string { return "invoice_items" }

// Amount is the line total rounded to cents.
func (it Item) Amount() decimal.Decimal {
	return LineAmount(it.Quantity, it.UnitPrice)
}

// Rules is the per-invoice follow-up configuration. It is written with the
// invoice and read back on its own.
type Rules struct {
	AutoFollowupsEnabled    bool    `json:"auto_followups_enabled"`
	ViewReminderDays        *int    `json:"view_reminder_days" validate:"omitempty,gt=0,lte=365"`
	DueReminderDays         *int    `json:"due_reminder_days" validate:"omitempty,gt=0,lte=365"`
	RepeatIntervalDays      *int    `json:"repeat_interval_days" validate:"omitempty,gt=0,lte=365"`
	FollowupMessageTemplate *string `json:"followup_message_template" validate:"omitempty,max=2000"`
}

// Recipient is who a client notification goes to, and who it comes from.
type Recipient struct {
	InvoiceID     snowflake.ID
	InvoiceNumber string
	IssuerID      string
	ClientName    string
	ClientEmail   string
	IssuerName    string
	IssuerEmail   string
}

// PublicInvoice is the payer facing view of an invoice.
type PublicInvoice struct {
	Invoice
	ClientEmail   string  `json:"client_email"`
	ClientAddress *string `json:"client_address,omitempty"`
	IssuerName    string  `json:"issuer_name"`
}
