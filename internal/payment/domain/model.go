// Package domain describes how an invoice is paid through the issuer's
// connected processor account and how the processor's confirmation is
// reconciled back into invoice state.
package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const ProviderStripe = "stripe"

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

// EventRecord is a received webhook delivery. The (provider, event id) pair
// is unique; a second delivery of the same event is recognised by it.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	InvoiceID       *snowflake.ID  `json:"invoice_id,omitempty"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:text;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// PaymentEvent is a processor confirmation in processor neutral form.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	// Reference is the payment intent id, or the session id when the
	// processor had not created an intent when the session was opened.
	Reference  string
	SessionID  string
	InvoiceID  *snowflake.ID
	Paid       bool
	OccurredAt time.Time
	RawPayload []byte
}

// CheckoutParams is what the gateway needs to open a hosted checkout on the
// issuer's connected account. Amounts are in minor units.
type CheckoutParams struct {
	AccountID           string
	Currency            string
	AmountMinor         int64
	ApplicationFeeMinor int64
	ProductName         string
	CustomerEmail       string
	SuccessURL          string
	CancelURL           string
	IdempotencyKey      string
	Metadata            map[string]string
}

type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
}

type Account struct {
	ID               string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	ChargesEnabled   bool   `json:"charges_enabled"`
}

// Gateway is the processor API used by the service.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
	CreateAccount(ctx context.Context, email string) (Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	RetrieveAccount(ctx context.Context, accountID string) (Account, error)
}

// WebhookAdapter authenticates and decodes processor webhook deliveries.
type WebhookAdapter interface {
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*PaymentEvent, error)
}

// CheckoutResult is returned to the payer. Fees are echoed so the payer page
// can show the surcharge.
type CheckoutResult struct {
	URL       string       `json:"url"`
	SessionID string       `json:"session_id"`
	Fees      FeeBreakdown `json:"fees"`
}

type AccountLink struct {
	URL       string `json:"url"`
	AccountID string `json:"account_id"`
}

type AccountStatus struct {
	Connected        bool   `json:"is_connected"`
	AccountID        string `json:"account_id,omitempty"`
	DetailsSubmitted bool   `json:"details_submitted"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, invoiceID *snowflake.ID, processedAt time.Time) error
}

type Service interface {
	CreateCheckoutSession(ctx context.Context, invoiceID string) (CheckoutResult, error)
	CreateAccountLink(ctx context.Context) (AccountLink, error)
	AccountStatus(ctx context.Context) (AccountStatus, error)
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error
}
