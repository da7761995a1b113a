package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is stateless; every method runs on the handle it is given so
// callers decide whether it is part of a transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	DeleteItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) error
	UpdateContent(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, paidAt *time.Time, now time.Time) error

	FindByID(ctx context.Context, db *gorm.DB, issuerID string, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, issuerID string, id snowflake.ID) (*Invoice, error)
	FindAnyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindAnyByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, issuerID string) ([]Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Item, error)

	ClientBelongsToIssuer(ctx context.Context, db *gorm.DB, issuerID string, clientID snowflake.ID, includeDeleted bool) (bool, error)
	FindRecipient(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Recipient, error)
	FindPublic(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PublicInvoice, error)

	IncrementViewCount(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	IncrementFollowUpCount(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	SetCheckoutReference(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentIntentID string, sessionID string, now time.Time) error
	FindByPaymentReference(ctx context.Context, db *gorm.DB, reference string) (*Invoice, error)
}
