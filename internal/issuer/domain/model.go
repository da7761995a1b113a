package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Issuer is the account holder that owns clients and invoices.
// ID is the subject issued by the identity provider.
type Issuer struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	DisplayName     string    `json:"display_name"`
	Email           string    `json:"email"`
	StripeAccountID *string   `json:"stripe_account_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Issuer) TableName() string { return "issuers" }

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Issuer, error)
	UpsertProfile(ctx context.Context, db *gorm.DB, issuer *Issuer) error
	SetStripeAccountID(ctx context.Context, db *gorm.DB, id string, accountID string, now time.Time) error
}

type Service interface {
	// Get returns the profile of the issuer in ctx. A never-saved profile is returned empty.
	Get(ctx context.Context) (Issuer, error)
	GetByID(ctx context.Context, id string) (Issuer, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (Issuer, error)
	SetStripeAccountID(ctx context.Context, id string, accountID string) error
}

var (
	ErrInvalidIssuer = errors.New("invalid_issuer")
	ErrInvalidEmail  = errors.New("invalid_email")
)
