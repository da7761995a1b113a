package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/chaseless/internal/issuer/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Issuer, error) {
	var row domain.Issuer
	err := db.WithContext(ctx).Raw(
		`SELECT id, display_name, email, stripe_account_id, created_at, updated_at
		 FROM issuers
		 WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) UpsertProfile(ctx context.Context, db *gorm.DB, issuer *domain.Issuer) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "updated_at"}),
	}).Create(issuer).Error
}

func (r *repo) SetStripeAccountID(ctx context.Context, db *gorm.DB, id string, accountID string, now time.Time) error {
	row := domain.Issuer{
		ID:              id,
		StripeAccountID: &accountID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_account_id", "updated_at"}),
	}).Create(&row).Error
}
