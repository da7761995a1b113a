package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/followup/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, followUp *domain.FollowUp) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO follow_ups (id, invoice_id, issuer_id, method, message, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		followUp.ID,
		followUp.InvoiceID,
		followUp.IssuerID,
		followUp.Method,
		followUp.Message,
		followUp.SentAt,
	).Error
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, issuerID string, invoiceID snowflake.ID) ([]domain.FollowUp, error) {
	var items []domain.FollowUp
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, issuer_id, method, message, sent_at
		 FROM follow_ups
		 WHERE issuer_id = ? AND invoice_id = ?
		 ORDER BY sent_at DESC, id DESC`,
		issuerID,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
