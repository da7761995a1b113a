package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, issuer_id, name, email, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.IssuerID,
		client.Name,
		client.Email,
		client.Address,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, issuerID string, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, issuer_id, name, email, address, created_at, updated_at, deleted_at
		 FROM clients
		 WHERE issuer_id = ? AND id = ? AND deleted_at IS NULL`,
		issuerID,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, issuerID string) ([]domain.Client, error) {
	var clients []domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, issuer_id, name, email, address, created_at, updated_at, deleted_at
		 FROM clients
		 WHERE issuer_id = ? AND deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC`,
		issuerID,
	).Scan(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET name = ?, email = ?, address = ?, updated_at = ?
		 WHERE issuer_id = ? AND id = ? AND deleted_at IS NULL`,
		client.Name,
		client.Email,
		client.Address,
		client.UpdatedAt,
		client.IssuerID,
		client.ID,
	).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, issuerID string, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET deleted_at = ?, updated_at = ?
		 WHERE issuer_id = ? AND id = ? AND deleted_at IS NULL`,
		at,
		at,
		issuerID,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
