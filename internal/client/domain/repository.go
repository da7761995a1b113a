package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, issuerID string, id snowflake.ID) (*Client, error)
	List(ctx context.Context, db *gorm.DB, issuerID string) ([]Client, error)
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	SoftDelete(ctx context.Context, db *gorm.DB, issuerID string, id snowflake.ID, at time.Time) (bool, error)
}
