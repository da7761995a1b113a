package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is the billed party on an invoice. Deleting a client only hides it;
// invoices keep referencing it.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	IssuerID  string       `gorm:"not null;index" json:"-"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null" json:"email"`
	Address   *string      `json:"address,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}

func (Client) TableName() string { return "clients" }
