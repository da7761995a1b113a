package domain

import (
	"context"
	"errors"
)

type UpsertClientRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address *string `json:"address"`
}

type Service interface {
	Create(ctx context.Context, req UpsertClientRequest) (Client, error)
	List(ctx context.Context) ([]Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	Update(ctx context.Context, id string, req UpsertClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidIssuer = errors.New("invalid_issuer")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidID     = errors.New("invalid_client_id")
	ErrNotFound      = errors.New("client_not_found")
)
