package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/chaseless/internal/clock"
	issuerdomain "github.com/smallbiznis/chaseless/internal/issuer/domain"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     issuerdomain.Repository
	Validate *validator.Validate
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     issuerdomain.Repository
	validate *validator.Validate
}

func New(p Params) issuerdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("issuer.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		validate: p.Validate,
	}
}

func (s *Service) Get(ctx context.Context) (issuerdomain.Issuer, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return issuerdomain.Issuer{}, issuerdomain.ErrInvalidIssuer
	}
	return s.GetByID(ctx, issuerID)
}

func (s *Service) GetByID(ctx context.Context, id string) (issuerdomain.Issuer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return issuerdomain.Issuer{}, issuerdomain.ErrInvalidIssuer
	}
	row, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return issuerdomain.Issuer{}, err
	}
	if row == nil {
		return issuerdomain.Issuer{ID: id}, nil
	}
	return *row, nil
}

func (s *Service) UpdateProfile(ctx context.Context, req issuerdomain.UpdateProfileRequest) (issuerdomain.Issuer, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return issuerdomain.Issuer{}, issuerdomain.ErrInvalidIssuer
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && s.validate.Var(email, "email") != nil {
		return issuerdomain.Issuer{}, issuerdomain.ErrInvalidEmail
	}

	now := s.clock.Now()
	row := issuerdomain.Issuer{
		ID:          issuerID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.UpsertProfile(ctx, s.db, &row); err != nil {
		return issuerdomain.Issuer{}, err
	}
	return s.GetByID(ctx, issuerID)
}

func (s *Service) SetStripeAccountID(ctx context.Context, id string, accountID string) error {
	id = strings.TrimSpace(id)
	accountID = strings.TrimSpace(accountID)
	if id == "" || accountID == "" {
		return issuerdomain.ErrInvalidIssuer
	}
	if err := s.repo.SetStripeAccountID(ctx, s.db, id, accountID, s.clock.Now()); err != nil {
		return err
	}
	s.log.Info("connected account linked", zap.String("issuer_id", id), zap.String("stripe_account_id", accountID))
	return nil
}
