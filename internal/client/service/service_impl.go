package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	clientdomain "github.com/smallbiznis/chaseless/internal/client/domain"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     clientdomain.Repository
	Validate *validator.Validate
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     clientdomain.Repository
	validate *validator.Validate
	auditSvc auditdomain.Service
}

func New(p Params) clientdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		validate: p.Validate,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req clientdomain.UpsertClientRequest) (clientdomain.Client, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return clientdomain.Client{}, err
	}

	name, email, address, err := s.normalize(req)
	if err != nil {
		return clientdomain.Client{}, err
	}

	now := s.clock.Now()
	entity := clientdomain.Client{
		ID:        s.genID.Generate(),
		IssuerID:  issuerID,
		Name:      name,
		Email:     email,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &entity); err != nil {
		return clientdomain.Client{}, err
	}

	s.emitAudit(ctx, "create_client", entity, nil)
	return entity, nil
}

func (s *Service) List(ctx context.Context) ([]clientdomain.Client, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, issuerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []clientdomain.Client{}
	}
	return items, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (clientdomain.Client, error) {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return clientdomain.Client{}, err
	}

	clientID, err := parseID(id)
	if err != nil {
		return clientdomain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, issuerID, clientID)
	if err != nil {
		return clientdomain.Client{}, err
	}
	if item == nil {
		return clientdomain.Client{}, clientdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req clientdomain.UpsertClientRequest) (clientdomain.Client, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return clientdomain.Client{}, err
	}

	name, email, address, err := s.normalize(req)
	if err != nil {
		return clientdomain.Client{}, err
	}

	current.Name = name
	current.Email = email
	current.Address = address
	current.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &current); err != nil {
		return clientdomain.Client{}, err
	}

	s.emitAudit(ctx, "update_client", current, nil)
	return current, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	issuerID, err := s.issuerIDFromContext(ctx)
	if err != nil {
		return err
	}

	clientID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.SoftDelete(ctx, s.db, issuerID, clientID, s.clock.Now())
	if err != nil {
		return err
	}
	if !deleted {
		return clientdomain.ErrNotFound
	}

	s.emitAudit(ctx, "delete_client", clientdomain.Client{ID: clientID, IssuerID: issuerID}, nil)
	return nil
}

func (s *Service) normalize(req clientdomain.UpsertClientRequest) (string, string, *string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", "", nil, clientdomain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || s.validate.Var(email, "required,email") != nil {
		return "", "", nil, clientdomain.ErrInvalidEmail
	}

	var address *string
	if req.Address != nil {
		trimmed := strings.TrimSpace(*req.Address)
		if trimmed != "" {
			address = &trimmed
		}
	}
	return name, email, address, nil
}

func (s *Service) issuerIDFromContext(ctx context.Context) (string, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return "", clientdomain.ErrInvalidIssuer
	}
	return issuerID, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, entity clientdomain.Client, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := entity.ID.String()
	if metadata == nil {
		metadata = map[string]any{}
	}
	if entity.Name != "" {
		metadata["name"] = entity.Name
	}
	issuerID := entity.IssuerID
	if err := s.auditSvc.AuditLog(ctx, &issuerID, "", action, "client", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, clientdomain.ErrInvalidID
	}
	parsed, err := snowflake.ParseString(value)
	if err != nil || parsed <= 0 {
		return 0, clientdomain.ErrInvalidID
	}
	return parsed, nil
}
