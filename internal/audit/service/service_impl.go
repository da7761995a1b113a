package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, issuerID *string, actorType string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}

	resolvedIssuer := s.resolveIssuerID(ctx, issuerID)
	actorType = strings.TrimSpace(actorType)
	if actorType == "" {
		actorType = auditdomain.ActorSystem
		if resolvedIssuer != nil {
			actorType = auditdomain.ActorIssuer
		}
	}

	payload := map[string]any{}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		IssuerID:   resolvedIssuer,
		ActorType:  actorType,
		Action:     action,
		TargetType: targetType,
		TargetID:   normalizePointer(targetID),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}
	if actorType == auditdomain.ActorIssuer {
		entry.ActorID = resolvedIssuer
	}
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		entry.RequestID = &requestID
	}
	info := issuercontext.ClientInfoFromContext(ctx)
	if info.IPAddress != "" {
		entry.IPAddress = &info.IPAddress
	}
	if info.UserAgent != "" {
		entry.UserAgent = &info.UserAgent
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidIssuer
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 250 {
		limit = 250
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		IssuerID:   issuerID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Limit:      limit,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	if items == nil {
		items = []auditdomain.AuditLog{}
	}
	return auditdomain.ListAuditLogResponse{AuditLogs: items}, nil
}

func (s *Service) resolveIssuerID(ctx context.Context, issuerID *string) *string {
	if issuerID != nil && strings.TrimSpace(*issuerID) != "" {
		value := strings.TrimSpace(*issuerID)
		return &value
	}
	resolved, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &resolved
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
