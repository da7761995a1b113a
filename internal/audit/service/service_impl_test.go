package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/audit/domain"
	"github.com/smallbiznis/chaseless/internal/audit/repository"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditLogRecordsIssuerAction(t *testing.T) {
	db := testutil.OpenDB(t)
	node, _ := snowflake.NewNode(1)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})

	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")
	ctx = issuercontext.WithClientInfo(ctx, issuercontext.ClientInfo{IPAddress: "10.0.0.1"})
	target := "42"

	require.NoError(t, svc.AuditLog(ctx, nil, "", "create_client", "client", &target, map[string]any{"name": "Acme"}))
	require.NoError(t, svc.AuditLog(ctx, nil, "", "delete_client", "client", &target, nil))

	resp, err := svc.List(ctx, domain.ListAuditLogRequest{Action: "create_client"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, domain.ActorIssuer, entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "issuer-1", *entry.ActorID)
	assert.Equal(t, "Acme", entry.Metadata["name"])
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	db := testutil.OpenDB(t)
	node, _ := snowflake.NewNode(1)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clock.SystemClock{}, Repo: repository.Provide()})

	err := svc.AuditLog(context.Background(), nil, "", "  ", "client", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	_, err = svc.List(context.Background(), domain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidIssuer)
}
