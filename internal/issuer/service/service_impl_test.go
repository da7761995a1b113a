package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/issuer/domain"
	"github.com/smallbiznis/chaseless/internal/issuer/repository"
	"github.com/smallbiznis/chaseless/internal/issuercontext"
	"github.com/smallbiznis/chaseless/internal/testutil"
	"github.com/smallbiznis/chaseless/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	return New(Params{
		DB:       testutil.OpenDB(t),
		Log:      zap.NewNop(),
		Clock:    clock.SystemClock{},
		Repo:     repository.Provide(),
		Validate: validation.New(),
	})
}

func TestProfileAndConnectedAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")

	empty, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "issuer-1", empty.ID)
	assert.Nil(t, empty.StripeAccountID)

	require.NoError(t, svc.SetStripeAccountID(ctx, "issuer-1", "acct_123"))

	updated, err := svc.UpdateProfile(ctx, domain.UpdateProfileRequest{DisplayName: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.DisplayName)
	require.NotNil(t, updated.StripeAccountID)
	assert.Equal(t, "acct_123", *updated.StripeAccountID)
}

func TestUpdateProfileRejectsBadEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := issuercontext.WithIssuerID(context.Background(), "issuer-1")

	_, err := svc.UpdateProfile(ctx, domain.UpdateProfileRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidIssuer)
}
