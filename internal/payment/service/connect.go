package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/chaseless/internal/issuercontext"
	issuerdomain "github.com/smallbiznis/chaseless/internal/issuer/domain"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"go.uber.org/zap"
)

// CreateAccountLink creates the issuer's express account on first use and
// returns an onboarding link for it.
func (s *Service) CreateAccountLink(ctx context.Context) (paymentdomain.AccountLink, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return paymentdomain.AccountLink{}, issuerdomain.ErrInvalidIssuer
	}
	issuer, err := s.issuerSvc.GetByID(ctx, issuerID)
	if err != nil {
		return paymentdomain.AccountLink{}, err
	}

	accountID := ""
	if issuer.StripeAccountID != nil {
		accountID = strings.TrimSpace(*issuer.StripeAccountID)
	}
	if accountID == "" {
		account, err := s.gateway.CreateAccount(ctx, issuer.Email)
		if err != nil {
			return paymentdomain.AccountLink{}, s.processorError("create connected account", err)
		}
		accountID = account.ID
		if err := s.issuerSvc.SetStripeAccountID(ctx, issuerID, accountID); err != nil {
			return paymentdomain.AccountLink{}, err
		}
	}

	url, err := s.gateway.CreateAccountLink(ctx, accountID,
		s.frontendURL+"/user-profile?reauth=true",
		s.frontendURL+"/user-profile?stripe_return=true",
	)
	if err != nil {
		return paymentdomain.AccountLink{}, s.processorError("create account link", err)
	}
	return paymentdomain.AccountLink{URL: url, AccountID: accountID}, nil
}

func (s *Service) AccountStatus(ctx context.Context) (paymentdomain.AccountStatus, error) {
	issuerID, ok := issuercontext.IssuerIDFromContext(ctx)
	if !ok {
		return paymentdomain.AccountStatus{}, issuerdomain.ErrInvalidIssuer
	}
	issuer, err := s.issuerSvc.GetByID(ctx, issuerID)
	if err != nil {
		return paymentdomain.AccountStatus{}, err
	}
	if issuer.StripeAccountID == nil || strings.TrimSpace(*issuer.StripeAccountID) == "" {
		return paymentdomain.AccountStatus{Connected: false}, nil
	}

	accountID := strings.TrimSpace(*issuer.StripeAccountID)
	account, err := s.gateway.RetrieveAccount(ctx, accountID)
	if err != nil {
		return paymentdomain.AccountStatus{}, s.processorError("retrieve account", err)
	}
	return paymentdomain.AccountStatus{
		Connected:        true,
		AccountID:        accountID,
		DetailsSubmitted: account.DetailsSubmitted,
		PayoutsEnabled:   account.PayoutsEnabled,
	}, nil
}

func (s *Service) processorError(op string, err error) error {
	s.log.Error(op+" failed", zap.Error(err))
	if errors.Is(err, paymentdomain.ErrInvalidConfig) {
		return err
	}
	return fmt.Errorf("%w: %v", paymentdomain.ErrProcessorFailed, err)
}
