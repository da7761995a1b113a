package payment

import (
	"github.com/smallbiznis/chaseless/internal/payment/adapters/stripe"
	"github.com/smallbiznis/chaseless/internal/payment/repository"
	"github.com/smallbiznis/chaseless/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(stripe.NewGateway),
	fx.Provide(stripe.NewWebhookAdapter),
	fx.Provide(service.New),
)
