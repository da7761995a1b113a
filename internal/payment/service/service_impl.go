package service

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/chaseless/internal/clock"
	"github.com/smallbiznis/chaseless/internal/config"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	issuerdomain "github.com/smallbiznis/chaseless/internal/issuer/domain"
	"github.com/smallbiznis/chaseless/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	Fees        *config.FeeConfigHolder
	Repo        paymentdomain.Repository
	Gateway     paymentdomain.Gateway
	Webhook     paymentdomain.WebhookAdapter
	InvoiceRepo invoicedomain.Repository
	InvoiceSvc  invoicedomain.Service
	IssuerSvc   issuerdomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	frontendURL string
	currency    string
	fees        *config.FeeConfigHolder
	repo        paymentdomain.Repository
	gateway     paymentdomain.Gateway
	webhook     paymentdomain.WebhookAdapter
	invoiceRepo invoicedomain.Repository
	invoiceSvc  invoicedomain.Service
	issuerSvc   issuerdomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) paymentdomain.Service {
	currency := strings.ToLower(strings.TrimSpace(p.Config.Stripe.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		frontendURL: strings.TrimRight(p.Config.FrontendURL, "/"),
		currency:    currency,
		fees:        p.Fees,
		repo:        p.Repo,
		gateway:     p.Gateway,
		webhook:     p.Webhook,
		invoiceRepo: p.InvoiceRepo,
		invoiceSvc:  p.InvoiceSvc,
		issuerSvc:   p.IssuerSvc,
		metrics:     p.Metrics,
	}
}
