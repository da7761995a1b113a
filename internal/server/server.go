package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/chaseless/internal/audit"
	auditdomain "github.com/smallbiznis/chaseless/internal/audit/domain"
	"github.com/smallbiznis/chaseless/internal/client"
	clientdomain "github.com/smallbiznis/chaseless/internal/client/domain"
	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/smallbiznis/chaseless/internal/followup"
	followupdomain "github.com/smallbiznis/chaseless/internal/followup/domain"
	"github.com/smallbiznis/chaseless/internal/invoice"
	invoicedomain "github.com/smallbiznis/chaseless/internal/invoice/domain"
	"github.com/smallbiznis/chaseless/internal/issuer"
	issuerdomain "github.com/smallbiznis/chaseless/internal/issuer/domain"
	"github.com/smallbiznis/chaseless/internal/logger"
	"github.com/smallbiznis/chaseless/internal/notification"
	"github.com/smallbiznis/chaseless/internal/observability/metrics"
	"github.com/smallbiznis/chaseless/internal/observability/tracing"
	"github.com/smallbiznis/chaseless/internal/payment"
	paymentdomain "github.com/smallbiznis/chaseless/internal/payment/domain"
	"github.com/smallbiznis/chaseless/internal/providers"
	"github.com/smallbiznis/chaseless/internal/providers/pdf"
	"github.com/smallbiznis/chaseless/internal/ratelimit"
	"github.com/smallbiznis/chaseless/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	validation.Module,
	providers.Module,
	notification.Module,
	ratelimit.Module,
	audit.Module,
	issuer.Module,
	client.Module,
	invoice.Module,
	followup.Module,
	payment.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, m *metrics.Metrics, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(logger.RequestID())
	r.Use(logger.GinMiddleware(log.Named("http"), classifyErrorForLog))
	r.Use(tracing.GinMiddleware())
	r.Use(metricsMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(cfg config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowOrigins = []string{cfg.FrontendURL}
	}
	corsCfg.AddAllowMethods("PATCH")
	corsCfg.AddAllowHeaders(HeaderIssuerID, HeaderGatewaySecret, logger.RequestIDHeader)
	corsCfg.AddExposeHeaders(logger.RequestIDHeader, tracing.TraceIDHeader, "Retry-After")
	return corsCfg
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	auditSvc    auditdomain.Service
	clientSvc   clientdomain.Service
	issuerSvc   issuerdomain.Service
	invoiceSvc  invoicedomain.Service
	followUpSvc followupdomain.Service
	paymentSvc  paymentdomain.Service
	pdf         pdf.Renderer
	limiter     *ratelimit.PublicLimiter
	obsMetrics  *metrics.Metrics
	fees        *config.FeeConfigHolder
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	AuditSvc    auditdomain.Service
	ClientSvc   clientdomain.Service
	IssuerSvc   issuerdomain.Service
	InvoiceSvc  invoicedomain.Service
	FollowUpSvc followupdomain.Service
	PaymentSvc  paymentdomain.Service
	PDF         pdf.Renderer
	Fees        *config.FeeConfigHolder
	Limiter     *ratelimit.PublicLimiter `optional:"true"`
	ObsMetrics  *metrics.Metrics         `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		auditSvc:    p.AuditSvc,
		clientSvc:   p.ClientSvc,
		issuerSvc:   p.IssuerSvc,
		invoiceSvc:  p.InvoiceSvc,
		followUpSvc: p.FollowUpSvc,
		paymentSvc:  p.PaymentSvc,
		pdf:         p.PDF,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
		fees:        p.Fees,
	}
}

func (s *Server) RegisterRoutes() {
	s.registerAPIRoutes()
	s.registerPublicRoutes()
	s.registerWebhookRoutes()
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.IssuerRequired())

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/next-number", s.NextInvoiceNumber)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.ReplaceInvoice)
	api.PATCH("/invoices/:id/status", s.UpdateInvoiceStatus)
	api.GET("/invoices/:id/rules", s.GetInvoiceRules)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)

	// -------- Follow-ups --------
	api.POST("/invoices/:id/follow-ups", s.RecordFollowUp)
	api.GET("/invoices/:id/follow-ups", s.ListFollowUps)
	api.GET("/invoices/:id/reminders", s.ListDueReminders)

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.PUT("/clients/:id", s.UpdateClient)
	api.DELETE("/clients/:id", s.DeleteClient)

	// -------- Profile --------
	api.GET("/profile", s.GetProfile)
	api.PUT("/profile", s.UpdateProfile)

	// -------- Stripe Connect --------
	api.POST("/stripe-connect/account-link", s.CreateAccountLink)
	api.GET("/stripe-connect/status", s.GetAccountStatus)

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")
	public.GET("/invoices/:id", s.PublicRateLimit("invoice_view"), s.GetPublicInvoice)
	public.POST("/invoices/:id/checkout", s.PublicRateLimit("checkout"), s.CreateCheckoutSession)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
}
