package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Base URL of the payer facing web app. Pay links and checkout redirects point here.
	FrontendURL string
	CORSOrigins []string

	// Shared secret the identity gateway sends with every issuer request.
	GatewaySecret string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SequenceStrategy string

	RateLimit RateLimitConfig

	Stripe StripeConfig
	Email  EmailConfig
	Logger LoggerConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string
	Currency      string
}

type EmailConfig struct {
	Provider       string
	FromAddress    string
	FromName       string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
}

// RateLimitConfig bounds the unauthenticated payer routes per client IP.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

type LoggerConfig struct {
	Level string
}

const (
	SequenceCount   = "count"
	SequenceCounter = "counter"
	SequenceLock    = "lock"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "chaseless"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		FrontendURL:       strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:5173"), "/"),
		CORSOrigins:       parseList(getenv("CORS_ORIGINS", "")),
		GatewaySecret:     strings.TrimSpace(getenv("GATEWAY_SECRET", "")),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", ""),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "chaseless"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "chaseless.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		SequenceStrategy:  normalizeStrategy(getenv("INVOICE_SEQUENCE_STRATEGY", SequenceCounter)),
		RateLimit: RateLimitConfig{
			Enabled: getenv("PUBLIC_RATE_LIMIT_ENABLED", "true") == "true",
			Rate:    getenvFloat("PUBLIC_RATE_LIMIT_RPS", 5),
			Burst:   getenvInt("PUBLIC_RATE_LIMIT_BURST", 20),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBaseURL:    strings.TrimRight(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com"), "/"),
			Currency:      strings.ToLower(getenv("BILLING_CURRENCY", "usd")),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(getenv("EMAIL_PROVIDER", "noop")),
			FromAddress:    getenv("FROM_EMAIL", "no-reply@chaseless.app"),
			FromName:       getenv("FROM_NAME", "Chaseless"),
			SendGridAPIKey: strings.TrimSpace(getenv("SENDGRID_API_KEY", "")),
			SMTPHost:       getenv("SMTP_HOST", "localhost"),
			SMTPPort:       getenvInt("SMTP_PORT", 1025),
			SMTPUsername:   getenv("SMTP_USERNAME", ""),
			SMTPPassword:   getenv("SMTP_PASSWORD", ""),
		},
		Logger: LoggerConfig{
			Level: strings.ToLower(getenv("LOG_LEVEL", "info")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewFeeConfigHolder),
)

func normalizeStrategy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SequenceCount:
		return SequenceCount
	case SequenceLock:
		return SequenceLock
	default:
		return SequenceCounter
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
