package email

import (
	"strings"

	"github.com/smallbiznis/chaseless/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	switch strings.ToLower(cfg.Email.Provider) {
	case "sendgrid":
		if cfg.Email.SendGridAPIKey == "" {
			log.Warn("sendgrid selected without api key, e-mail disabled")
			return NewNoOp(log)
		}
		return NewSendGrid(cfg.Email.SendGridAPIKey)
	case "smtp":
		return NewSMTP(SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
		})
	default:
		return NewNoOp(log)
	}
}
