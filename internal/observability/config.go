package observability

import (
	"strings"

	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/spf13/viper"
)

// Config is the tracing setup. The standard OTEL_* variables override what
// the app config says.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("OTEL_SERVICE_NAME", cfg.AppName)
	v.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	v.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)

	endpoint := strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"))
	v.SetDefault("OTEL_ENABLED", endpoint != "")

	service := strings.TrimSpace(v.GetString("OTEL_SERVICE_NAME"))
	if service == "" {
		service = "chaseless"
	}

	ratio := v.GetFloat64("OTEL_SAMPLING_RATIO")
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}

	return Config{
		ServiceName:          service,
		Environment:          strings.TrimSpace(v.GetString("DEPLOYMENT_ENV")),
		Version:              strings.TrimSpace(v.GetString("SERVICE_VERSION")),
		OtelEnabled:          v.GetBool("OTEL_ENABLED"),
		OtelExporterEndpoint: endpoint,
		OtelSamplingRatio:    ratio,
	}
}
