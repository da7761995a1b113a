package observability

import (
	"testing"

	"github.com/smallbiznis/chaseless/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFromAppConfig(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")

	cfg := LoadConfig(config.Config{AppName: "chaseless", AppVersion: "1.2.0", Environment: "staging"})

	assert.Equal(t, "chaseless", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
}

func TestLoadConfigOtelOverrides(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	cfg := LoadConfig(config.Config{AppName: "chaseless", OTLPEndpoint: "ignored:4317"})

	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)

	t.Setenv("OTEL_SAMPLING_RATIO", "7")
	assert.Equal(t, 0.1, LoadConfig(config.Config{}).OtelSamplingRatio)
}
