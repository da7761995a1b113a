package observability

import (
	"github.com/smallbiznis/chaseless/internal/observability/metrics"
	"github.com/smallbiznis/chaseless/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module installs the global tracer provider and the engine metrics.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				SamplingRatio:    cfg.OtelSamplingRatio,
			}
		},
		tracing.NewProvider,
		metrics.NewDefault,
	),
	// Nothing else asks for the provider; force it so the global is set.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
