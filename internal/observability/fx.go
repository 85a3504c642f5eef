package observability

import (
	"github.com/burton0621/barix-site-sub000/internal/observability/logger"
	"github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	"github.com/burton0621/barix-site-sub000/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		splitConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.SchedulerWithConfig,
	),
	// Nothing depends on the tracer provider directly; it installs itself as
	// the otel global.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

type components struct {
	fx.Out

	Logger  logger.Config
	Tracing tracing.Config
	Metrics metrics.Config
}

// splitConfig hands each sub-package its own view of the shared settings.
func splitConfig(cfg Config) components {
	return components{
		Logger: logger.Config{
			ServiceName:   cfg.ServiceName,
			Environment:   cfg.Environment,
			Version:       cfg.Version,
			Level:         cfg.LogLevel,
			Format:        cfg.LogFormat,
			Debug:         cfg.Debug(),
			IncludeCaller: true,
		},
		Tracing: tracing.Config{
			Enabled:          cfg.OtelEnabled,
			ServiceName:      cfg.ServiceName,
			ServiceVersion:   cfg.Version,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.OtelExporterEndpoint,
			ExporterProtocol: cfg.OtelExporterProtocol,
			SamplingRatio:    cfg.OtelSamplingRatio,
		},
		Metrics: metrics.Config{
			Enabled:          cfg.OtelEnabled,
			ExporterEndpoint: cfg.OtelExporterEndpoint,
			ExporterProtocol: cfg.OtelExporterProtocol,
			ServiceName:      cfg.ServiceName,
			Environment:      cfg.Environment,
		},
	}
}
