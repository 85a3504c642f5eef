package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/burton0621/barix-site-sub000/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool

	SamplingInitial    int
	SamplingThereafter int
	IncludeCaller      bool
}

// auditPrefixes name the events operators reconcile against (reminder sends,
// document state changes, imports). They bypass sampling.
var auditPrefixes = []string{"reminder.", "document.", "estimate.", "clientimport."}

// New builds the process logger, installs it as the zap global and syncs it
// on shutdown.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.Encoding = "json"
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.DisableCaller = !cfg.IncludeCaller
	if cfg.Debug {
		zapCfg.EncoderConfig.StacktraceKey = "stack"
	} else {
		zapCfg.DisableStacktrace = true
	}

	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	initial, thereafter := cfg.SamplingInitial, cfg.SamplingThereafter
	if initial <= 0 {
		initial = 100
	}
	if thereafter <= 0 {
		thereafter = 100
	}
	logger, err := zapCfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &auditCore{
			Core:      zapcore.NewSamplerWithOptions(core, time.Second, initial, thereafter),
			unsampled: core,
		}
	}))
	if err != nil {
		return nil, err
	}

	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "barix"
	}
	logger = logger.With(
		zap.String("service", service),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(logger)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = logger.Sync()
				return nil
			},
		})
	}
	return logger, nil
}

// auditCore samples ordinary entries and writes warnings, errors and audit
// events unconditionally.
type auditCore struct {
	zapcore.Core
	unsampled zapcore.Core
}

func (c *auditCore) With(fields []zapcore.Field) zapcore.Core {
	return &auditCore{Core: c.Core.With(fields), unsampled: c.unsampled.With(fields)}
}

func (c *auditCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level >= zapcore.WarnLevel || isAuditEvent(ent.Message) {
		return c.unsampled.Check(ent, ce)
	}
	return c.Core.Check(ent, ce)
}

func isAuditEvent(msg string) bool {
	for _, prefix := range auditPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// FromContext returns a logger enriched with request-scoped fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger with correlation fields.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 5)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if orgID := obscontext.OrgIDFromContext(ctx); orgID != "" {
		fields = append(fields, zap.String("org_id", orgID))
	}
	if job := obscontext.JobFromContext(ctx); job != "" {
		fields = append(fields, zap.String("job", job))
	}
	fields = append(fields, traceFieldsFromContext(ctx)...)
	if len(fields) == 0 {
		return base
	}

	return base.With(fields...)
}

func traceFieldsFromContext(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
