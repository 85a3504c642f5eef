package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	documentsCreated metric.Int64Counter
	documentsSent    metric.Int64Counter
	remindersSent    metric.Int64Counter
	clientsImported  metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New registers the domain counters on the service meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "barix"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.documentsCreated, "barix_documents_created_total", "Invoices and estimates created."},
		{&m.documentsSent, "barix_documents_sent_total", "Documents emailed to their client."},
		{&m.remindersSent, "barix_reminders_sent_total", "Payment reminders delivered."},
		{&m.clientsImported, "barix_clients_imported_total", "Clients inserted by import confirmations."},
		{&m.rateLimitDenied, "barix_rate_limit_denied_total", "Requests refused by the rate limiter."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

func (m *Metrics) add(ctx context.Context, counter metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if m == nil || counter == nil || n <= 0 {
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func (m *Metrics) RecordDocumentCreated(ctx context.Context, kind string) {
	if m != nil {
		m.add(ctx, m.documentsCreated, 1, attribute.String("kind", strings.TrimSpace(kind)))
	}
}

func (m *Metrics) RecordDocumentSent(ctx context.Context, kind string) {
	if m != nil {
		m.add(ctx, m.documentsSent, 1, attribute.String("kind", strings.TrimSpace(kind)))
	}
}

func (m *Metrics) RecordReminderSent(ctx context.Context, reminderType string) {
	if m != nil {
		m.add(ctx, m.remindersSent, 1, attribute.String("reminder_type", strings.TrimSpace(reminderType)))
	}
}

// RecordClientsImported adds the rows inserted by one import confirmation.
func (m *Metrics) RecordClientsImported(ctx context.Context, count int) {
	if m != nil {
		m.add(ctx, m.clientsImported, int64(count))
	}
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m != nil {
		m.add(ctx, m.rateLimitDenied, 1,
			attribute.String("endpoint", strings.TrimSpace(endpoint)),
			attribute.String("reason", strings.TrimSpace(reason)),
		)
	}
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Labels outside this set would carry ids or emails.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":          {},
	"reminder_type": {},
	"endpoint":      {},
	"reason":        {},
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
