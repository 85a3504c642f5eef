package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("reminder_type", "before_due"),
		attribute.String("invoice_id", "456"),
		attribute.String("kind", "invoice"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "reminder_type" && attrs[1].Key != "reminder_type" {
		t.Fatalf("expected reminder_type to be retained")
	}
	if attrs[0].Key != "kind" && attrs[1].Key != "kind" {
		t.Fatalf("expected kind to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordReminderSent(context.Background(), "after_due")
	m.RecordClientsImported(context.Background(), 3)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "barix"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	m.RecordDocumentCreated(context.Background(), "invoice")
	m.RecordRateLimitDenied(context.Background(), "/cron/reminders", "rate_limited")
}

func TestCountersExportWithFilteredLabels(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := New(Config{}, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m.RecordReminderSent(context.Background(), "before_due")
	m.RecordClientsImported(context.Background(), 0)
	m.RecordClientsImported(context.Background(), 4)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				totals[metric.Name] += point.Value
			}
		}
	}
	if totals["barix_reminders_sent_total"] != 1 {
		t.Fatalf("expected one reminder, got %v", totals)
	}
	if totals["barix_clients_imported_total"] != 4 {
		t.Fatalf("expected four imported clients, got %v", totals)
	}
}
