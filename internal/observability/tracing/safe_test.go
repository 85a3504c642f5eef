package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPII(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("email", "client@example.com"),
		attribute.String("http.route", "/api/documents/:id"),
		attribute.String("http.path", strings.Repeat("a", 400)),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if got := len(attrs[1].Value.AsString()); got != maxAttributeLength {
		t.Fatalf("expected truncated value, got length %d", got)
	}
}

func TestSafeErrorRedactsEmails(t *testing.T) {
	if got := SafeError(errors.New("send to bob@example.com failed")); got.Error() != "redacted error" {
		t.Fatalf("expected redacted error, got %q", got)
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
