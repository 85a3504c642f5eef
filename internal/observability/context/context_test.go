package context

import (
	stdcontext "context"
	"testing"
)

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(stdcontext.Background(), " req-1 ")
	ctx = WithOrgID(ctx, "42")
	ctx = WithJob(ctx, "reminders")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected request id req-1, got %q", got)
	}
	if got := OrgIDFromContext(ctx); got != "42" {
		t.Fatalf("expected org id 42, got %q", got)
	}
	if got := JobFromContext(ctx); got != "reminders" {
		t.Fatalf("expected job reminders, got %q", got)
	}
	if got := OrgIDFromContext(stdcontext.Background()); got != "" {
		t.Fatalf("expected empty org id, got %q", got)
	}
}
