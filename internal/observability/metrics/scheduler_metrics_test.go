package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	reasons := map[string]error{
		SchedulerJobReasonDeadlineExceeded:     fmt.Errorf("reminders: %w", context.DeadlineExceeded),
		SchedulerJobReasonLockHeld:             fmt.Errorf("reminders: %w", ErrLockHeld),
		SchedulerJobReasonDBLockTimeout:        &pgconn.PgError{Code: pgerrcode.LockNotAvailable},
		SchedulerJobReasonSerializationFailure: &pgconn.PgError{Code: pgerrcode.SerializationFailure},
		SchedulerJobReasonUniqueViolation:      fmt.Errorf("insert reminder log: %w", gorm.ErrDuplicatedKey),
		SchedulerJobReasonUnknown:              errors.New("smtp: 421 try later"),
	}
	for want, err := range reasons {
		if got := ClassifySchedulerJobReason(err); got != want {
			t.Errorf("%v: expected reason %q, got %q", err, want, got)
		}
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "barix",
		Environment: "test",
	})

	metrics.AddBatchProcessed("reminders", "invoices", 3)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("reminders", "invoices"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestIncReminderOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewSchedulerMetricsForTest(registry)

	metrics.IncReminderOutcome(ReminderOutcomeSent)
	metrics.IncReminderOutcome(ReminderOutcomeSent)
	metrics.IncReminderOutcome(ReminderOutcomeAlreadyLogged)

	if got := testutil.ToFloat64(metrics.reminderOutcomes.WithLabelValues(ReminderOutcomeSent)); got != 2 {
		t.Fatalf("expected 2 sent outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.reminderOutcomes.WithLabelValues(ReminderOutcomeAlreadyLogged)); got != 1 {
		t.Fatalf("expected 1 already_logged outcome, got %v", got)
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	if got := ClassifySchedulerErrorType(gorm.ErrRecordNotFound); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("expected business_rule, got %q", got)
	}
	if got := ClassifySchedulerErrorType(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}); got != SchedulerErrorTypeDB {
		t.Fatalf("expected db, got %q", got)
	}
	if !IsSchedulerErrorRetryable(context.Canceled) {
		t.Fatalf("expected canceled to be retryable")
	}
}
