package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pg_unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: true},
		{name: "pg_other", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, want: false},
		{name: "mysql", err: errors.New("Error 1062 (23000): Duplicate entry"), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: reminder_logs.invoice_id"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicateKeyErr(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDialectRejectsUnknownType(t *testing.T) {
	if _, err := Dialect(Config{Type: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := Dialect(Config{Type: "postgres", Host: "localhost"}); err != nil {
		t.Fatalf("expected postgres dialect, got %v", err)
	}
}

func TestDuplicateKeyConstraint(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "ux_documents_org_number"}
	if got := DuplicateKeyConstraint(fmt.Errorf("insert: %w", pgErr)); got != "ux_documents_org_number" {
		t.Fatalf("expected postgres constraint name, got %q", got)
	}

	mysqlErr := errors.New("Error 1062 (23000): Duplicate entry '7-INV-0001' for key 'documents.ux_documents_org_number'")
	if got := DuplicateKeyConstraint(mysqlErr); got != "ux_documents_org_number" {
		t.Fatalf("expected mysql key name, got %q", got)
	}

	if got := DuplicateKeyConstraint(errors.New("UNIQUE constraint failed: documents.org_id, documents.number")); got != "" {
		t.Fatalf("expected no name for sqlite, got %q", got)
	}
	if got := DuplicateKeyConstraint(errors.New("connection refused")); got != "" {
		t.Fatalf("expected no name for other errors, got %q", got)
	}
}
