package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Driver texts for a unique violation once the typed error has been
// flattened by a wrapper.
var duplicateKeyMessages = []string{
	"duplicate key value violates unique constraint", // postgres
	"Error 1062",               // mysql
	"UNIQUE constraint failed", // sqlite
}

var mysqlKeyName = regexp.MustCompile(`for key '(?:[^'.]+\.)?([^']+)'`)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	msg := err.Error()
	for _, needle := range duplicateKeyMessages {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// DuplicateKeyConstraint names the unique index a duplicate-key error hit,
// or returns "" when the driver does not say (sqlite reports columns only).
func DuplicateKeyConstraint(err error) string {
	if !IsDuplicateKeyErr(err) {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	if m := mysqlKeyName.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}
	return ""
}
