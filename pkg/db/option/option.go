package option

import (
	"fmt"
	"strings"

	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type optionFunc func(db *gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single WHERE condition. Unknown operators and field
// names that are not plain identifiers are ignored.
func ApplyOperator(cond Condition) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if !isIdentifier(field) {
			return db
		}
		switch cond.Operator {
		case EQ, NEQ, GT, GTE, LT, LTE:
			return db.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
		case IN:
			return db.Where(fmt.Sprintf("%s IN ?", field), cond.Value)
		default:
			return db
		}
	})
}

type QuerySortBy struct {
	Field     string
	Direction string
	Allow     map[string]bool
}

func WithQuerySortBy(field, direction string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{Field: field, Direction: direction, Allow: allow}
}

// WithSortBy orders by an allow-listed column, defaulting to id desc.
func WithSortBy(sort QuerySortBy) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] || !isIdentifier(field) {
			return db.Order("id DESC")
		}
		direction := "DESC"
		if strings.EqualFold(strings.TrimSpace(sort.Direction), "asc") {
			direction = "ASC"
		}
		return db.Order(fmt.Sprintf("%s %s", field, direction)).Order("id " + direction)
	})
}

// ApplyPagination applies a keyset cursor on id and fetches one extra row so
// callers can detect a following page.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if token := strings.TrimSpace(p.PageToken); token != "" {
			// Callers validate tokens up front; a bad one here reads from the top.
			if cursor, err := pagination.DecodeCursor(token); err == nil {
				db = db.Where("id < ?", cursor.ID)
			}
		}
		return db.Limit(p.Limit() + 1)
	})
}

func WithLimit(limit int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func isIdentifier(field string) bool {
	if field == "" {
		return false
	}
	for i, r := range field {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
