package repository

import (
	"context"

	"github.com/burton0621/barix-site-sub000/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a filter-by-example gorm store. Zero-valued fields of the
// query struct are ignored, so callers must set every column they scope by
// (org_id included).
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil without error when nothing matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Count(ctx context.Context, query *T) (int64, error)
	Exists(ctx context.Context, query *T) (bool, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
}
