package repository

import (
	"context"
	"errors"

	"github.com/burton0621/barix-site-sub000/pkg/db/option"
	"gorm.io/gorm"
)

const batchSize = 200

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var out []*T
	if err := s.scoped(ctx, query, opts).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var out T
	err := s.scoped(ctx, query, opts).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(new(T)).Where(query).Count(&n).Error
	return n, err
}

// Exists stops at the first match instead of counting the whole set.
func (s *store[T]) Exists(ctx context.Context, query *T) (bool, error) {
	var found int
	err := s.db.WithContext(ctx).Model(new(T)).Select("1").Where(query).Limit(1).Scan(&found).Error
	if err != nil {
		return false, err
	}
	return found == 1, nil
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *store[T]) BatchCreate(ctx context.Context, resources []*T) error {
	if len(resources) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(resources, batchSize).Error
}

func (s *store[T]) scoped(ctx context.Context, query *T, opts []option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Model(new(T)).Where(query)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
