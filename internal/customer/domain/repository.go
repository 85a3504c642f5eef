package domain

import (
	"context"

	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	BulkInsert(ctx context.Context, db *gorm.DB, customers []*Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	ListAll(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*Customer, error)
}
