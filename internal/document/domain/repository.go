package domain

import (
	"context"
	"time"

	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	Update(ctx context.Context, db *gorm.DB, doc *Document) error
	ReplaceItems(ctx context.Context, db *gorm.DB, doc *Document, items []DocumentItem) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Document, error)
	// FindForUpdate locks the row where the database supports it.
	FindForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Document, error)
	FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*Document, error)
	ListItems(ctx context.Context, db *gorm.DB, orgID, documentID snowflake.ID) ([]DocumentItem, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListDocumentFilter, page pagination.Pagination) ([]*Document, error)
	NextSequence(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind Kind, period string) (int64, error)
	MarkReminded(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
