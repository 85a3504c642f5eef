package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByOrgID(ctx context.Context, orgID snowflake.ID) (*Settings, error)
	Upsert(ctx context.Context, settings *Settings) error
}
