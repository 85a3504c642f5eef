package migration

import (
	"github.com/burton0621/barix-site-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		return Apply(conn, cfg.DBType, log.Named("migration"))
	}),
)
