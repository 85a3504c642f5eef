package main

import (
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	"github.com/burton0621/barix-site-sub000/internal/observability"
	"github.com/burton0621/barix-site-sub000/internal/server"
	"github.com/burton0621/barix-site-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// The API app serves HTTP only. Reminders arrive through POST /cron/reminders
// or the separate scheduler app.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(provideSnowflake),
		db.Module,
		clock.Module,

		server.Module,
	)
	app.Run()
}

func provideSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return cfg.SnowflakeNode(2)
}
