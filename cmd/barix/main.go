package main

import (
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	"github.com/burton0621/barix-site-sub000/internal/migration"
	"github.com/burton0621/barix-site-sub000/internal/observability"
	"github.com/burton0621/barix-site-sub000/internal/scheduler"
	"github.com/burton0621/barix-site-sub000/internal/server"
	"github.com/burton0621/barix-site-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// The monolith serves the HTTP API and, when SCHEDULER_ENABLED is set, runs
// the reminder loop in-process.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(provideSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func provideSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return cfg.SnowflakeNode(1)
}
