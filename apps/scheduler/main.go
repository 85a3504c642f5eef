package main

import (
	"github.com/burton0621/barix-site-sub000/internal/account"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	customerrepository "github.com/burton0621/barix-site-sub000/internal/customer/repository"
	documentrepository "github.com/burton0621/barix-site-sub000/internal/document/repository"
	"github.com/burton0621/barix-site-sub000/internal/observability"
	"github.com/burton0621/barix-site-sub000/internal/providers/email"
	"github.com/burton0621/barix-site-sub000/internal/ratelimit"
	"github.com/burton0621/barix-site-sub000/internal/reminder"
	"github.com/burton0621/barix-site-sub000/internal/scheduler"
	"github.com/burton0621/barix-site-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(provideSnowflake),
		db.Module,
		clock.Module,

		// Dependencies of the reminder sender
		email.Module,
		ratelimit.Module,
		account.Module,
		fx.Provide(customerrepository.Provide),
		fx.Provide(documentrepository.Provide),
		reminder.Module,

		// Running this app is the opt-in, so SCHEDULER_ENABLED is not consulted.
		scheduler.Components,
		fx.Invoke(scheduler.Attach),
	)
	app.Run()
}

func provideSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return cfg.SnowflakeNode(3)
}
