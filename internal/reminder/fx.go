package reminder

import (
	"github.com/burton0621/barix-site-sub000/internal/ratelimit"
	"github.com/burton0621/barix-site-sub000/internal/reminder/repository"
	"github.com/burton0621/barix-site-sub000/internal/reminder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewSender),
	fx.Provide(provideRunLock),
	fx.Provide(service.NewDispatcher),
)

func provideRunLock(locker *ratelimit.Locker) service.RunLock {
	if locker == nil {
		return nil
	}
	return locker
}
