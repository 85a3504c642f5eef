package scheduler

import (
	"context"

	"github.com/burton0621/barix-site-sub000/internal/config"
	reminderservice "github.com/burton0621/barix-site-sub000/internal/reminder/service"
	"go.uber.org/fx"
)

// Module wires the scheduler into a process that also serves HTTP. The loop
// only starts when SCHEDULER_ENABLED is set; deployments that drive
// reminders through POST /cron/reminders leave it off.
var Module = fx.Module("scheduler",
	Components,
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
		if cfg.Scheduler.Enabled {
			Attach(lc, sched)
		}
	}),
)

// Components provides the scheduler without starting it.
var Components = fx.Options(
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideReminderRunner),
	fx.Provide(New),
)

func ProvideReminderRunner(d *reminderservice.Dispatcher) ReminderRunner {
	return d
}

// Attach runs the loop for the lifetime of the fx app. Stop waits for the
// tick in progress to return.
func Attach(lc fx.Lifecycle, sched *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				sched.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
