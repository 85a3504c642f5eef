package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/burton0621/barix-site-sub000/internal/clock"
	obsmetrics "github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobReminders = "reminders"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// ReminderRunner runs one reminder sweep for a calendar day.
type ReminderRunner interface {
	Run(ctx context.Context, today calendar.Date) (reminderdomain.Report, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Reminders ReminderRunner
	Metrics   *obsmetrics.SchedulerMetrics `optional:"true"`
	Config    Config                       `optional:"true"`
}

// Scheduler triggers the reminder sweep at most once per local calendar day.
// A failed or timed-out sweep is retried on the next tick.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	reminders ReminderRunner
	metrics   *obsmetrics.SchedulerMetrics

	mu          sync.Mutex
	lastRunDate calendar.Date
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Reminders == nil {
		return nil, ErrInvalidConfig
	}
	schedMetrics := p.Metrics
	if schedMetrics == nil {
		schedMetrics = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		reminders: p.Reminders,
		metrics:   schedMetrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(zap.String("run_id", run.runID))
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.failed == 0 {
			run.fail()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job that is due at the current clock time.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, jobReminders, s.cfg.ReminderTimeout, s.RemindersJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RemindersJob sweeps reminders for today unless today already completed.
// A sweep held by another process leaves the day open: the holder may still
// fail, and a repeat sweep after it finished sends nothing new.
func (s *Scheduler) RemindersJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobReminders)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	today := calendar.DateOf(s.clock.Now(), s.cfg.Location)
	if s.alreadyRan(today) {
		return nil
	}
	run.day = today

	report, err := s.reminders.Run(ctx, today)
	switch {
	case errors.Is(err, reminderdomain.ErrDispatchInProgress):
		s.logger(ctx).Info("scheduler.reminders.skipped",
			zap.String("today", today.String()),
			zap.String("reason", obsmetrics.ClassifySchedulerJobReason(err)),
		)
		s.metrics.IncJobError(jobReminders, err)
		return nil
	case err != nil:
		s.logSchedulerError(ctx, run, "scheduler.reminders.failed", err, zap.String("today", today.String()))
		return err
	}

	run.record(report)
	s.markRan(today)
	s.logger(ctx).Info("scheduler.reminders.completed",
		zap.String("today", report.Today),
		zap.Int("attempted", report.Attempted),
		zap.Int("sent", report.Sent),
	)
	return nil
}

func (s *Scheduler) alreadyRan(today calendar.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastRunDate.IsZero() && !today.After(s.lastRunDate)
}

func (s *Scheduler) markRan(today calendar.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRunDate = today
}
