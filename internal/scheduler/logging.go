package scheduler

import (
	"context"
	"time"

	obscontext "github.com/burton0621/barix-site-sub000/internal/observability/context"
	obslogger "github.com/burton0621/barix-site-sub000/internal/observability/logger"
	obsmetrics "github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"go.uber.org/zap"
)

// jobRun is the tally for one scheduler tick, carried on the context so a job
// invoked through runJob reuses the run opened there.
type jobRun struct {
	runID     string
	startedAt time.Time
	day       calendar.Date

	candidates int
	sent       int
	skipped    int
	failed     int
	warnings   int
}

type jobRunKey struct{}

// record folds a dispatch report into the tally.
func (r *jobRun) record(report reminderdomain.Report) {
	if r == nil {
		return
	}
	r.candidates += len(report.Results)
	for _, result := range report.Results {
		switch {
		case !result.OK:
			r.failed++
		case result.Sent:
			r.sent++
			if result.Warning != "" {
				r.warnings++
			}
		case result.Skipped != "":
			r.skipped++
		}
	}
}

func (r *jobRun) fail() {
	if r != nil {
		r.failed++
	}
}

func (s *Scheduler) ensureJobRun(ctx context.Context, job string) (context.Context, *jobRun, bool) {
	if existing, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return ctx, existing, false
	}
	run := &jobRun{
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	return obscontext.WithJob(ctx, job), run, true
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Info("scheduler.job.start", zap.String("run_id", run.runID))
}

// logJobFinish reports the tally. Ticks that found the day already swept
// log at debug, since they make up most ticks.
func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
	}
	log := s.logger(ctx)
	if run.day.IsZero() {
		log.Debug("scheduler.job.finish", fields...)
		return
	}

	fields = append(fields,
		zap.String("day", run.day.String()),
		zap.Int("candidates", run.candidates),
		zap.Int("sent", run.sent),
		zap.Int("skipped", run.skipped),
		zap.Int("failed", run.failed),
		zap.Int("warnings", run.warnings),
	)
	if run.failed > 0 || run.warnings > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, err error, fields ...zap.Field) {
	run.fail()
	fields = append([]zap.Field{
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	}, fields...)
	s.logger(ctx).Error(msg, fields...)
}
