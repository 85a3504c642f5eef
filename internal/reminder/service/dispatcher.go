package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	"github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	"github.com/burton0621/barix-site-sub000/internal/ratelimit"
	"github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultLockTTL     = 10 * time.Minute
	dispatchLockPrefix = "reminders:dispatch:"
)

// RunLock serializes dispatch runs across processes. The reminder log's
// unique index still guards every send when no lock is configured.
type RunLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) error
	Release(ctx context.Context, key, token string) error
}

type DispatcherParams struct {
	fx.In

	Log              *zap.Logger
	Config           config.Config
	Billing          *config.BillingConfigHolder
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             domain.Repository
	Sender           domain.Sender
	Lock             RunLock                   `optional:"true"`
	Metrics          *metrics.Metrics          `optional:"true"`
	SchedulerMetrics *metrics.SchedulerMetrics `optional:"true"`
}

type Dispatcher struct {
	log              *zap.Logger
	billing          *config.BillingConfigHolder
	genID            *snowflake.Node
	clock            clock.Clock
	repo             domain.Repository
	sender           domain.Sender
	lock             RunLock
	lockTTL          time.Duration
	sendTimeout      time.Duration
	metrics          *metrics.Metrics
	schedulerMetrics *metrics.SchedulerMetrics
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	sendTimeout := p.Config.Reminder.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	lockTTL := p.Config.RateLimit.DispatchLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Dispatcher{
		log:              p.Log.Named("reminder.dispatcher"),
		billing:          p.Billing,
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		sender:           p.Sender,
		lock:             p.Lock,
		lockTTL:          lockTTL,
		sendTimeout:      sendTimeout,
		metrics:          p.Metrics,
		schedulerMetrics: p.SchedulerMetrics,
	}
}

// Run sweeps every candidate invoice once for today. Only loading configs or
// candidates fails the run; per-invoice failures land in the report.
func (d *Dispatcher) Run(ctx context.Context, today calendar.Date) (domain.Report, error) {
	release, err := d.acquire(ctx, today)
	if err != nil {
		return domain.Report{}, err
	}
	defer release()

	d.log.Info("reminder.dispatch.start", zap.String("today", today.String()))

	accounts, err := d.repo.ListReminderConfigs(ctx)
	if err != nil {
		d.log.Error("reminder.dispatch.configs_failed", zap.Error(err))
		return domain.Report{}, err
	}

	fallback := d.defaultConfig()
	byOrg := make(map[snowflake.ID]domain.ReminderConfig, len(accounts))
	cfgs := make([]domain.ReminderConfig, 0, len(accounts)+1)
	for _, account := range accounts {
		byOrg[account.OrgID] = account.Config
		cfgs = append(cfgs, account.Config)
	}
	cfgs = append(cfgs, fallback)

	from, to := domain.Window(today, cfgs...)
	candidates, err := d.repo.ListCandidates(ctx, from, to)
	if err != nil {
		d.log.Error("reminder.dispatch.candidates_failed", zap.Error(err))
		return domain.Report{}, err
	}

	report := domain.Report{
		OK:        true,
		Today:     today.String(),
		DueWindow: domain.DueWindow{From: from.String(), To: to.String()},
		Results:   make([]domain.Result, 0, len(candidates)),
	}

	for _, candidate := range candidates {
		cfg, ok := byOrg[candidate.OrgID]
		if !ok {
			cfg = fallback
		}
		result := d.dispatchOne(ctx, today, candidate, cfg)
		if result.ReminderType != "" && result.Skipped == "" {
			report.Attempted++
		}
		if result.Sent {
			report.Sent++
		}
		report.Results = append(report.Results, result)
	}

	d.schedulerMetrics.AddBatchProcessed("reminders", "invoices", len(candidates))
	d.log.Info("reminder.dispatch.finished",
		zap.String("today", report.Today),
		zap.String("window_from", report.DueWindow.From),
		zap.String("window_to", report.DueWindow.To),
		zap.Int("candidates", len(candidates)),
		zap.Int("attempted", report.Attempted),
		zap.Int("sent", report.Sent),
	)
	return report, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, today calendar.Date, candidate domain.Candidate, cfg domain.ReminderConfig) domain.Result {
	result := domain.Result{
		InvoiceID: candidate.InvoiceID.String(),
		OwnerID:   candidate.OrgID.String(),
		OK:        true,
	}

	cfg = cfg.Normalize()
	if !cfg.Enabled {
		result.Skipped = domain.SkipRemindersDisabled
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeDisabled)
		return result
	}
	reminderType, eligible := domain.Evaluate(today, candidate.DueDate, cfg).ReminderType()
	if !eligible {
		result.Skipped = domain.SkipNotDue
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeNotDue)
		return result
	}
	result.ReminderType = reminderType

	logFields := []zap.Field{
		zap.String("invoice_id", result.InvoiceID),
		zap.String("org_id", result.OwnerID),
		zap.String("reminder_type", string(reminderType)),
	}

	exists, err := d.repo.LogExists(ctx, candidate.InvoiceID, reminderType)
	if err != nil {
		// The insert below is authoritative, so a failed pre-check is not fatal.
		d.log.Warn("reminder.log_check_failed", append(logFields, zap.Error(err))...)
	} else if exists {
		result.Skipped = domain.SkipAlreadyLogged
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeAlreadyLogged)
		return result
	}

	days := cfg.DaysBeforeDue
	if reminderType == domain.ReminderTypeAfterDue {
		days = cfg.DaysAfterDue
	}
	if err := d.send(ctx, domain.SendRequest{
		InvoiceID:    candidate.InvoiceID,
		OrgID:        candidate.OrgID,
		ReminderType: reminderType,
		DueDate:      candidate.DueDate,
		Days:         days,
	}); err != nil {
		result.OK = false
		result.Error = err.Error()
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeFailed)
		d.log.Warn("reminder.send_failed", append(logFields, zap.Error(err))...)
		return result
	}
	result.Sent = true
	d.metrics.RecordReminderSent(ctx, string(reminderType))

	inserted, err := d.repo.InsertLog(ctx, domain.ReminderLog{
		ID:           d.genID.Generate(),
		InvoiceID:    candidate.InvoiceID,
		ReminderType: reminderType,
		SentAt:       d.clock.Now(),
	})
	switch {
	case err != nil:
		result.Warning = domain.WarningSentNotLogged
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeSentNotLogged)
		d.log.Error("reminder.sent_not_logged", append(logFields, zap.Error(err))...)
	case !inserted:
		result.Warning = domain.WarningConcurrentSendDetected
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeConcurrentSend)
		d.log.Warn("reminder.concurrent_send_detected", logFields...)
	default:
		d.schedulerMetrics.IncReminderOutcome(metrics.ReminderOutcomeSent)
		d.log.Info("reminder.sent", logFields...)
	}
	return result
}

func (d *Dispatcher) send(ctx context.Context, req domain.SendRequest) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.sender.Send(sendCtx, req)
}

func (d *Dispatcher) defaultConfig() domain.ReminderConfig {
	if d.billing == nil {
		return domain.ReminderConfig{}
	}
	defaults := d.billing.Get().Reminders
	return domain.ReminderConfig{
		Enabled:       defaults.Enabled,
		DaysBeforeDue: defaults.DaysBeforeDue,
		DaysAfterDue:  defaults.DaysAfterDue,
	}.Normalize()
}

// acquire takes the per-day run lock. A lock backend error only logs: the
// reminder log still prevents double sends.
func (d *Dispatcher) acquire(ctx context.Context, today calendar.Date) (func(), error) {
	noop := func() {}
	if d.lock == nil {
		return noop, nil
	}
	key := dispatchLockPrefix + today.String()
	token, ok, err := d.lock.TryLock(ctx, key, d.lockTTL)
	if err != nil {
		d.log.Warn("reminder.dispatch.lock_unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if !ok {
		d.log.Info("reminder.dispatch.lock_held", zap.String("key", key))
		return noop, fmt.Errorf("%w: %w", domain.ErrDispatchInProgress, metrics.ErrLockHeld)
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go d.keepAlive(ctx, key, token, stop, done)

	return func() {
		close(stop)
		<-done
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := d.lock.Release(releaseCtx, key, token); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Warn("reminder.dispatch.lock_release_failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// keepAlive extends the lease at a third of its TTL so long sweeps keep it.
// Losing the lease is logged but does not stop the sweep; the reminder log
// index still prevents duplicate sends.
func (d *Dispatcher) keepAlive(ctx context.Context, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.lock.Extend(ctx, key, token, d.lockTTL); err != nil {
				d.log.Warn("reminder.dispatch.lock_extend_failed", zap.String("key", key), zap.Error(err))
				if errors.Is(err, ratelimit.ErrLockLost) {
					return
				}
			}
		}
	}
}
