package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	documentrepo "github.com/burton0621/barix-site-sub000/internal/document/repository"
	"github.com/burton0621/barix-site-sub000/internal/ratelimit"
	"github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/internal/reminder/repository"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errSendFailed = errors.New("provider unavailable")

type fakeSender struct {
	mu       sync.Mutex
	requests []domain.SendRequest
	failFor  map[snowflake.ID]error
	block    bool
}

func (f *fakeSender) Send(ctx context.Context, req domain.SendRequest) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[req.InvoiceID]; err != nil {
		return err
	}
	f.requests = append(f.requests, req)
	return nil
}

// repoOverride lets a test replace single repository calls.
type repoOverride struct {
	domain.Repository
	listConfigs func(ctx context.Context) ([]domain.AccountReminderConfig, error)
	logExists   func(ctx context.Context, invoiceID snowflake.ID, reminderType domain.ReminderType) (bool, error)
	insertLog   func(ctx context.Context, log domain.ReminderLog) (bool, error)
}

func (r *repoOverride) ListReminderConfigs(ctx context.Context) ([]domain.AccountReminderConfig, error) {
	if r.listConfigs != nil {
		return r.listConfigs(ctx)
	}
	return r.Repository.ListReminderConfigs(ctx)
}

func (r *repoOverride) LogExists(ctx context.Context, invoiceID snowflake.ID, reminderType domain.ReminderType) (bool, error) {
	if r.logExists != nil {
		return r.logExists(ctx, invoiceID, reminderType)
	}
	return r.Repository.LogExists(ctx, invoiceID, reminderType)
}

func (r *repoOverride) InsertLog(ctx context.Context, log domain.ReminderLog) (bool, error) {
	if r.insertLog != nil {
		return r.insertLog(ctx, log)
	}
	return r.Repository.InsertLog(ctx, log)
}

type fakeLock struct {
	held     bool
	err      error
	acquired []string
	released []string
}

func (l *fakeLock) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.acquired = append(l.acquired, key)
	return "token", true, nil
}

func (l *fakeLock) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	return nil
}

func (l *fakeLock) Release(ctx context.Context, key, token string) error {
	l.released = append(l.released, key)
	return nil
}

type dispatchFixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	repo   domain.Repository
	sender *fakeSender
	clock  *clock.FakeClock
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&accountdomain.Settings{}, &documentdomain.Document{}, &domain.ReminderLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return &dispatchFixture{
		db:     db,
		node:   node,
		repo:   repository.NewRepository(db),
		sender: &fakeSender{failFor: map[snowflake.ID]error{}},
		clock:  clock.NewFakeClock(time.Date(2024, time.June, 7, 13, 0, 0, 0, time.UTC)),
	}
}

func (f *dispatchFixture) dispatcher(repo domain.Repository, lock RunLock, sendTimeout time.Duration) *Dispatcher {
	var cfg config.Config
	cfg.Reminder.SendTimeout = sendTimeout
	p := DispatcherParams{
		Log:    zap.NewNop(),
		Config: cfg,
		Billing: config.NewStaticBillingConfigHolder(config.BillingConfig{
			TaxRate:   decimal.RequireFromString("0.06"),
			Reminders: config.ReminderDefaults{Enabled: true, DaysBeforeDue: 3, DaysAfterDue: 3},
		}),
		GenID:  f.node,
		Clock:  f.clock,
		Repo:   repo,
		Sender: f.sender,
	}
	if lock != nil {
		p.Lock = lock
	}
	return NewDispatcher(p)
}

func (f *dispatchFixture) invoice(t *testing.T, orgID snowflake.ID, due string, mutate func(doc *documentdomain.Document)) snowflake.ID {
	t.Helper()
	dueDate := calendar.MustParseDate(due)
	now := f.clock.Now()
	doc := documentdomain.Document{
		ID:          f.node.Generate(),
		OrgID:       orgID,
		CustomerID:  f.node.Generate(),
		Kind:        documentdomain.KindInvoice,
		Status:      documentdomain.StatusSent,
		Number:      "INV-" + uuid.NewString()[:8],
		PublicToken: uuid.NewString(),
		IssueDate:   calendar.MustParseDate("2024-06-01"),
		DueDate:     &dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mutate != nil {
		mutate(&doc)
	}
	require.NoError(t, documentrepo.Provide().Insert(context.Background(), f.db, &doc))
	if doc.PaidAt != nil {
		require.NoError(t, documentrepo.Provide().Update(context.Background(), f.db, &doc))
	}
	return doc.ID
}

func (f *dispatchFixture) settings(t *testing.T, orgID snowflake.ID, enabled bool, before, after int) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&accountdomain.Settings{
		OrgID:              orgID,
		IndirectMode:       "percent",
		RemindersEnabled:   enabled,
		ReminderDaysBefore: before,
		ReminderDaysAfter:  after,
		CreatedAt:          now,
		UpdatedAt:          now,
	}).Error)
}

func (f *dispatchFixture) logCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&domain.ReminderLog{}).Count(&count).Error)
	return count
}

func resultFor(t *testing.T, report domain.Report, id snowflake.ID) domain.Result {
	t.Helper()
	for _, r := range report.Results {
		if r.InvoiceID == id.String() {
			return r
		}
	}
	t.Fatalf("no result for invoice %s", id)
	return domain.Result{}
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	f := newDispatchFixture(t)
	id := f.invoice(t, 100, "2024-06-10", nil)
	d := f.dispatcher(f.repo, nil, 0)
	today := calendar.MustParseDate("2024-06-07")

	first, err := d.Run(context.Background(), today)
	require.NoError(t, err)
	assert.True(t, first.OK)
	assert.Equal(t, "2024-06-07", first.Today)
	assert.Equal(t, domain.DueWindow{From: "2024-06-04", To: "2024-06-10"}, first.DueWindow)
	assert.Equal(t, 1, first.Attempted)
	assert.Equal(t, 1, first.Sent)

	result := resultFor(t, first, id)
	assert.True(t, result.OK)
	assert.True(t, result.Sent)
	assert.Equal(t, domain.ReminderTypeBeforeDue, result.ReminderType)
	assert.Equal(t, "100", result.OwnerID)
	require.Len(t, f.sender.requests, 1)
	assert.Equal(t, 3, f.sender.requests[0].Days)

	second, err := d.Run(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Attempted)
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, domain.SkipAlreadyLogged, resultFor(t, second, id).Skipped)

	assert.Len(t, f.sender.requests, 1)
	assert.Equal(t, int64(1), f.logCount(t))
}

func TestRunAppliesAccountConfigs(t *testing.T) {
	f := newDispatchFixture(t)
	f.settings(t, 200, false, 3, 3)
	f.settings(t, 300, true, 7, 1)

	disabled := f.invoice(t, 200, "2024-06-10", nil)
	wide := f.invoice(t, 300, "2024-06-14", nil)
	overdue := f.invoice(t, 300, "2024-06-06", nil)
	notDue := f.invoice(t, 100, "2024-06-09", nil)

	report, err := f.dispatcher(f.repo, nil, 0).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.NoError(t, err)

	assert.Equal(t, domain.DueWindow{From: "2024-06-04", To: "2024-06-14"}, report.DueWindow)
	assert.Equal(t, domain.SkipRemindersDisabled, resultFor(t, report, disabled).Skipped)
	assert.Equal(t, domain.SkipNotDue, resultFor(t, report, notDue).Skipped)

	wideResult := resultFor(t, report, wide)
	assert.True(t, wideResult.Sent)
	assert.Equal(t, domain.ReminderTypeBeforeDue, wideResult.ReminderType)

	overdueResult := resultFor(t, report, overdue)
	assert.True(t, overdueResult.Sent)
	assert.Equal(t, domain.ReminderTypeAfterDue, overdueResult.ReminderType)

	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 2, report.Attempted)
}

func TestRunIgnoresIneligibleDocuments(t *testing.T) {
	f := newDispatchFixture(t)
	paidAt := f.clock.Now()
	f.invoice(t, 100, "2024-06-10", func(doc *documentdomain.Document) { doc.Status = documentdomain.StatusDraft })
	f.invoice(t, 100, "2024-06-10", func(doc *documentdomain.Document) { doc.Kind = documentdomain.KindEstimate })
	f.invoice(t, 100, "2024-06-10", func(doc *documentdomain.Document) { doc.PaidAt = &paidAt })
	f.invoice(t, 100, "2024-06-30", nil)

	report, err := f.dispatcher(f.repo, nil, 0).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Empty(t, f.sender.requests)
}

func TestRunContinuesAfterSendFailure(t *testing.T) {
	f := newDispatchFixture(t)
	failing := f.invoice(t, 100, "2024-06-10", nil)
	ok := f.invoice(t, 100, "2024-06-04", nil)
	f.sender.failFor[failing] = errSendFailed

	report, err := f.dispatcher(f.repo, nil, 0).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Sent)

	failed := resultFor(t, report, failing)
	assert.False(t, failed.OK)
	assert.False(t, failed.Sent)
	assert.Equal(t, errSendFailed.Error(), failed.Error)

	assert.True(t, resultFor(t, report, ok).Sent)
	assert.Equal(t, int64(1), f.logCount(t))
}

func TestRunBoundsEachSend(t *testing.T) {
	f := newDispatchFixture(t)
	id := f.invoice(t, 100, "2024-06-10", nil)
	f.sender.block = true

	report, err := f.dispatcher(f.repo, nil, 20*time.Millisecond).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.NoError(t, err)
	result := resultFor(t, report, id)
	assert.False(t, result.OK)
	assert.Equal(t, context.DeadlineExceeded.Error(), result.Error)
	assert.Zero(t, f.logCount(t))
}

func TestRunFlagsConcurrentSend(t *testing.T) {
	f := newDispatchFixture(t)
	id := f.invoice(t, 100, "2024-06-10", nil)
	_, err := f.repo.InsertLog(context.Background(), domain.ReminderLog{
		ID:           f.node.Generate(),
		InvoiceID:    id,
		ReminderType: domain.ReminderTypeBeforeDue,
		SentAt:       f.clock.Now(),
	})
	require.NoError(t, err)

	// Another run logged the row between our pre-check and insert.
	repo := &repoOverride{
		Repository: f.repo,
		logExists: func(context.Context, snowflake.ID, domain.ReminderType) (bool, error) {
			return false, nil
		},
	}
	report, err := f.dispatcher(repo, nil, 0).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.NoError(t, err)

	result := resultFor(t, report, id)
	assert.True(t, result.OK)
	assert.True(t, result.Sent)
	assert.Equal(t, domain.WarningConcurrentSendDetected, result.Warning)
	assert.Equal(t, int64(1), f.logCount(t))
}

func TestRunFlagsSentNotLogged(t *testing.T) {
	f := newDispatchFixture(t)
	id := f.invoice(t, 100, "2024-06-10", nil)
	repo := &repoOverride{
		Repository: f.repo,
		insertLog: func(context.Context, domain.ReminderLog) (bool, error) {
			return false, errors.New("connection reset")
		},
	}

	report, err := f.dispatcher(repo, nil, 0).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.NoError(t, err)

	result := resultFor(t, report, id)
	assert.True(t, result.OK)
	assert.True(t, result.Sent)
	assert.Equal(t, domain.WarningSentNotLogged, result.Warning)
	assert.Equal(t, 1, report.Sent)
}

func TestRunFailsWhenConfigsCannotLoad(t *testing.T) {
	f := newDispatchFixture(t)
	f.invoice(t, 100, "2024-06-10", nil)
	repo := &repoOverride{
		Repository: f.repo,
		listConfigs: func(context.Context) ([]domain.AccountReminderConfig, error) {
			return nil, errors.New("db down")
		},
	}

	_, err := f.dispatcher(repo, nil, 0).Run(context.Background(), calendar.MustParseDate("2024-06-07"))
	require.Error(t, err)
	assert.Empty(t, f.sender.requests)
}

func TestRunHonoursDispatchLock(t *testing.T) {
	f := newDispatchFixture(t)
	f.invoice(t, 100, "2024-06-10", nil)
	today := calendar.MustParseDate("2024-06-07")

	held := &fakeLock{held: true}
	_, err := f.dispatcher(f.repo, held, 0).Run(context.Background(), today)
	assert.ErrorIs(t, err, domain.ErrDispatchInProgress)
	assert.Empty(t, f.sender.requests)

	free := &fakeLock{}
	_, err = f.dispatcher(f.repo, free, 0).Run(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []string{"reminders:dispatch:2024-06-07"}, free.acquired)
	assert.Equal(t, []string{"reminders:dispatch:2024-06-07"}, free.released)

	broken := &fakeLock{err: errors.New("redis down")}
	report, err := f.dispatcher(f.repo, broken, 0).Run(context.Background(), today)
	require.NoError(t, err)
	assert.Len(t, report.Results, 1)
}

type extendingLock struct {
	fakeLock
	extends atomic.Int32
	lost    bool
}

func (l *extendingLock) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	l.extends.Add(1)
	if l.lost {
		return ratelimit.ErrLockLost
	}
	return nil
}

func TestKeepAliveExtendsUntilStopped(t *testing.T) {
	lock := &extendingLock{}
	d := &Dispatcher{log: zap.NewNop(), lock: lock, lockTTL: 15 * time.Millisecond}

	stop := make(chan struct{})
	done := make(chan struct{})
	go d.keepAlive(context.Background(), "reminders:dispatch:2024-06-07", "token", stop, done)

	require.Eventually(t, func() bool { return lock.extends.Load() >= 2 }, time.Second, time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop")
	}
}

func TestKeepAliveStopsWhenLeaseLost(t *testing.T) {
	lock := &extendingLock{lost: true}
	d := &Dispatcher{log: zap.NewNop(), lock: lock, lockTTL: 15 * time.Millisecond}

	done := make(chan struct{})
	go d.keepAlive(context.Background(), "reminders:dispatch:2024-06-07", "token", make(chan struct{}), done)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keep-alive kept running after losing the lease")
	}
	assert.EqualValues(t, 1, lock.extends.Load())
}
