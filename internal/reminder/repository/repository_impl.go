package repository

import (
	"context"

	"github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	store "github.com/burton0621/barix-site-sub000/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db   *gorm.DB
	logs store.Repository[domain.ReminderLog]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{
		db:   db,
		logs: store.ProvideStore[domain.ReminderLog](db),
	}
}

type reminderConfigRow struct {
	OrgID              snowflake.ID
	RemindersEnabled   bool
	ReminderDaysBefore int
	ReminderDaysAfter  int
}

func (r *repository) ListReminderConfigs(ctx context.Context) ([]domain.AccountReminderConfig, error) {
	var rows []reminderConfigRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT org_id, reminders_enabled, reminder_days_before, reminder_days_after
		 FROM account_settings
		 ORDER BY org_id ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	configs := make([]domain.AccountReminderConfig, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, domain.AccountReminderConfig{
			OrgID: row.OrgID,
			Config: domain.ReminderConfig{
				Enabled:       row.RemindersEnabled,
				DaysBeforeDue: row.ReminderDaysBefore,
				DaysAfterDue:  row.ReminderDaysAfter,
			}.Normalize(),
		})
	}
	return configs, nil
}

// ListCandidates returns unpaid, sent invoices due within [from, to].
func (r *repository) ListCandidates(ctx context.Context, from, to calendar.Date) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	err := r.db.WithContext(ctx).Raw(
		`SELECT id AS invoice_id, org_id, due_date
		 FROM documents
		 WHERE kind = 'invoice'
		   AND status = 'sent'
		   AND paid_at IS NULL
		   AND due_date IS NOT NULL
		   AND due_date BETWEEN ? AND ?
		 ORDER BY due_date ASC, id ASC`,
		from,
		to,
	).Scan(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *repository) LogExists(ctx context.Context, invoiceID snowflake.ID, reminderType domain.ReminderType) (bool, error) {
	return r.logs.Exists(ctx, &domain.ReminderLog{
		InvoiceID:    invoiceID,
		ReminderType: reminderType,
	})
}

// InsertLog relies on the (invoice_id, reminder_type) unique index. A
// conflicting row leaves RowsAffected at zero.
func (r *repository) InsertLog(ctx context.Context, log domain.ReminderLog) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "reminder_type"}},
			DoNothing: true,
		}).
		Create(&log)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
