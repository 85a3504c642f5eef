package repository

import (
	"context"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) accountdomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByOrgID(ctx context.Context, orgID snowflake.ID) (*accountdomain.Settings, error) {
	var settings accountdomain.Settings
	err := r.db.WithContext(ctx).Raw(
		`SELECT org_id, business_name, reply_to_email, indirect_enabled, indirect_mode,
		        indirect_amount, indirect_percent, reminders_enabled, reminder_days_before,
		        reminder_days_after, created_at, updated_at
		 FROM account_settings
		 WHERE org_id = ?`,
		orgID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.OrgID == 0 {
		return nil, nil
	}
	settings.Stored = true
	return &settings, nil
}

func (r *repository) Upsert(ctx context.Context, settings *accountdomain.Settings) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO account_settings (
			org_id, business_name, reply_to_email, indirect_enabled, indirect_mode,
			indirect_amount, indirect_percent, reminders_enabled, reminder_days_before,
			reminder_days_after, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id) DO UPDATE SET
			business_name = excluded.business_name,
			reply_to_email = excluded.reply_to_email,
			indirect_enabled = excluded.indirect_enabled,
			indirect_mode = excluded.indirect_mode,
			indirect_amount = excluded.indirect_amount,
			indirect_percent = excluded.indirect_percent,
			reminders_enabled = excluded.reminders_enabled,
			reminder_days_before = excluded.reminder_days_before,
			reminder_days_after = excluded.reminder_days_after,
			updated_at = excluded.updated_at`,
		settings.OrgID,
		settings.BusinessName,
		settings.ReplyToEmail,
		settings.IndirectEnabled,
		settings.IndirectMode,
		settings.IndirectAmount,
		settings.IndirectPercent,
		settings.RemindersEnabled,
		settings.ReminderDaysBefore,
		settings.ReminderDaysAfter,
		settings.CreatedAt,
		settings.UpdatedAt,
	).Error
}
