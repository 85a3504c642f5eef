package domain

import (
	"time"

	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Settings is the per-account billing configuration. An account without a
// stored row runs on the configured defaults.
type Settings struct {
	OrgID              snowflake.ID    `gorm:"primaryKey;column:org_id"`
	BusinessName       string          `gorm:"type:text;not null;default:''"`
	ReplyToEmail       string          `gorm:"type:text;not null;default:''"`
	IndirectEnabled    bool            `gorm:"column:indirect_enabled;not null;default:false"`
	IndirectMode       string          `gorm:"column:indirect_mode;type:text;not null;default:'percent'"`
	IndirectAmount     decimal.Decimal `gorm:"column:indirect_amount;type:numeric(12,2);not null;default:0"`
	IndirectPercent    decimal.Decimal `gorm:"column:indirect_percent;type:numeric(6,2);not null;default:0"`
	RemindersEnabled   bool            `gorm:"column:reminders_enabled;not null;default:true"`
	ReminderDaysBefore int             `gorm:"column:reminder_days_before;not null;default:3"`
	ReminderDaysAfter  int             `gorm:"column:reminder_days_after;not null;default:3"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`

	// Stored is false when the value was synthesized from defaults.
	Stored bool `gorm:"-"`
}

func (Settings) TableName() string { return "account_settings" }

func (s Settings) IndirectMaterials() totals.IndirectMaterialsConfig {
	return totals.IndirectMaterialsConfig{
		Enabled: s.IndirectEnabled,
		Mode:    totals.NormalizeMode(s.IndirectMode),
		Amount:  s.IndirectAmount,
		Percent: s.IndirectPercent,
	}
}

func (s Settings) ReminderConfig() reminderdomain.ReminderConfig {
	return reminderdomain.ReminderConfig{
		Enabled:       s.RemindersEnabled,
		DaysBeforeDue: s.ReminderDaysBefore,
		DaysAfterDue:  s.ReminderDaysAfter,
	}.Normalize()
}
