package domain

import (
	"context"
	"errors"
	"time"

	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/bwmarrin/snowflake"
)

type ReminderType string

const (
	ReminderTypeBeforeDue ReminderType = "before_due"
	ReminderTypeAfterDue  ReminderType = "after_due"
)

func (t ReminderType) Valid() bool {
	return t == ReminderTypeBeforeDue || t == ReminderTypeAfterDue
}

// Eligibility is the evaluator outcome for one invoice on one day.
type Eligibility string

const (
	EligibilityNone      Eligibility = "none"
	EligibilityBeforeDue Eligibility = "before_due"
	EligibilityAfterDue  Eligibility = "after_due"
)

// ReminderType maps an eligible outcome to its log type. ok is false for none.
func (e Eligibility) ReminderType() (ReminderType, bool) {
	switch e {
	case EligibilityBeforeDue:
		return ReminderTypeBeforeDue, true
	case EligibilityAfterDue:
		return ReminderTypeAfterDue, true
	default:
		return "", false
	}
}

type ReminderConfig struct {
	Enabled       bool `json:"enabled"`
	DaysBeforeDue int  `json:"days_before_due"`
	DaysAfterDue  int  `json:"days_after_due"`
}

// Normalize clamps negative windows to zero.
func (c ReminderConfig) Normalize() ReminderConfig {
	if c.DaysBeforeDue < 0 {
		c.DaysBeforeDue = 0
	}
	if c.DaysAfterDue < 0 {
		c.DaysAfterDue = 0
	}
	return c
}

// AccountReminderConfig is one account's stored reminder settings.
type AccountReminderConfig struct {
	OrgID  snowflake.ID
	Config ReminderConfig
}

// Candidate is an unpaid, sent invoice whose due date falls in the sweep window.
type Candidate struct {
	InvoiceID snowflake.ID
	OrgID     snowflake.ID
	DueDate   calendar.Date
}

type ReminderLog struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	InvoiceID    snowflake.ID `gorm:"not null;uniqueIndex:ux_reminder_logs_invoice_type"`
	ReminderType ReminderType `gorm:"type:text;not null;uniqueIndex:ux_reminder_logs_invoice_type"`
	SentAt       time.Time    `gorm:"not null"`
}

func (ReminderLog) TableName() string { return "reminder_logs" }

// SendRequest is what the dispatcher hands to the Sender.
type SendRequest struct {
	InvoiceID    snowflake.ID
	OrgID        snowflake.ID
	ReminderType ReminderType
	DueDate      calendar.Date
	// Days is the distance from the due date that triggered the reminder.
	Days int
}

// Sender delivers a single reminder. Implementations must honour ctx
// cancellation; the dispatcher bounds every call with a timeout.
type Sender interface {
	Send(ctx context.Context, req SendRequest) error
}

type Repository interface {
	ListReminderConfigs(ctx context.Context) ([]AccountReminderConfig, error)
	ListCandidates(ctx context.Context, from, to calendar.Date) ([]Candidate, error)
	LogExists(ctx context.Context, invoiceID snowflake.ID, reminderType ReminderType) (bool, error)
	// InsertLog reports inserted=false when a row for the pair already exists.
	InsertLog(ctx context.Context, log ReminderLog) (inserted bool, err error)
}

var (
	ErrInvalidReminderType = errors.New("invalid_reminder_type")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvoiceNotEligible  = errors.New("invoice_not_eligible")
	ErrMissingRecipient    = errors.New("missing_recipient_email")
	ErrDispatchInProgress  = errors.New("dispatch_in_progress")
)
