package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resolver returns the effective settings for an account, falling back to
// configured defaults.
type Resolver interface {
	Resolve(ctx context.Context, orgID snowflake.ID) (Settings, error)
}

type Service interface {
	Get(ctx context.Context) (Response, error)
	Update(ctx context.Context, req UpdateRequest) (Response, error)
}

type IndirectMaterials struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
	Amount  string `json:"amount"`
	Percent string `json:"percent"`
}

type Reminders struct {
	Enabled       bool `json:"enabled"`
	DaysBeforeDue int  `json:"days_before_due"`
	DaysAfterDue  int  `json:"days_after_due"`
}

// UpdateRequest patches settings; nil groups and fields keep their value.
type UpdateRequest struct {
	BusinessName      *string                 `json:"business_name,omitempty" validate:"omitempty,max=200"`
	ReplyToEmail      *string                 `json:"reply_to_email,omitempty" validate:"omitempty,email"`
	IndirectMaterials *IndirectMaterialsPatch `json:"indirect_materials,omitempty"`
	Reminders         *RemindersPatch         `json:"reminders,omitempty"`
}

// IndirectMaterialsPatch accepts amount and percent as numbers or strings
// such as "$25.00".
type IndirectMaterialsPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Mode    *string `json:"mode,omitempty"`
	Amount  any     `json:"amount,omitempty"`
	Percent any     `json:"percent,omitempty"`
}

type RemindersPatch struct {
	Enabled       *bool `json:"enabled,omitempty"`
	DaysBeforeDue *int  `json:"days_before_due,omitempty" validate:"omitempty,gte=0,lte=365"`
	DaysAfterDue  *int  `json:"days_after_due,omitempty" validate:"omitempty,gte=0,lte=365"`
}

type Response struct {
	OrganizationID    string            `json:"organization_id"`
	BusinessName      string            `json:"business_name"`
	ReplyToEmail      string            `json:"reply_to_email"`
	IndirectMaterials IndirectMaterials `json:"indirect_materials"`
	Reminders         Reminders         `json:"reminders"`
	TaxRate           string            `json:"tax_rate"`
	UpdatedAt         *time.Time        `json:"updated_at,omitempty"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidIndirectMode = errors.New("invalid_indirect_mode")
	ErrInvalidReminderDays = errors.New("invalid_reminder_days")
	ErrInvalidField        = errors.New("invalid_field")
)
