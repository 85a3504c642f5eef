// Package domain contains persistence models for invoices and estimates.
package domain

import (
	"encoding/json"
	"time"

	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindInvoice  Kind = "invoice"
	KindEstimate Kind = "estimate"
)

func (k Kind) Valid() bool {
	return k == KindInvoice || k == KindEstimate
}

// PublicPath is the client-facing route for a document token.
func PublicPath(token string) string {
	return "/public/documents/" + token
}

// Status is the document lifecycle state. Invoices move draft → sent → paid,
// estimates draft → sent → accepted → converted. Either can be voided before
// it is settled.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusAccepted  Status = "accepted"
	StatusConverted Status = "converted"
	StatusVoid      Status = "void"
)

// Document is an invoice or an estimate. Money columns are a snapshot taken
// whenever the content is saved or sent.
type Document struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	OrgID            snowflake.ID    `gorm:"not null;uniqueIndex:ux_documents_org_number"`
	CustomerID       snowflake.ID    `gorm:"not null;index"`
	Kind             Kind            `gorm:"type:text;not null"`
	Status           Status          `gorm:"type:text;not null;default:'draft'"`
	Number           string          `gorm:"type:text;not null;uniqueIndex:ux_documents_org_number"`
	PublicToken      string          `gorm:"type:text;not null;uniqueIndex"`
	IssueDate        calendar.Date   `gorm:"not null"`
	DueDate          *calendar.Date  `gorm:""`
	Notes            string          `gorm:"type:text;not null;default:''"`
	IndirectOverride datatypes.JSON  `gorm:"type:jsonb"`
	BaseSubtotal     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	IndirectCharge   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	TaxRate          decimal.Decimal `gorm:"type:numeric(6,4);not null;default:0"`
	TaxAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	ConvertedFromID  *snowflake.ID   `gorm:""`
	SentAt           *time.Time      `gorm:""`
	PaidAt           *time.Time      `gorm:""`
	VoidedAt         *time.Time      `gorm:""`
	LastReminderAt   *time.Time      `gorm:""`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []DocumentItem `gorm:"-"`
}

func (Document) TableName() string { return "documents" }

// Override decodes the per-document indirect materials override, if any.
func (d Document) Override() (*totals.IndirectMaterialsConfig, error) {
	if len(d.IndirectOverride) == 0 || string(d.IndirectOverride) == "null" {
		return nil, nil
	}
	var cfg totals.IndirectMaterialsConfig
	if err := json.Unmarshal(d.IndirectOverride, &cfg); err != nil {
		return nil, err
	}
	cfg.Mode = totals.NormalizeMode(string(cfg.Mode))
	return &cfg, nil
}

func (d Document) Totals() totals.DocumentTotals {
	return totals.DocumentTotals{
		BaseSubtotal:   d.BaseSubtotal,
		IndirectCharge: d.IndirectCharge,
		Subtotal:       d.Subtotal,
		TaxAmount:      d.TaxAmount,
		Total:          d.Total,
	}
}

type DocumentItem struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	OrgID       snowflake.ID    `gorm:"not null;index"`
	DocumentID  snowflake.ID    `gorm:"not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:text;not null;default:''"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,6);not null;default:0"`
	Rate        decimal.Decimal `gorm:"type:numeric(18,6);not null;default:0"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DocumentItem) TableName() string { return "document_items" }

// DocumentSequence hands out per-account, per-kind, per-month numbers.
type DocumentSequence struct {
	OrgID     snowflake.ID `gorm:"primaryKey"`
	Kind      Kind         `gorm:"primaryKey;type:text"`
	Period    string       `gorm:"primaryKey;type:text"`
	LastValue int64        `gorm:"not null;default:0"`
}

func (DocumentSequence) TableName() string { return "document_sequences" }
