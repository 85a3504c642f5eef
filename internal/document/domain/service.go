package domain

import (
	"context"
	"errors"
	"io"
	"time"

	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
)

// LineItemInput accepts quantity and rate as JSON numbers or strings such as
// "$1,250.00"; unusable values count as zero.
type LineItemInput struct {
	Description string `json:"description" validate:"max=500"`
	Quantity    any    `json:"quantity"`
	Rate        any    `json:"rate"`
}

type IndirectOverrideInput struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode" validate:"omitempty,oneof=amount percent"`
	Amount  any    `json:"amount"`
	Percent any    `json:"percent"`
}

type CreateDocumentRequest struct {
	Kind             Kind                   `json:"kind" validate:"required,oneof=invoice estimate"`
	CustomerID       string                 `json:"customer_id" validate:"required"`
	IssueDate        *calendar.Date         `json:"issue_date"`
	DueDate          *calendar.Date         `json:"due_date"`
	Notes            string                 `json:"notes" validate:"max=4000"`
	Items            []LineItemInput        `json:"items" validate:"max=200,dive"`
	IndirectOverride *IndirectOverrideInput `json:"indirect_override"`
}

// UpdateDocumentRequest replaces the editable content of a document.
type UpdateDocumentRequest struct {
	ID               string                 `json:"-"`
	CustomerID       string                 `json:"customer_id"`
	IssueDate        *calendar.Date         `json:"issue_date"`
	DueDate          *calendar.Date         `json:"due_date"`
	Notes            string                 `json:"notes" validate:"max=4000"`
	Items            []LineItemInput        `json:"items" validate:"max=200,dive"`
	IndirectOverride *IndirectOverrideInput `json:"indirect_override"`
}

type PreviewTotalsRequest struct {
	Items            []LineItemInput        `json:"items" validate:"max=200,dive"`
	IndirectOverride *IndirectOverrideInput `json:"indirect_override"`
}

type ListDocumentRequest struct {
	PageToken  string
	PageSize   int32
	Kind       string
	Status     string
	CustomerID string
}

type ListDocumentFilter struct {
	Kind       Kind
	Status     Status
	CustomerID int64
}

type ListDocumentResponse struct {
	pagination.PageInfo
	Documents []DocumentResponse `json:"documents"`
}

type ItemResponse struct {
	ID          string `json:"id"`
	Position    int    `json:"position"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

type DocumentResponse struct {
	ID               string                          `json:"id"`
	OrganizationID   string                          `json:"organization_id"`
	CustomerID       string                          `json:"customer_id"`
	Kind             Kind                            `json:"kind"`
	Status           Status                          `json:"status"`
	Number           string                          `json:"number"`
	PublicURL        string                          `json:"public_url"`
	IssueDate        calendar.Date                   `json:"issue_date"`
	DueDate          *calendar.Date                  `json:"due_date"`
	Notes            string                          `json:"notes,omitempty"`
	IndirectOverride *totals.IndirectMaterialsConfig `json:"indirect_override,omitempty"`
	Totals           totals.DocumentTotals           `json:"totals"`
	TaxRate          string                          `json:"tax_rate"`
	Items            []ItemResponse                  `json:"items,omitempty"`
	ConvertedFromID  string                          `json:"converted_from_id,omitempty"`
	SentAt           *time.Time                      `json:"sent_at,omitempty"`
	PaidAt           *time.Time                      `json:"paid_at,omitempty"`
	VoidedAt         *time.Time                      `json:"voided_at,omitempty"`
	LastReminderAt   *time.Time                      `json:"last_reminder_at,omitempty"`
	CreatedAt        time.Time                       `json:"created_at"`
	UpdatedAt        time.Time                       `json:"updated_at"`
}

// PublicView is everything the client-facing page needs.
type PublicView struct {
	Document     Document
	Customer     customerdomain.Customer
	BusinessName string
	ReplyTo      string
}

type PDFResponse struct {
	Filename string
	Content  io.Reader
}

type Service interface {
	Create(ctx context.Context, req CreateDocumentRequest) (DocumentResponse, error)
	Update(ctx context.Context, req UpdateDocumentRequest) (DocumentResponse, error)
	GetByID(ctx context.Context, id string) (DocumentResponse, error)
	List(ctx context.Context, req ListDocumentRequest) (ListDocumentResponse, error)
	Send(ctx context.Context, id string) (DocumentResponse, error)
	MarkPaid(ctx context.Context, id string) (DocumentResponse, error)
	Void(ctx context.Context, id string) (DocumentResponse, error)
	Convert(ctx context.Context, id string) (DocumentResponse, error)
	PreviewTotals(ctx context.Context, req PreviewTotalsRequest) (totals.DocumentTotals, error)
	RenderPDF(ctx context.Context, id string) (PDFResponse, error)

	// Public operations are addressed by token and need no organization.
	GetPublic(ctx context.Context, token string) (PublicView, error)
	RenderPublicHTML(ctx context.Context, token string) (string, error)
	AcceptEstimate(ctx context.Context, token string) (PublicView, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_document_id")
	ErrInvalidKind         = errors.New("invalid_document_kind")
	ErrInvalidStatus       = errors.New("invalid_document_status")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidDueDate      = errors.New("invalid_due_date")
	ErrInvalidField        = errors.New("invalid_field")
	ErrNotFound            = errors.New("document_not_found")
	ErrNotEditable         = errors.New("document_not_editable")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrMissingRecipient    = errors.New("missing_recipient_email")
	ErrNumberConflict      = errors.New("document_number_conflict")
	ErrItemPrecision       = errors.New("item_precision_exceeded")
)
