package domain

import (
	"context"
	"errors"
	"io"

	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
)

// MaxRows bounds a single upload.
const MaxRows = 5000

// RawRow is one spreadsheet row as read, before normalization.
type RawRow struct {
	Name         string
	Email        string
	Phone        string
	AddressLine1 string
	City         string
	State        string
	PostalCode   string
	Notes        string
}

// ImportRow is a normalized client candidate. It is never stored until the
// upload is confirmed.
type ImportRow struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Notes        string `json:"notes,omitempty"`
}

type Status string

const (
	StatusImportable Status = "importable"
	StatusDuplicate  Status = "duplicate"
	StatusInvalid    Status = "invalid"
)

const (
	ReasonExistingClient = "Duplicate (already in your clients)"
	ReasonRepeatedInFile = "Duplicate (repeated in this upload)"
	ReasonInvalidEmail   = "Invalid email address"
)

type Classified struct {
	Row    ImportRow `json:"row"`
	Key    string    `json:"key"`
	Status Status    `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

func (c Classified) Importable() bool {
	return c.Status == StatusImportable
}

type PreviewResponse struct {
	Rows       []Classified `json:"rows"`
	Total      int          `json:"total"`
	Importable int          `json:"importable"`
	Duplicates int          `json:"duplicates"`
	Invalid    int          `json:"invalid"`
}

type ConfirmRequest struct {
	Rows []ImportRow `json:"rows"`
}

type ConfirmResponse struct {
	Inserted []customerdomain.Customer `json:"inserted"`
	Skipped  []Classified              `json:"skipped"`
}

type Service interface {
	Preview(ctx context.Context, filename string, r io.Reader) (PreviewResponse, error)
	Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResponse, error)
}

var (
	ErrUnsupportedFileType = errors.New("unsupported_file_type")
	ErrNoUsableRows        = errors.New("no_usable_rows")
	ErrTooManyRows         = errors.New("too_many_rows")
	ErrMalformedFile       = errors.New("malformed_file")
)
