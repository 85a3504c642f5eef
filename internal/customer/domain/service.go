package domain

import (
	"context"
	"errors"
	"time"

	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken   string
	PageSize    int32
	Name        string
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name         string         `json:"name" validate:"required,max=200"`
	Email        string         `json:"email" validate:"omitempty,email,max=254"`
	Phone        string         `json:"phone" validate:"max=40"`
	AddressLine1 string         `json:"address_line1" validate:"max=200"`
	City         string         `json:"city" validate:"max=100"`
	State        string         `json:"state" validate:"max=100"`
	PostalCode   string         `json:"postal_code" validate:"max=20"`
	Notes        string         `json:"notes" validate:"max=2000"`
	Metadata     map[string]any `json:"metadata"`
}

// UpdateCustomerRequest carries a partial update; nil fields are untouched.
type UpdateCustomerRequest struct {
	ID           string         `json:"-"`
	Name         *string        `json:"name" validate:"omitempty,max=200"`
	Email        *string        `json:"email" validate:"omitempty,email,max=254"`
	Phone        *string        `json:"phone" validate:"omitempty,max=40"`
	AddressLine1 *string        `json:"address_line1" validate:"omitempty,max=200"`
	City         *string        `json:"city" validate:"omitempty,max=100"`
	State        *string        `json:"state" validate:"omitempty,max=100"`
	PostalCode   *string        `json:"postal_code" validate:"omitempty,max=20"`
	Notes        *string        `json:"notes" validate:"omitempty,max=2000"`
	Metadata     map[string]any `json:"metadata"`
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	// ListAll returns every customer of the account, for import dedupe.
	ListAll(context.Context) ([]Customer, error)
	// BulkCreate inserts all customers in one transaction.
	BulkCreate(context.Context, []CreateCustomerRequest) ([]Customer, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidField        = errors.New("invalid_field")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
