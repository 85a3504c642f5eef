package repository

import (
	"context"

	"github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/pkg/db/option"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const customerColumns = `id, org_id, name, email, phone, address_line1, city, state, postal_code,
		        notes, metadata, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, org_id, name, email, phone, address_line1, city, state,
			postal_code, notes, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.OrgID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.AddressLine1,
		customer.City,
		customer.State,
		customer.PostalCode,
		customer.Notes,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) BulkInsert(ctx context.Context, db *gorm.DB, customers []*domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(customers, 200).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, email = ?, phone = ?, address_line1 = ?, city = ?, state = ?,
		     postal_code = ?, notes = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.AddressLine1,
		customer.City,
		customer.State,
		customer.PostalCode,
		customer.Notes,
		customer.Metadata,
		customer.UpdatedAt,
		customer.OrgID,
		customer.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT `+customerColumns+`
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("org_id = ?", orgID)
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Email != "" {
		stmt = stmt.Where("LOWER(email) = ?", filter.Email)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT `+customerColumns+`
		 FROM customers WHERE org_id = ?
		 ORDER BY id`,
		orgID,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
