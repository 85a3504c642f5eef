package repository

import (
	"context"
	"time"

	"github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/pkg/db/option"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const documentColumns = `id, org_id, customer_id, kind, status, number, public_token, issue_date,
		        due_date, notes, indirect_override, base_subtotal, indirect_charge, subtotal,
		        tax_rate, tax_amount, total, converted_from_id, sent_at, paid_at, voided_at,
		        last_reminder_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO documents (
			id, org_id, customer_id, kind, status, number, public_token, issue_date, due_date,
			notes, indirect_override, base_subtotal, indirect_charge, subtotal, tax_rate,
			tax_amount, total, converted_from_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.OrgID,
		doc.CustomerID,
		doc.Kind,
		doc.Status,
		doc.Number,
		doc.PublicToken,
		doc.IssueDate,
		doc.DueDate,
		doc.Notes,
		doc.IndirectOverride,
		doc.BaseSubtotal,
		doc.IndirectCharge,
		doc.Subtotal,
		doc.TaxRate,
		doc.TaxAmount,
		doc.Total,
		doc.ConvertedFromID,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Exec(
		`UPDATE documents
		 SET customer_id = ?, status = ?, issue_date = ?, due_date = ?, notes = ?,
		     indirect_override = ?, base_subtotal = ?, indirect_charge = ?, subtotal = ?,
		     tax_rate = ?, tax_amount = ?, total = ?, sent_at = ?, paid_at = ?, voided_at = ?,
		     updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		doc.CustomerID,
		doc.Status,
		doc.IssueDate,
		doc.DueDate,
		doc.Notes,
		doc.IndirectOverride,
		doc.BaseSubtotal,
		doc.IndirectCharge,
		doc.Subtotal,
		doc.TaxRate,
		doc.TaxAmount,
		doc.Total,
		doc.SentAt,
		doc.PaidAt,
		doc.VoidedAt,
		doc.UpdatedAt,
		doc.OrgID,
		doc.ID,
	).Error
}

func (r *repo) ReplaceItems(ctx context.Context, db *gorm.DB, doc *domain.Document, items []domain.DocumentItem) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM document_items WHERE org_id = ? AND document_id = ?`,
		doc.OrgID,
		doc.ID,
	).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, 100).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT `+documentColumns+`
		 FROM documents WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Document, error) {
	var docs []domain.Document
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (r *repo) FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT `+documentColumns+`
		 FROM documents WHERE public_token = ?`,
		token,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orgID, documentID snowflake.ID) ([]domain.DocumentItem, error) {
	var items []domain.DocumentItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, document_id, position, description, quantity, rate, amount, created_at
		 FROM document_items
		 WHERE org_id = ? AND document_id = ?
		 ORDER BY position ASC, id ASC`,
		orgID,
		documentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListDocumentFilter, page pagination.Pagination) ([]*domain.Document, error) {
	var docs []*domain.Document
	stmt := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("org_id = ?", orgID)
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// NextSequence increments and returns the counter for (org, kind, period).
func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind domain.Kind, period string) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO document_sequences (org_id, kind, period, last_value)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT (org_id, kind, period)
		 DO UPDATE SET last_value = document_sequences.last_value + 1
		 RETURNING last_value`,
		orgID,
		kind,
		period,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) MarkReminded(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE documents SET last_reminder_at = ?, updated_at = ? WHERE id = ?`,
		at,
		at,
		id,
	).Error
}
