package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/format"
	"github.com/burton0621/barix-site-sub000/internal/providers/email"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Send recomputes the totals snapshot, marks the document sent and emails
// the client a link to the public view. Re-sending a sent document is
// allowed. The status change commits before delivery so no row lock is held
// across the mail call; a failed delivery then puts the previous status back.
func (s *Service) Send(ctx context.Context, id string) (domain.DocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	docID, err := parseID(id)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	settings, err := s.settings.Resolve(ctx, orgID)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	var (
		doc      *domain.Document
		customer *customerdomain.Customer
		items    []domain.DocumentItem
		previous sendState
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err = s.repo.FindForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		if doc.Status != domain.StatusDraft && doc.Status != domain.StatusSent {
			return domain.ErrInvalidTransition
		}

		customer, err = s.customerRepo.FindByID(ctx, tx, orgID, doc.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidCustomer
		}
		if strings.TrimSpace(customer.Email) == "" {
			return domain.ErrMissingRecipient
		}

		items, err = s.repo.ListItems(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if err := s.recompute(ctx, doc, linesFromItems(items)); err != nil {
			return err
		}

		previous = sendState{status: doc.Status, sentAt: doc.SentAt}
		// Truncated to what timestamptz keeps, so revertSend can match it.
		now := s.clock.Now().Truncate(time.Microsecond)
		doc.Status = domain.StatusSent
		doc.SentAt = &now
		doc.UpdatedAt = now
		return s.repo.Update(ctx, tx, doc)
	})
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	if err := s.deliver(ctx, doc, customer, settings); err != nil {
		s.revertSend(ctx, doc, previous)
		return domain.DocumentResponse{}, err
	}

	s.metrics.RecordDocumentSent(ctx, string(doc.Kind))
	s.log.Info("document.sent",
		zap.String("document_id", doc.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("kind", string(doc.Kind)),
		zap.String("total", doc.Total.StringFixed(2)),
	)
	return s.toResponse(*doc, items), nil
}

type sendState struct {
	status domain.Status
	sentAt *time.Time
}

// revertSend restores the pre-send status unless the document moved on in
// the meantime (paid, voided or sent again).
func (s *Service) revertSend(ctx context.Context, sent *domain.Document, previous sendState) {
	// The caller's ctx may be the one that expired during delivery.
	ctx = context.WithoutCancel(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, sent.OrgID, sent.ID)
		if err != nil || current == nil {
			return err
		}
		if current.Status != domain.StatusSent || current.SentAt == nil || !current.SentAt.Equal(*sent.SentAt) {
			return nil
		}
		current.Status = previous.status
		current.SentAt = previous.sentAt
		current.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, current)
	})
	if err != nil {
		s.log.Error("document.send_revert_failed",
			zap.String("document_id", sent.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("document.send_failed",
		zap.String("document_id", sent.ID.String()),
		zap.String("restored_status", string(previous.status)),
	)
}

func (s *Service) deliver(ctx context.Context, doc *domain.Document, customer *customerdomain.Customer, settings accountdomain.Settings) error {
	data := email.TemplateData{
		ReplyTo:        settings.ReplyToEmail,
		BusinessName:   settings.BusinessName,
		CustomerName:   customer.Name,
		DocumentKind:   string(doc.Kind),
		DocumentNumber: doc.Number,
		Total:          format.Money(doc.Total),
		PublicURL:      s.publicURL(doc.PublicToken),
	}
	if doc.DueDate != nil {
		data.DueDate = doc.DueDate.String()
	}
	if err := s.email.SendTemplate(ctx, []string{customer.Email}, email.TemplateDocumentSent, data); err != nil {
		return fmt.Errorf("deliver document: %w", err)
	}
	return nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) (domain.DocumentResponse, error) {
	return s.transition(ctx, id, "document.paid", func(doc *domain.Document) error {
		if doc.Kind != domain.KindInvoice {
			return domain.ErrInvalidTransition
		}
		if doc.Status != domain.StatusDraft && doc.Status != domain.StatusSent {
			return domain.ErrInvalidTransition
		}
		now := s.clock.Now()
		doc.Status = domain.StatusPaid
		doc.PaidAt = &now
		return nil
	})
}

func (s *Service) Void(ctx context.Context, id string) (domain.DocumentResponse, error) {
	return s.transition(ctx, id, "document.voided", func(doc *domain.Document) error {
		switch doc.Status {
		case domain.StatusDraft, domain.StatusSent, domain.StatusAccepted:
		default:
			return domain.ErrInvalidTransition
		}
		now := s.clock.Now()
		doc.Status = domain.StatusVoid
		doc.VoidedAt = &now
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id, event string, apply func(doc *domain.Document) error) (domain.DocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	docID, err := parseID(id)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	var (
		doc      *domain.Document
		previous domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err = s.repo.FindForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		previous = doc.Status
		if err := apply(doc); err != nil {
			return err
		}
		doc.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, doc)
	})
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	s.log.Info(event,
		zap.String("document_id", doc.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("previous_status", string(previous)),
	)
	return s.toResponse(*doc, nil), nil
}

// Convert turns a sent or accepted estimate into a new draft invoice with the
// same client, items and indirect override. The estimate becomes converted.
func (s *Service) Convert(ctx context.Context, id string) (domain.DocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	docID, err := parseID(id)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	var (
		invoice domain.Document
		items   []domain.DocumentItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		estimate, err := s.repo.FindForUpdate(ctx, tx, orgID, docID)
		if err != nil {
			return err
		}
		if estimate == nil {
			return domain.ErrNotFound
		}
		if estimate.Kind != domain.KindEstimate {
			return domain.ErrInvalidKind
		}
		if estimate.Status != domain.StatusSent && estimate.Status != domain.StatusAccepted {
			return domain.ErrInvalidTransition
		}

		sourceItems, err := s.repo.ListItems(ctx, tx, orgID, estimate.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		today := s.today()
		due := today.AddDays(convertedInvoiceTermDays)
		sourceID := estimate.ID
		invoice = domain.Document{
			ID:               s.genID.Generate(),
			OrgID:            orgID,
			CustomerID:       estimate.CustomerID,
			Kind:             domain.KindInvoice,
			Status:           domain.StatusDraft,
			PublicToken:      uuid.NewString(),
			IssueDate:        today,
			DueDate:          &due,
			Notes:            estimate.Notes,
			IndirectOverride: estimate.IndirectOverride,
			ConvertedFromID:  &sourceID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		items = make([]domain.DocumentItem, 0, len(sourceItems))
		for _, item := range sourceItems {
			item.ID = s.genID.Generate()
			item.DocumentID = invoice.ID
			item.CreatedAt = now
			items = append(items, item)
		}
		if err := s.recompute(ctx, &invoice, linesFromItems(items)); err != nil {
			return err
		}

		number, err := s.nextNumber(ctx, tx, orgID, invoice.Kind, invoice.IssueDate)
		if err != nil {
			return err
		}
		invoice.Number = number
		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if isNumberConflict(err) {
				return domain.ErrNumberConflict
			}
			return err
		}
		if err := s.repo.ReplaceItems(ctx, tx, &invoice, items); err != nil {
			return err
		}

		estimate.Status = domain.StatusConverted
		estimate.UpdatedAt = now
		return s.repo.Update(ctx, tx, estimate)
	})
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	s.metrics.RecordDocumentCreated(ctx, string(invoice.Kind))
	s.log.Info("document.converted",
		zap.String("estimate_id", docID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("org_id", orgID.String()),
	)
	return s.toResponse(invoice, items), nil
}
