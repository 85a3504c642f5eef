package service

import (
	"context"
	"fmt"
	"strings"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/format"
	"github.com/burton0621/barix-site-sub000/internal/providers/email"
	"github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SenderParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Clock     clock.Clock
	Documents documentdomain.Repository
	Customers customerdomain.Repository
	Settings  accountdomain.Resolver
	Email     email.Provider
}

// EmailSender delivers reminder emails for sent invoices.
type EmailSender struct {
	db        *gorm.DB
	log       *zap.Logger
	baseURL   string
	clock     clock.Clock
	documents documentdomain.Repository
	customers customerdomain.Repository
	settings  accountdomain.Resolver
	email     email.Provider
}

func NewSender(p SenderParams) domain.Sender {
	return &EmailSender{
		db:        p.DB,
		log:       p.Log.Named("reminder.sender"),
		baseURL:   strings.TrimRight(p.Config.PublicBaseURL, "/"),
		clock:     p.Clock,
		documents: p.Documents,
		customers: p.Customers,
		settings:  p.Settings,
		email:     p.Email,
	}
}

func (s *EmailSender) Send(ctx context.Context, req domain.SendRequest) error {
	templateName, err := reminderTemplate(req.ReminderType)
	if err != nil {
		return err
	}

	doc, err := s.documents.FindByID(ctx, s.db, req.OrgID, req.InvoiceID)
	if err != nil {
		return err
	}
	if doc == nil {
		return domain.ErrInvoiceNotFound
	}
	if doc.Kind != documentdomain.KindInvoice || doc.Status != documentdomain.StatusSent || doc.PaidAt != nil {
		return domain.ErrInvoiceNotEligible
	}

	customer, err := s.customers.FindByID(ctx, s.db, doc.OrgID, doc.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil || strings.TrimSpace(customer.Email) == "" {
		return domain.ErrMissingRecipient
	}

	settings, err := s.settings.Resolve(ctx, doc.OrgID)
	if err != nil {
		return err
	}

	data := email.TemplateData{
		ReplyTo:        settings.ReplyToEmail,
		BusinessName:   settings.BusinessName,
		CustomerName:   customer.Name,
		DocumentKind:   string(doc.Kind),
		DocumentNumber: doc.Number,
		Total:          format.Money(doc.Total),
		DueDate:        req.DueDate.String(),
		Days:           req.Days,
		PublicURL:      s.baseURL + documentdomain.PublicPath(doc.PublicToken),
	}
	if err := s.email.SendTemplate(ctx, []string{customer.Email}, templateName, data); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	// The email is out; a failed stamp only loses the display timestamp.
	if err := s.documents.MarkReminded(ctx, s.db, doc.ID, s.clock.Now()); err != nil {
		s.log.Warn("reminder.stamp_failed",
			zap.String("invoice_id", doc.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func reminderTemplate(reminderType domain.ReminderType) (string, error) {
	switch reminderType {
	case domain.ReminderTypeBeforeDue:
		return email.TemplateReminderBeforeDue, nil
	case domain.ReminderTypeAfterDue:
		return email.TemplateReminderAfterDue, nil
	default:
		return "", domain.ErrInvalidReminderType
	}
}
