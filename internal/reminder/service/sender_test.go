package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	customerrepo "github.com/burton0621/barix-site-sub000/internal/customer/repository"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	documentrepo "github.com/burton0621/barix-site-sub000/internal/document/repository"
	"github.com/burton0621/barix-site-sub000/internal/providers/email"
	"github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type staticSettings struct{}

func (staticSettings) Resolve(ctx context.Context, orgID snowflake.ID) (accountdomain.Settings, error) {
	return accountdomain.Settings{OrgID: orgID, BusinessName: "Oak Roofing", ReplyToEmail: "owner@oak.test"}, nil
}

type outbox struct {
	messages []email.Message
}

func (o *outbox) Send(ctx context.Context, msg email.Message) error {
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outbox) SendTemplate(ctx context.Context, to []string, templateName string, data email.TemplateData) error {
	msg, err := email.Render(to, templateName, data)
	if err != nil {
		return err
	}
	return o.Send(ctx, msg)
}

func TestEmailSenderDeliversAndStamps(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&customerdomain.Customer{}, &documentdomain.Document{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, time.June, 13, 9, 0, 0, 0, time.UTC))
	now := fake.Now()

	customer := customerdomain.Customer{
		ID:        node.Generate(),
		OrgID:     100,
		Name:      "Ann",
		Email:     "ann@example.com",
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, customerrepo.Provide().Insert(context.Background(), db, &customer))

	noEmail := customerdomain.Customer{
		ID:        node.Generate(),
		OrgID:     100,
		Name:      "Bob",
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, customerrepo.Provide().Insert(context.Background(), db, &noEmail))

	due := calendar.MustParseDate("2024-06-10")
	insert := func(customerID snowflake.ID, number string, status documentdomain.Status) snowflake.ID {
		doc := documentdomain.Document{
			ID:          node.Generate(),
			OrgID:       100,
			CustomerID:  customerID,
			Kind:        documentdomain.KindInvoice,
			Status:      status,
			Number:      number,
			PublicToken: number + "-token",
			IssueDate:   calendar.MustParseDate("2024-06-01"),
			DueDate:     &due,
			Total:       decimal.RequireFromString("132.50"),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, documentrepo.Provide().Insert(context.Background(), db, &doc))
		return doc.ID
	}
	sentID := insert(customer.ID, "INV-202406-00001", documentdomain.StatusSent)
	draftID := insert(customer.ID, "INV-202406-00002", documentdomain.StatusDraft)
	orphanID := insert(noEmail.ID, "INV-202406-00003", documentdomain.StatusSent)

	box := &outbox{}
	sender := NewSender(SenderParams{
		DB:        db,
		Log:       zap.NewNop(),
		Config:    config.Config{PublicBaseURL: "https://billing.example.com/"},
		Clock:     fake,
		Documents: documentrepo.Provide(),
		Customers: customerrepo.Provide(),
		Settings:  staticSettings{},
		Email:     box,
	})

	err = sender.Send(context.Background(), domain.SendRequest{
		InvoiceID:    sentID,
		OrgID:        100,
		ReminderType: domain.ReminderTypeAfterDue,
		DueDate:      due,
		Days:         3,
	})
	require.NoError(t, err)
	require.Len(t, box.messages, 1)
	msg := box.messages[0]
	assert.Equal(t, []string{"ann@example.com"}, msg.To)
	assert.Equal(t, "owner@oak.test", msg.ReplyTo)
	assert.Equal(t, "Past due: invoice INV-202406-00001", msg.Subject)
	assert.Contains(t, msg.HTML, "3 days past due")
	assert.Contains(t, msg.HTML, "$132.50")
	assert.Contains(t, msg.HTML, "https://billing.example.com/public/documents/INV-202406-00001-token")

	stamped, err := documentrepo.Provide().FindByID(context.Background(), db, 100, sentID)
	require.NoError(t, err)
	require.NotNil(t, stamped.LastReminderAt)
	assert.True(t, stamped.LastReminderAt.Equal(now))

	err = sender.Send(context.Background(), domain.SendRequest{InvoiceID: draftID, OrgID: 100, ReminderType: domain.ReminderTypeBeforeDue, DueDate: due})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotEligible)

	err = sender.Send(context.Background(), domain.SendRequest{InvoiceID: orphanID, OrgID: 100, ReminderType: domain.ReminderTypeBeforeDue, DueDate: due})
	assert.ErrorIs(t, err, domain.ErrMissingRecipient)

	err = sender.Send(context.Background(), domain.SendRequest{InvoiceID: node.Generate(), OrgID: 100, ReminderType: domain.ReminderTypeBeforeDue, DueDate: due})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	err = sender.Send(context.Background(), domain.SendRequest{InvoiceID: sentID, OrgID: 100, ReminderType: "weekly"})
	assert.ErrorIs(t, err, domain.ErrInvalidReminderType)

	assert.Len(t, box.messages, 1)
}
