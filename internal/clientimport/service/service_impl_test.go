package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/burton0621/barix-site-sub000/internal/clientimport/domain"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	customerrepo "github.com/burton0621/barix-site-sub000/internal/customer/repository"
	customerservice "github.com/burton0621/barix-site-sub000/internal/customer/service"
	"github.com/burton0621/barix-site-sub000/internal/orgcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupImport(t *testing.T) (context.Context, customerdomain.Service, domain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&customerdomain.Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  customerrepo.Provide(),
	})
	svc := New(Params{Log: zap.NewNop(), Customers: customers})
	return orgcontext.WithOrgID(context.Background(), 42), customers, svc
}

const sampleCSV = "Name,Email,Phone,Address,Zip\n" +
	"Ann Smith,ann@example.com,,12 Oak St,62701\n" +
	"Ann Again,ANN@example.com,,,\n" +
	"Dan,dan@existing.com,,,\n" +
	",,,99 Elm St,62702\n" +
	"Eve,not-an-email,,,\n" +
	"Fay,,(555) 010-3000,,\n"

func TestPreviewClassifiesRows(t *testing.T) {
	ctx, customers, svc := setupImport(t)
	_, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Dan", Email: "dan@existing.com"})
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, "clients.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Equal(t, 5, preview.Total)
	assert.Equal(t, 2, preview.Importable)
	assert.Equal(t, 2, preview.Duplicates)
	assert.Equal(t, 1, preview.Invalid)

	assert.Equal(t, domain.StatusImportable, preview.Rows[0].Status)
	assert.Equal(t, domain.ReasonRepeatedInFile, preview.Rows[1].Reason)
	assert.Equal(t, domain.ReasonExistingClient, preview.Rows[2].Reason)
	assert.Equal(t, domain.ReasonInvalidEmail, preview.Rows[3].Reason)
	assert.Equal(t, "phone:5550103000", preview.Rows[4].Key)
}

func TestPreviewReportsEveryInvalidEmail(t *testing.T) {
	ctx, _, svc := setupImport(t)
	csv := "Name,Email\n" +
		"Eve,not-an-email\n" +
		"Eve Again,NOT-AN-EMAIL\n" +
		"Fay,fay@example.com\n"

	preview, err := svc.Preview(ctx, "clients.csv", strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, preview.Rows, 3)
	assert.Equal(t, 2, preview.Invalid)
	assert.Zero(t, preview.Duplicates)
	assert.Equal(t, domain.ReasonInvalidEmail, preview.Rows[0].Reason)
	assert.Equal(t, domain.ReasonInvalidEmail, preview.Rows[1].Reason)
	assert.Equal(t, domain.StatusImportable, preview.Rows[2].Status)
}

func TestPreviewErrors(t *testing.T) {
	ctx, _, svc := setupImport(t)

	_, err := svc.Preview(ctx, "clients.txt", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)

	_, err = svc.Preview(ctx, "clients.csv", strings.NewReader("Name,Email\n,\n , \n"))
	assert.ErrorIs(t, err, domain.ErrNoUsableRows)

	_, err = svc.Preview(context.Background(), "clients.csv", strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, customerdomain.ErrInvalidOrganization)
}

func TestConfirmInsertsOnlyImportableRows(t *testing.T) {
	ctx, customers, svc := setupImport(t)
	_, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Dan", Email: "dan@existing.com"})
	require.NoError(t, err)

	resp, err := svc.Confirm(ctx, domain.ConfirmRequest{Rows: []domain.ImportRow{
		{Name: " Ann Smith ", Email: "ANN@example.com"},
		{Name: "Ann Again", Email: "ann@example.com"},
		{Name: "Dan", Email: "dan@existing.com"},
		{Phone: "555-010-3000"},
		{},
	}})
	require.NoError(t, err)

	require.Len(t, resp.Inserted, 2)
	assert.Equal(t, "Ann Smith", resp.Inserted[0].Name)
	assert.Equal(t, "ann@example.com", resp.Inserted[0].Email)
	assert.NotZero(t, resp.Inserted[0].ID)
	assert.Equal(t, "5550103000", resp.Inserted[1].Name)
	assert.Len(t, resp.Skipped, 2)

	all, err := customers.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// A second confirmation of the same rows inserts nothing.
	again, err := svc.Confirm(ctx, domain.ConfirmRequest{Rows: []domain.ImportRow{{Name: "Ann Smith", Email: "ann@example.com"}}})
	require.NoError(t, err)
	assert.Empty(t, again.Inserted)
	assert.Equal(t, domain.ReasonExistingClient, again.Skipped[0].Reason)
}

func TestConfirmRejectsEmptyBatch(t *testing.T) {
	ctx, _, svc := setupImport(t)

	_, err := svc.Confirm(ctx, domain.ConfirmRequest{Rows: []domain.ImportRow{{City: "Springfield"}}})
	assert.ErrorIs(t, err, domain.ErrNoUsableRows)
}
