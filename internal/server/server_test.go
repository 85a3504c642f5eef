package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	clientimportdomain "github.com/burton0621/barix-site-sub000/internal/clientimport/domain"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	documentdomain "github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	"github.com/burton0621/barix-site-sub000/internal/observability"
	"github.com/burton0621/barix-site-sub000/internal/orgcontext"
	reminderdomain "github.com/burton0621/barix-site-sub000/internal/reminder/domain"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCustomerService struct {
	customerdomain.Service
	lastOrg snowflake.ID
	created customerdomain.CreateCustomerRequest
}

func (f *fakeCustomerService) Create(ctx context.Context, req customerdomain.CreateCustomerRequest) (customerdomain.Customer, error) {
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	f.lastOrg = orgID
	f.created = req
	return customerdomain.Customer{ID: 11, OrgID: orgID, Name: req.Name, Email: req.Email}, nil
}

func (f *fakeCustomerService) List(ctx context.Context, req customerdomain.ListCustomerRequest) (customerdomain.ListCustomerResponse, error) {
	if _, err := pagination.DecodeCursor(req.PageToken); req.PageToken != "" && err != nil {
		return customerdomain.ListCustomerResponse{}, err
	}
	return customerdomain.ListCustomerResponse{}, nil
}

func (f *fakeCustomerService) GetByID(ctx context.Context, req customerdomain.GetCustomerRequest) (customerdomain.Customer, error) {
	return customerdomain.Customer{}, customerdomain.ErrNotFound
}

type fakeImportService struct {
	filename string
	body     string
}

func (f *fakeImportService) Preview(ctx context.Context, filename string, r io.Reader) (clientimportdomain.PreviewResponse, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return clientimportdomain.PreviewResponse{}, err
	}
	f.filename = filename
	f.body = string(data)
	if !strings.HasSuffix(filename, ".csv") {
		return clientimportdomain.PreviewResponse{}, clientimportdomain.ErrUnsupportedFileType
	}
	return clientimportdomain.PreviewResponse{Total: 1, Importable: 1}, nil
}

func (f *fakeImportService) Confirm(ctx context.Context, req clientimportdomain.ConfirmRequest) (clientimportdomain.ConfirmResponse, error) {
	return clientimportdomain.ConfirmResponse{}, nil
}

type fakeDocumentService struct {
	documentdomain.Service
	errs     map[string]error
	accepted string
}

func (f *fakeDocumentService) GetByID(ctx context.Context, id string) (documentdomain.DocumentResponse, error) {
	if err := f.errs[id]; err != nil {
		return documentdomain.DocumentResponse{}, err
	}
	return documentdomain.DocumentResponse{ID: id, Number: "INV-202406-00001", Status: documentdomain.StatusDraft}, nil
}

func (f *fakeDocumentService) Send(ctx context.Context, id string) (documentdomain.DocumentResponse, error) {
	if err := f.errs[id]; err != nil {
		return documentdomain.DocumentResponse{}, err
	}
	return documentdomain.DocumentResponse{ID: id, Status: documentdomain.StatusSent}, nil
}

func (f *fakeDocumentService) PreviewTotals(ctx context.Context, req documentdomain.PreviewTotalsRequest) (totals.DocumentTotals, error) {
	items := []totals.LineItem{{Quantity: decimal.NewFromInt(2), Rate: decimal.NewFromInt(50)}}
	return totals.Calculate(items, totals.IndirectMaterialsConfig{}, decimal.RequireFromString("0.06")), nil
}

func (f *fakeDocumentService) RenderPDF(ctx context.Context, id string) (documentdomain.PDFResponse, error) {
	return documentdomain.PDFResponse{Filename: "INV-202406-00001.pdf", Content: strings.NewReader("%PDF-1.4")}, nil
}

func (f *fakeDocumentService) RenderPublicHTML(ctx context.Context, token string) (string, error) {
	if token != "tok" {
		return "", documentdomain.ErrNotFound
	}
	return "<html><body>Invoice INV-202406-00001</body></html>", nil
}

func (f *fakeDocumentService) AcceptEstimate(ctx context.Context, token string) (documentdomain.PublicView, error) {
	if token != "tok" {
		return documentdomain.PublicView{}, documentdomain.ErrNotFound
	}
	f.accepted = token
	return documentdomain.PublicView{Document: documentdomain.Document{ID: 5, OrgID: 100}}, nil
}

type fakeSettingsService struct {
	accountdomain.Service
}

type fakeReminderRunner struct {
	days []calendar.Date
	err  error
}

func (f *fakeReminderRunner) Run(ctx context.Context, today calendar.Date) (reminderdomain.Report, error) {
	f.days = append(f.days, today)
	if f.err != nil {
		return reminderdomain.Report{}, f.err
	}
	return reminderdomain.Report{
		OK:        true,
		Today:     today.String(),
		DueWindow: reminderdomain.DueWindow{From: today.AddDays(-3).String(), To: today.AddDays(3).String()},
		Attempted: 1,
		Sent:      1,
		Results: []reminderdomain.Result{
			{InvoiceID: "5", OwnerID: "100", ReminderType: reminderdomain.ReminderTypeBeforeDue, OK: true, Sent: true},
		},
	}, nil
}

type testServer struct {
	server    *Server
	customers *fakeCustomerService
	imports   *fakeImportService
	documents *fakeDocumentService
	reminders *fakeReminderRunner
}

func newTestServer(t *testing.T, cfg config.Config) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := testServer{
		customers: &fakeCustomerService{},
		imports:   &fakeImportService{},
		documents: &fakeDocumentService{errs: map[string]error{}},
		reminders: &fakeReminderRunner{},
	}
	ts.server = NewServer(ServerParams{
		Gin:         NewEngine(observability.Config{}),
		Cfg:         cfg,
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(time.Date(2024, 6, 4, 2, 0, 0, 0, time.UTC)),
		CustomerSvc: ts.customers,
		ImportSvc:   ts.imports,
		DocumentSvc: ts.documents,
		SettingsSvc: &fakeSettingsService{},
		Reminders:   ts.reminders,
	})
	return ts
}

func (ts testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAPIRequiresOrgHeader(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/documents/1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "org_required", payload.Errors[0].Code)
	assert.Equal(t, "X-Org-ID", payload.Errors[0].Field)
}

func TestCreateCustomerScopesToOrg(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(`{"name":"Ada Lovelace","email":"ada@example.com"}`))
	req.Header.Set(HeaderOrg, "100")
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, snowflake.ID(100), ts.customers.lastOrg)
	assert.Equal(t, "Ada Lovelace", ts.customers.created.Name)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)
}

func TestCreateCustomerRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/customers", strings.NewReader(`{"name":`))
	req.Header.Set(HeaderOrg, "100")
	rec := ts.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Errors[0].Code)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.documents.errs["404"] = documentdomain.ErrNotFound
	ts.documents.errs["bad"] = documentdomain.ErrInvalidID
	ts.documents.errs["locked"] = documentdomain.ErrNotEditable
	ts.documents.errs["norecipient"] = documentdomain.ErrMissingRecipient

	cases := []struct {
		name   string
		method string
		path   string
		status int
		typ    string
		code   string
	}{
		{name: "customer not found", method: http.MethodGet, path: "/api/customers/9", status: http.StatusNotFound, typ: "not_found"},
		{name: "bad page token", method: http.MethodGet, path: "/api/customers?page_token=nope", status: http.StatusBadRequest, typ: "validation_error", code: "invalid_page_token"},
		{name: "bad created_from", method: http.MethodGet, path: "/api/customers?created_from=yesterday", status: http.StatusBadRequest, typ: "validation_error", code: "invalid_created_from"},
		{name: "document not found", method: http.MethodGet, path: "/api/documents/404", status: http.StatusNotFound, typ: "not_found"},
		{name: "invalid id", method: http.MethodGet, path: "/api/documents/bad", status: http.StatusBadRequest, typ: "validation_error", code: "invalid_document_id"},
		{name: "settled document", method: http.MethodPost, path: "/api/documents/locked/send", status: http.StatusConflict, typ: "conflict"},
		{name: "missing recipient", method: http.MethodPost, path: "/api/documents/norecipient/send", status: http.StatusBadRequest, typ: "validation_error", code: "missing_recipient_email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set(HeaderOrg, "100")
			rec := ts.do(req)

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			payload := decodeError(t, rec)
			assert.Equal(t, tc.typ, payload.Type)
			if tc.code != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tc.code, payload.Errors[0].Code)
			}
		})
	}
}

func TestDocumentActionAndPreviewTotals(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/documents/42/send", nil)
	req.Header.Set(HeaderOrg, "100")
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"sent"`)

	req = httptest.NewRequest(http.MethodPost, "/api/documents/preview-totals", strings.NewReader(`{"items":[{"quantity":2,"rate":"50"}]}`))
	req.Header.Set(HeaderOrg, "100")
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total"`)
}

func TestDownloadDocumentPDF(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/documents/42/pdf", nil)
	req.Header.Set(HeaderOrg, "100")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="INV-202406-00001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestPreviewClientImportUpload(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "clients.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,email\nAda,ada@example.com\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/customers/import/preview", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(HeaderOrg, "100")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "clients.csv", ts.imports.filename)
	assert.Contains(t, ts.imports.body, "ada@example.com")
	assert.Contains(t, rec.Body.String(), `"importable":1`)
}

func TestPreviewClientImportErrors(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/customers/import/preview", strings.NewReader(""))
	req.Header.Set(HeaderOrg, "100")
	rec := ts.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file_required", decodeError(t, rec).Errors[0].Code)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "clients.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF"))
	require.NoError(t, writer.Close())

	req = httptest.NewRequest(http.MethodPost, "/api/customers/import/preview", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(HeaderOrg, "100")
	rec = ts.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "unsupported_file_type", payload.Errors[0].Code)
	assert.Equal(t, "file", payload.Errors[0].Field)
}

func TestPublicDocumentView(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/public/documents/tok", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "INV-202406-00001")

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/public/documents/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not available")
}

func TestAcceptPublicEstimateRedirects(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/public/documents/tok/accept", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/public/documents/tok", rec.Header().Get("Location"))
	assert.Equal(t, "tok", ts.documents.accepted)
}

func TestCronRemindersRequiresSecret(t *testing.T) {
	ts := newTestServer(t, config.Config{CronSecret: "s3cret", Billing: config.BillingEnvConfig{Timezone: "UTC"}})

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/cron/reminders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/cron/reminders", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = ts.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.reminders.days)

	req = httptest.NewRequest(http.MethodPost, "/cron/reminders", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ts.reminders.days, 1)
	assert.Equal(t, "2024-06-04", ts.reminders.days[0].String())

	var report reminderdomain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.OK)
	assert.Equal(t, "2024-06-04", report.Today)
	assert.Equal(t, reminderdomain.DueWindow{From: "2024-06-01", To: "2024-06-07"}, report.DueWindow)
	assert.Equal(t, 1, report.Sent)
}

func TestCronRemindersDateOverride(t *testing.T) {
	ts := newTestServer(t, config.Config{CronSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodPost, "/cron/reminders?date=2024-07-01", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.reminders.days, 1)
	assert.Equal(t, "2024-07-01", ts.reminders.days[0].String())

	req = httptest.NewRequest(http.MethodPost, "/cron/reminders?date=July", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = ts.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decodeError(t, rec).Errors[0].Code)
}

func TestCronRemindersUsesBillingTimezone(t *testing.T) {
	// 02:00 UTC on June 4th is still June 3rd in Chicago.
	ts := newTestServer(t, config.Config{Billing: config.BillingEnvConfig{Timezone: "America/Chicago"}})
	if ts.server.cfg.Location() == time.UTC {
		t.Skip("timezone database unavailable")
	}

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/cron/reminders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.reminders.days, 1)
	assert.Equal(t, "2024-06-03", ts.reminders.days[0].String())
}

func TestCronRemindersTopLevelFailure(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.reminders.err = reminderdomain.ErrDispatchInProgress

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/cron/reminders", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		OK    bool         `json:"ok"`
		Error errorPayload `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "conflict", body.Error.Type)
}

func TestCronRemindersClosedInProductionWithoutSecret(t *testing.T) {
	ts := newTestServer(t, config.Config{Environment: "production"})

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/cron/reminders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.reminders.days)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
