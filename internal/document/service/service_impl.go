package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/clock"
	"github.com/burton0621/barix-site-sub000/internal/config"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/format"
	"github.com/burton0621/barix-site-sub000/internal/document/render"
	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	"github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	"github.com/burton0621/barix-site-sub000/internal/orgcontext"
	"github.com/burton0621/barix-site-sub000/internal/providers/email"
	"github.com/burton0621/barix-site-sub000/internal/providers/pdf"
	"github.com/burton0621/barix-site-sub000/pkg/calendar"
	"github.com/burton0621/barix-site-sub000/pkg/db"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoices converted from estimates are due this many days after issue.
const convertedInvoiceTermDays = 14

var validate = validator.New()

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Config       config.Config
	Billing      *config.BillingConfigHolder
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	Settings     accountdomain.Resolver
	Email        email.Provider
	PDF          pdf.Provider
	Renderer     render.Renderer
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	baseURL      string
	location     *time.Location
	billing      *config.BillingConfigHolder
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	settings     accountdomain.Resolver
	email        email.Provider
	pdf          pdf.Provider
	renderer     render.Renderer
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("document.service"),
		baseURL:      strings.TrimRight(p.Config.PublicBaseURL, "/"),
		location:     p.Config.Location(),
		billing:      p.Billing,
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		settings:     p.Settings,
		email:        p.Email,
		pdf:          p.PDF,
		renderer:     p.Renderer,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateDocumentRequest) (domain.DocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.DocumentResponse{}, mapValidationError(err)
	}

	customerID, err := s.loadCustomerID(ctx, s.db, orgID, req.CustomerID)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	issueDate, dueDate, err := s.resolveDates(req.IssueDate, req.DueDate)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	now := s.clock.Now()
	doc := domain.Document{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		CustomerID:  customerID,
		Kind:        req.Kind,
		Status:      domain.StatusDraft,
		PublicToken: uuid.NewString(),
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items, err := s.applyContent(ctx, &doc, req.Items, req.IndirectOverride)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.nextNumber(ctx, tx, orgID, doc.Kind, doc.IssueDate)
		if err != nil {
			return err
		}
		doc.Number = number
		if err := s.repo.Insert(ctx, tx, &doc); err != nil {
			if isNumberConflict(err) {
				return domain.ErrNumberConflict
			}
			return err
		}
		return s.repo.ReplaceItems(ctx, tx, &doc, items)
	})
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	s.metrics.RecordDocumentCreated(ctx, string(doc.Kind))
	s.log.Info("document.created",
		zap.String("document_id", doc.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("kind", string(doc.Kind)),
		zap.String("number", doc.Number),
	)
	return s.toResponse(doc, items), nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateDocumentRequest) (domain.DocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.DocumentResponse{}, mapValidationError(err)
	}

	var (
		doc   *domain.Document
		items []domain.DocumentItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err = s.repo.FindForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		if doc.Status != domain.StatusDraft && doc.Status != domain.StatusSent {
			return domain.ErrNotEditable
		}

		if strings.TrimSpace(req.CustomerID) != "" {
			customerID, err := s.loadCustomerID(ctx, tx, orgID, req.CustomerID)
			if err != nil {
				return err
			}
			doc.CustomerID = customerID
		}

		issue := req.IssueDate
		if issue == nil || issue.IsZero() {
			issue = &doc.IssueDate
		}
		issueDate, dueDate, err := s.resolveDates(issue, req.DueDate)
		if err != nil {
			return err
		}
		doc.IssueDate = issueDate
		doc.DueDate = dueDate
		doc.Notes = strings.TrimSpace(req.Notes)
		doc.UpdatedAt = s.clock.Now()

		items, err = s.applyContent(ctx, doc, req.Items, req.IndirectOverride)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, doc); err != nil {
			return err
		}
		return s.repo.ReplaceItems(ctx, tx, doc, items)
	})
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	s.log.Info("document.updated", zap.String("document_id", doc.ID.String()), zap.String("org_id", orgID.String()))
	return s.toResponse(*doc, items), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.DocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	docID, err := parseID(id)
	if err != nil {
		return domain.DocumentResponse{}, err
	}

	doc, items, err := s.loadDocument(ctx, s.db, orgID, docID)
	if err != nil {
		return domain.DocumentResponse{}, err
	}
	return s.toResponse(*doc, items), nil
}

func (s *Service) List(ctx context.Context, req domain.ListDocumentRequest) (domain.ListDocumentResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.ListDocumentResponse{}, err
	}

	filter := domain.ListDocumentFilter{
		Kind:   domain.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Status: domain.Status(strings.ToLower(strings.TrimSpace(req.Status))),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return domain.ListDocumentResponse{}, domain.ErrInvalidKind
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return domain.ListDocumentResponse{}, domain.ErrInvalidStatus
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListDocumentResponse{}, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID.Int64()
	}

	page := pagination.Pagination{PageToken: strings.TrimSpace(req.PageToken), PageSize: int(req.PageSize)}
	if page.PageToken != "" {
		if _, err := pagination.DecodeCursor(page.PageToken); err != nil {
			return domain.ListDocumentResponse{}, err
		}
	}

	docs, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListDocumentResponse{}, err
	}

	docs, pageInfo := pagination.Paginate(docs, page.Limit(), func(doc *domain.Document) int64 { return doc.ID.Int64() })

	out := make([]domain.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		out = append(out, s.toResponse(*doc, nil))
	}

	resp := domain.ListDocumentResponse{Documents: out, PageInfo: pageInfo}
	return resp, nil
}

func (s *Service) PreviewTotals(ctx context.Context, req domain.PreviewTotalsRequest) (totals.DocumentTotals, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return totals.DocumentTotals{}, err
	}
	if err := validate.Struct(req); err != nil {
		return totals.DocumentTotals{}, mapValidationError(err)
	}

	settings, err := s.settings.Resolve(ctx, orgID)
	if err != nil {
		return totals.DocumentTotals{}, err
	}

	lines, _, err := buildLineItems(req.Items)
	if err != nil {
		return totals.DocumentTotals{}, err
	}
	indirect := settings.IndirectMaterials()
	if req.IndirectOverride != nil {
		indirect = overrideConfig(req.IndirectOverride)
	}
	return totals.Calculate(lines, indirect, s.billing.Get().TaxRate), nil
}

// applyContent recomputes the money snapshot of doc from items and the
// override, falling back to the account's indirect materials settings.
func (s *Service) applyContent(ctx context.Context, doc *domain.Document, inputs []domain.LineItemInput, override *domain.IndirectOverrideInput) ([]domain.DocumentItem, error) {
	lines, items, err := buildLineItems(inputs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].OrgID = doc.OrgID
		items[i].DocumentID = doc.ID
		items[i].CreatedAt = doc.UpdatedAt
	}

	doc.IndirectOverride = nil
	if override != nil {
		cfg := overrideConfig(override)
		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		doc.IndirectOverride = datatypes.JSON(raw)
	}

	if err := s.recompute(ctx, doc, lines); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) recompute(ctx context.Context, doc *domain.Document, lines []totals.LineItem) error {
	indirect, err := doc.Override()
	if err != nil {
		return err
	}
	if indirect == nil {
		settings, err := s.settings.Resolve(ctx, doc.OrgID)
		if err != nil {
			return err
		}
		cfg := settings.IndirectMaterials()
		indirect = &cfg
	}

	taxRate := s.billing.Get().TaxRate
	result := totals.Calculate(lines, *indirect, taxRate)
	doc.BaseSubtotal = result.BaseSubtotal
	doc.IndirectCharge = result.IndirectCharge
	doc.Subtotal = result.Subtotal
	doc.TaxRate = taxRate
	doc.TaxAmount = result.TaxAmount
	doc.Total = result.Total
	return nil
}

func (s *Service) nextNumber(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind domain.Kind, issueDate calendar.Date) (string, error) {
	issuedAt := issueDate.Time()
	seq, err := s.repo.NextSequence(ctx, tx, orgID, kind, format.SequencePeriod(issuedAt))
	if err != nil {
		return "", err
	}
	template := format.DefaultInvoiceNumberTemplate
	if kind == domain.KindEstimate {
		template = format.DefaultEstimateNumberTemplate
	}
	return format.FormatNumber(template, issuedAt, seq)
}

func (s *Service) loadDocument(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Document, []domain.DocumentItem, error) {
	doc, err := s.repo.FindByID(ctx, tx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, domain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, tx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, items, nil
}

func (s *Service) loadCustomerID(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidCustomer
	}
	customer, err := s.customerRepo.FindByID(ctx, tx, orgID, id)
	if err != nil {
		return 0, err
	}
	if customer == nil {
		return 0, domain.ErrInvalidCustomer
	}
	return customer.ID, nil
}

func (s *Service) resolveDates(issue, due *calendar.Date) (calendar.Date, *calendar.Date, error) {
	issueDate := s.today()
	if issue != nil && !issue.IsZero() {
		issueDate = *issue
	}
	if due == nil || due.IsZero() {
		return issueDate, nil, nil
	}
	if due.Before(issueDate) {
		return calendar.Date{}, nil, domain.ErrInvalidDueDate
	}
	dueDate := *due
	return issueDate, &dueDate, nil
}

func (s *Service) today() calendar.Date {
	return calendar.DateOf(s.clock.Now(), s.location)
}

func (s *Service) orgIDFromContext(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return orgID, nil
}

// itemScale is the fractional precision of stored quantities and rates.
const itemScale = 6

// buildLineItems keeps quantities and rates exactly as entered. Values finer
// than itemScale are refused: storing them rounded would give a document
// recomputed from its saved items different totals.
func buildLineItems(inputs []domain.LineItemInput) ([]totals.LineItem, []domain.DocumentItem, error) {
	lines := make([]totals.LineItem, 0, len(inputs))
	items := make([]domain.DocumentItem, 0, len(inputs))
	for i, input := range inputs {
		line := totals.LineItem{
			Description: strings.TrimSpace(input.Description),
			Quantity:    totals.ParseNonNegativeNumber(input.Quantity),
			Rate:        totals.ParseNonNegativeNumber(input.Rate),
		}
		if !fitsItemScale(line.Quantity) || !fitsItemScale(line.Rate) {
			return nil, nil, fmt.Errorf("item %d: %w", i+1, domain.ErrItemPrecision)
		}
		lines = append(lines, line)
		items = append(items, domain.DocumentItem{
			Position:    i + 1,
			Description: line.Description,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Amount:      totals.LineAmount(line),
		})
	}
	return lines, items, nil
}

func fitsItemScale(v decimal.Decimal) bool {
	return v.Equal(v.Round(itemScale))
}

func linesFromItems(items []domain.DocumentItem) []totals.LineItem {
	lines := make([]totals.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, totals.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}
	return lines
}

func overrideConfig(in *domain.IndirectOverrideInput) totals.IndirectMaterialsConfig {
	return totals.IndirectMaterialsConfig{
		Enabled: in.Enabled,
		Mode:    totals.NormalizeMode(in.Mode),
		Amount:  totals.ParseNonNegativeNumber(in.Amount).Round(2),
		Percent: totals.ParsePercent(in.Percent),
	}
}

func validStatus(status domain.Status) bool {
	switch status {
	case domain.StatusDraft, domain.StatusSent, domain.StatusPaid,
		domain.StatusAccepted, domain.StatusConverted, domain.StatusVoid:
		return true
	default:
		return false
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "Kind":
		return domain.ErrInvalidKind
	case "CustomerID":
		return domain.ErrInvalidCustomer
	default:
		return domain.ErrInvalidField
	}
}

// isNumberConflict reports a clash on (org_id, number). Drivers that do not
// name the index are assumed to have hit it, since public tokens are random.
func isNumberConflict(err error) bool {
	if !db.IsDuplicateKeyErr(err) {
		return false
	}
	name := db.DuplicateKeyConstraint(err)
	return name == "" || name == "ux_documents_org_number"
}
