package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/internal/orgcontext"
	"github.com/burton0621/barix-site-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	customer, err := s.build(orgID, req, time.Now().UTC())
	if err != nil {
		return domain.Customer{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer.created", zap.String("customer_id", customer.ID.String()), zap.String("org_id", orgID.String()))
	return customer, nil
}

func (s *Service) BulkCreate(ctx context.Context, reqs []domain.CreateCustomerRequest) ([]domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if len(reqs) == 0 {
		return []domain.Customer{}, nil
	}

	now := time.Now().UTC()
	rows := make([]*domain.Customer, 0, len(reqs))
	for _, req := range reqs {
		customer, err := s.build(orgID, req, now)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &customer)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.BulkInsert(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	s.log.Info("customer.bulk_created", zap.Int("count", len(out)), zap.String("org_id", orgID.String()))
	return out, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Customer{}, mapValidationError(err)
	}

	existing, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if existing == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		updated.Name = name
	}
	if req.Email != nil {
		updated.Email = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.AddressLine1 != nil {
		updated.AddressLine1 = strings.TrimSpace(*req.AddressLine1)
	}
	if req.City != nil {
		updated.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		updated.State = strings.TrimSpace(*req.State)
	}
	if req.PostalCode != nil {
		updated.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Metadata != nil {
		updated.Metadata = datatypes.JSONMap(req.Metadata)
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &updated); err != nil {
		return domain.Customer{}, err
	}
	return updated, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListCustomerResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListCustomerFilter{
		Name:        strings.ToLower(strings.TrimSpace(req.Name)),
		Email:       normalizeEmail(req.Email),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}

	page := pagination.Pagination{PageToken: strings.TrimSpace(req.PageToken), PageSize: int(req.PageSize)}
	if page.PageToken != "" {
		if _, err := pagination.DecodeCursor(page.PageToken); err != nil {
			return domain.ListCustomerResponse{}, err
		}
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter, page)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, pageInfo := pagination.Paginate(items, page.Limit(), func(customer *domain.Customer) int64 { return customer.ID.Int64() })

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	resp := domain.ListCustomerResponse{Customers: customers, PageInfo: pageInfo}

	return resp, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.ListAll(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) build(orgID snowflake.ID, req domain.CreateCustomerRequest, now time.Time) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}
	if err := validate.Struct(req); err != nil {
		return domain.Customer{}, mapValidationError(err)
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	return domain.Customer{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		Notes:        strings.TrimSpace(req.Notes),
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "Name":
		return domain.ErrInvalidName
	case "Email":
		return domain.ErrInvalidEmail
	default:
		return domain.ErrInvalidField
	}
}
