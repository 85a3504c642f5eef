package service

import (
	"context"
	"io"

	"github.com/burton0621/barix-site-sub000/internal/clientimport/domain"
	customerdomain "github.com/burton0621/barix-site-sub000/internal/customer/domain"
	"github.com/burton0621/barix-site-sub000/internal/observability/metrics"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var validate = validator.New()

type Params struct {
	fx.In

	Log       *zap.Logger
	Customers customerdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	customers customerdomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("clientimport.service"),
		customers: p.Customers,
		metrics:   p.Metrics,
	}
}

// Preview parses the upload and classifies every usable row against the
// account's current clients. Nothing is stored.
func (s *Service) Preview(ctx context.Context, filename string, r io.Reader) (domain.PreviewResponse, error) {
	raws, err := domain.ParseFile(filename, r)
	if err != nil {
		return domain.PreviewResponse{}, err
	}
	rows := domain.NormalizeAll(raws)
	if len(rows) == 0 {
		return domain.PreviewResponse{}, domain.ErrNoUsableRows
	}

	classified, err := s.classify(ctx, rows)
	if err != nil {
		return domain.PreviewResponse{}, err
	}

	resp := domain.PreviewResponse{Rows: classified, Total: len(classified)}
	for _, c := range classified {
		switch c.Status {
		case domain.StatusImportable:
			resp.Importable++
		case domain.StatusDuplicate:
			resp.Duplicates++
		case domain.StatusInvalid:
			resp.Invalid++
		}
	}

	s.log.Info("clientimport.previewed",
		zap.String("filename", filename),
		zap.Int("rows", len(raws)),
		zap.Int("usable", resp.Total),
		zap.Int("importable", resp.Importable),
		zap.Int("duplicates", resp.Duplicates),
	)
	return resp, nil
}

// Confirm re-checks the rows against the current store, since clients may have
// been added after the preview, and inserts the importable ones.
func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) (domain.ConfirmResponse, error) {
	if len(req.Rows) > domain.MaxRows {
		return domain.ConfirmResponse{}, domain.ErrTooManyRows
	}

	rows := make([]domain.ImportRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		row = domain.Renormalize(row)
		if row.Usable() {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return domain.ConfirmResponse{}, domain.ErrNoUsableRows
	}

	classified, err := s.classify(ctx, rows)
	if err != nil {
		return domain.ConfirmResponse{}, err
	}

	resp := domain.ConfirmResponse{
		Inserted: []customerdomain.Customer{},
		Skipped:  []domain.Classified{},
	}
	creates := make([]customerdomain.CreateCustomerRequest, 0, len(classified))
	for _, c := range classified {
		if !c.Importable() {
			resp.Skipped = append(resp.Skipped, c)
			continue
		}
		creates = append(creates, toCreateRequest(c.Row))
	}
	if len(creates) == 0 {
		return resp, nil
	}

	inserted, err := s.customers.BulkCreate(ctx, creates)
	if err != nil {
		return domain.ConfirmResponse{}, err
	}
	resp.Inserted = inserted

	s.metrics.RecordClientsImported(ctx, len(inserted))
	s.log.Info("clientimport.confirmed",
		zap.Int("inserted", len(inserted)),
		zap.Int("skipped", len(resp.Skipped)),
	)
	return resp, nil
}

func (s *Service) classify(ctx context.Context, rows []domain.ImportRow) ([]domain.Classified, error) {
	existing, err := s.customers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	known := make([]domain.ImportRow, 0, len(existing))
	for _, c := range existing {
		known = append(known, domain.Normalize(domain.RawRow{
			Name:         c.Name,
			Email:        c.Email,
			Phone:        c.Phone,
			AddressLine1: c.AddressLine1,
			PostalCode:   c.PostalCode,
		}))
	}

	return domain.ClassifyValidated(rows, known, invalidRow), nil
}

func invalidRow(row domain.ImportRow) string {
	if row.Email != "" && validate.Var(row.Email, "email") != nil {
		return domain.ReasonInvalidEmail
	}
	return ""
}

// toCreateRequest names a row without a name after its email or phone, since
// clients always carry a display name.
func toCreateRequest(row domain.ImportRow) customerdomain.CreateCustomerRequest {
	name := row.Name
	if name == "" {
		name = row.Email
	}
	if name == "" {
		name = row.Phone
	}
	return customerdomain.CreateCustomerRequest{
		Name:         name,
		Email:        row.Email,
		Phone:        row.Phone,
		AddressLine1: row.AddressLine1,
		City:         row.City,
		State:        row.State,
		PostalCode:   row.PostalCode,
		Notes:        row.Notes,
		Metadata:     map[string]any{"source": "import"},
	}
}
