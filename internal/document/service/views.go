package service

import (
	"context"
	"strings"

	"github.com/burton0621/barix-site-sub000/internal/document/domain"
	"github.com/burton0621/barix-site-sub000/internal/document/format"
	"github.com/burton0621/barix-site-sub000/internal/document/render"
	"github.com/burton0621/barix-site-sub000/internal/providers/pdf"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetPublic resolves a client-facing token. Drafts are never public.
func (s *Service) GetPublic(ctx context.Context, token string) (domain.PublicView, error) {
	return s.loadPublic(ctx, s.db, token)
}

func (s *Service) loadPublic(ctx context.Context, tx *gorm.DB, token string) (domain.PublicView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.PublicView{}, domain.ErrNotFound
	}
	doc, err := s.repo.FindByPublicToken(ctx, tx, token)
	if err != nil {
		return domain.PublicView{}, err
	}
	if doc == nil || doc.Status == domain.StatusDraft {
		return domain.PublicView{}, domain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, tx, doc.OrgID, doc.ID)
	if err != nil {
		return domain.PublicView{}, err
	}
	doc.Items = items

	customer, err := s.customerRepo.FindByID(ctx, tx, doc.OrgID, doc.CustomerID)
	if err != nil {
		return domain.PublicView{}, err
	}
	if customer == nil {
		return domain.PublicView{}, domain.ErrNotFound
	}

	settings, err := s.settings.Resolve(ctx, doc.OrgID)
	if err != nil {
		return domain.PublicView{}, err
	}

	return domain.PublicView{
		Document:     *doc,
		Customer:     *customer,
		BusinessName: settings.BusinessName,
		ReplyTo:      settings.ReplyToEmail,
	}, nil
}

func (s *Service) RenderPublicHTML(ctx context.Context, token string) (string, error) {
	view, err := s.GetPublic(ctx, token)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderHTML(buildRenderInput(view, s.acceptURL(view.Document)))
}

// AcceptEstimate records the client's acceptance. Accepting twice is a no-op.
func (s *Service) AcceptEstimate(ctx context.Context, token string) (domain.PublicView, error) {
	var view domain.PublicView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		view, err = s.loadPublic(ctx, tx, token)
		if err != nil {
			return err
		}
		doc := &view.Document
		if doc.Kind != domain.KindEstimate {
			return domain.ErrInvalidKind
		}
		if doc.Status == domain.StatusAccepted {
			return nil
		}
		if doc.Status != domain.StatusSent {
			return domain.ErrInvalidTransition
		}
		doc.Status = domain.StatusAccepted
		doc.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, doc)
	})
	if err != nil {
		return domain.PublicView{}, err
	}

	s.log.Info("document.accepted",
		zap.String("document_id", view.Document.ID.String()),
		zap.String("org_id", view.Document.OrgID.String()),
	)
	return view, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) (domain.PDFResponse, error) {
	orgID, err := s.orgIDFromContext(ctx)
	if err != nil {
		return domain.PDFResponse{}, err
	}
	docID, err := parseID(id)
	if err != nil {
		return domain.PDFResponse{}, err
	}

	doc, items, err := s.loadDocument(ctx, s.db, orgID, docID)
	if err != nil {
		return domain.PDFResponse{}, err
	}
	doc.Items = items

	customer, err := s.customerRepo.FindByID(ctx, s.db, orgID, doc.CustomerID)
	if err != nil {
		return domain.PDFResponse{}, err
	}
	if customer == nil {
		return domain.PDFResponse{}, domain.ErrInvalidCustomer
	}
	settings, err := s.settings.Resolve(ctx, orgID)
	if err != nil {
		return domain.PDFResponse{}, err
	}

	data := buildPDFData(domain.PublicView{
		Document:     *doc,
		Customer:     *customer,
		BusinessName: settings.BusinessName,
		ReplyTo:      settings.ReplyToEmail,
	})

	if doc.Status == domain.StatusPaid && doc.PaidAt != nil {
		content, err := s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
			DocumentData: data,
			DatePaid:     doc.PaidAt.In(s.location).Format("2006-01-02"),
		})
		if err != nil {
			return domain.PDFResponse{}, err
		}
		return domain.PDFResponse{Filename: pdfFilename("receipt", doc.Number, customer.Name), Content: content}, nil
	}

	content, err := s.pdf.GenerateDocument(ctx, data)
	if err != nil {
		return domain.PDFResponse{}, err
	}
	return domain.PDFResponse{Filename: pdfFilename("", doc.Number, customer.Name), Content: content}, nil
}

func (s *Service) publicURL(token string) string {
	return s.baseURL + domain.PublicPath(token)
}

func (s *Service) acceptURL(doc domain.Document) string {
	if doc.Kind != domain.KindEstimate || doc.Status != domain.StatusSent {
		return ""
	}
	return domain.PublicPath(doc.PublicToken) + "/accept"
}

func (s *Service) toResponse(doc domain.Document, items []domain.DocumentItem) domain.DocumentResponse {
	resp := domain.DocumentResponse{
		ID:             doc.ID.String(),
		OrganizationID: doc.OrgID.String(),
		CustomerID:     doc.CustomerID.String(),
		Kind:           doc.Kind,
		Status:         doc.Status,
		Number:         doc.Number,
		PublicURL:      s.publicURL(doc.PublicToken),
		IssueDate:      doc.IssueDate,
		DueDate:        doc.DueDate,
		Notes:          doc.Notes,
		Totals:         doc.Totals(),
		TaxRate:        doc.TaxRate.String(),
		SentAt:         doc.SentAt,
		PaidAt:         doc.PaidAt,
		VoidedAt:       doc.VoidedAt,
		LastReminderAt: doc.LastReminderAt,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if override, err := doc.Override(); err == nil {
		resp.IndirectOverride = override
	} else {
		s.log.Warn("document.override_unreadable", zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	if doc.ConvertedFromID != nil {
		resp.ConvertedFromID = doc.ConvertedFromID.String()
	}
	for _, item := range items {
		resp.Items = append(resp.Items, domain.ItemResponse{
			ID:          item.ID.String(),
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Rate:        item.Rate.StringFixed(format.RateScale(item.Rate)),
			Amount:      item.Amount.StringFixed(2),
		})
	}
	return resp
}

func documentTitle(kind domain.Kind) string {
	if kind == domain.KindEstimate {
		return "Estimate"
	}
	return "Invoice"
}

func addressLines(view domain.PublicView) []string {
	var lines []string
	if line := strings.TrimSpace(view.Customer.AddressLine1); line != "" {
		lines = append(lines, line)
	}
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(view.Customer.City, view.Customer.State), ", ") + " " + view.Customer.PostalCode)
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	return lines
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func buildRenderInput(view domain.PublicView, acceptURL string) render.RenderInput {
	doc := view.Document
	input := render.RenderInput{
		Business: render.BusinessView{
			Name:    view.BusinessName,
			ReplyTo: view.ReplyTo,
		},
		Document: render.DocumentView{
			Title:        documentTitle(doc.Kind),
			Number:       doc.Number,
			Status:       string(doc.Status),
			IssueDate:    doc.IssueDate.String(),
			BaseSubtotal: format.Money(doc.BaseSubtotal),
			TaxRate:      format.Percent(doc.TaxRate),
			TaxAmount:    format.Money(doc.TaxAmount),
			Total:        format.Money(doc.Total),
			Notes:        doc.Notes,
			AcceptURL:    acceptURL,
		},
		Customer: render.CustomerView{
			Name:         view.Customer.Name,
			Email:        view.Customer.Email,
			AddressLines: addressLines(view),
		},
	}
	if doc.DueDate != nil {
		input.Document.DueDate = doc.DueDate.String()
	}
	if doc.IndirectCharge.IsPositive() {
		input.Document.IndirectCharge = format.Money(doc.IndirectCharge)
	}
	for _, item := range doc.Items {
		input.Items = append(input.Items, render.LineItemView{
			Description: item.Description,
			Quantity:    format.Quantity(item.Quantity),
			Rate:        format.Rate(item.Rate),
			Amount:      format.Money(item.Amount),
		})
	}
	return input
}

func buildPDFData(view domain.PublicView) pdf.DocumentData {
	doc := view.Document
	data := pdf.DocumentData{
		Title:         documentTitle(doc.Kind),
		Number:        doc.Number,
		IssueDate:     doc.IssueDate.String(),
		BusinessName:  view.BusinessName,
		BusinessEmail: view.ReplyTo,
		BillToName:    view.Customer.Name,
		BillToAddress: strings.Join(addressLines(view), ", "),
		BillToEmail:   view.Customer.Email,
		BaseSubtotal:  format.Money(doc.BaseSubtotal),
		TaxLabel:      "Tax (" + format.Percent(doc.TaxRate) + ")",
		TaxAmount:     format.Money(doc.TaxAmount),
		Total:         format.Money(doc.Total),
		Notes:         doc.Notes,
	}
	if doc.DueDate != nil {
		data.DueDate = doc.DueDate.String()
	}
	if doc.Kind == domain.KindInvoice && doc.Status != domain.StatusPaid {
		data.AmountDue = format.Money(doc.Total)
	}
	if doc.IndirectCharge.IsPositive() {
		data.IndirectCharge = format.Money(doc.IndirectCharge)
	}
	for _, item := range doc.Items {
		data.Items = append(data.Items, pdf.LineItem{
			Description: item.Description,
			Quantity:    format.Quantity(item.Quantity),
			Rate:        format.Rate(item.Rate),
			Amount:      format.Money(item.Amount),
		})
	}
	return data
}

// pdfFilename builds an ASCII-safe attachment name such as
// inv-202406-00001-ann-smith.pdf.
func pdfFilename(prefix, number, customerName string) string {
	name := slug.Make(strings.TrimSpace(prefix + " " + number + " " + customerName))
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
