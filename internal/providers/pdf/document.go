package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// DocumentData is a fully formatted invoice or estimate. Amounts are display
// strings; the provider does no arithmetic.
type DocumentData struct {
	Title     string
	Number    string
	IssueDate string
	DueDate   string

	BusinessName  string
	BusinessEmail string

	BillToName    string
	BillToAddress string
	BillToEmail   string

	Items []LineItem

	BaseSubtotal   string
	IndirectLabel  string
	IndirectCharge string
	TaxLabel       string
	TaxAmount      string
	Total          string
	AmountDue      string

	Notes string
}

type LineItem struct {
	Description string
	Quantity    string
	Rate        string
	Amount      string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateDocument(ctx context.Context, data DocumentData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data.Title == "" {
		data.Title = "Invoice"
	}

	m := newMaroto()

	m.AddRow(12,
		text.NewCol(12, data.Title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	meta := col.New(6).Add(
		text.New(data.Title+" number: "+data.Number, props.Text{Top: 0}),
		text.New("Date of issue: "+data.IssueDate, props.Text{Top: 4}),
	)
	if data.DueDate != "" {
		meta.Add(text.New("Date due: "+data.DueDate, props.Text{Top: 8}))
	}
	m.AddRow(16, meta, col.New(6))

	addParties(m, data)

	if data.AmountDue != "" {
		m.AddRow(15,
			text.NewCol(12, data.AmountDue+" due "+data.DueDate, props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Top:   5,
			}),
		)
	}

	addItems(m, data.Items)
	addTotals(m, data)

	if data.Notes != "" {
		m.AddRow(20,
			text.NewCol(12, data.Notes, props.Text{Size: 9, Top: 6}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func newMaroto() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func addParties(m core.Maroto, data DocumentData) {
	m.AddRow(30,
		col.New(6).Add(
			text.New(data.BusinessName, props.Text{Style: fontstyle.Bold}),
			text.New(data.BusinessEmail, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(data.BillToName, props.Text{Top: 5}),
			text.New(data.BillToAddress, props.Text{Top: 9}),
			text.New(data.BillToEmail, props.Text{Top: 18}),
		),
	)
}

func addItems(m core.Maroto, items []LineItem) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range items {
		m.AddRow(10,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Rate, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addTotals(m core.Maroto, data DocumentData) {
	totalRow(m, "Subtotal", data.BaseSubtotal, false)
	if data.IndirectCharge != "" {
		label := data.IndirectLabel
		if label == "" {
			label = "Indirect materials"
		}
		totalRow(m, label, data.IndirectCharge, false)
	}
	taxLabel := data.TaxLabel
	if taxLabel == "" {
		taxLabel = "Tax"
	}
	totalRow(m, taxLabel, data.TaxAmount, false)
	totalRow(m, "Total", data.Total, true)
}

func totalRow(m core.Maroto, label, value string, bold bool) {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, label, props.Text{Size: 9, Style: style}),
		text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
	)
}
