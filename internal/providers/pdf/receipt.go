package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptData is a paid invoice.
type ReceiptData struct {
	DocumentData
	DatePaid string
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt ReceiptData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newMaroto()

	m.AddRow(12,
		text.NewCol(12, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(16,
		col.New(6).Add(
			text.New("Invoice number: "+receipt.Number, props.Text{Top: 0}),
			text.New("Date paid: "+receipt.DatePaid, props.Text{Top: 4}),
		),
		col.New(6),
	)

	addParties(m, receipt.DocumentData)

	m.AddRow(15,
		text.NewCol(12, receipt.Total+" paid on "+receipt.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	addItems(m, receipt.Items)
	addTotals(m, receipt.DocumentData)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
