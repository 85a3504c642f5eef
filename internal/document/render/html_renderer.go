package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"
)

const documentHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Document.Title}} {{.Document.Number}}</title>
  <style>
    :root {
      --primary: {{.Business.PrimaryColor}};
      --font: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 40px;
      font-family: var(--font);
      color: #1a1f36;
      background: #f7f9fc;
      -webkit-font-smoothing: antialiased;
    }
    .invoice-card {
      background: #ffffff;
      max-width: 760px;
      margin: 0 auto;
      padding: 60px;
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
      border-radius: 4px;
    }
    .header {
      display: flex;
      justify-content: space-between;
      margin-bottom: 40px;
    }
    .header-left h1 {
      margin: 0;
      font-size: 24px;
      font-weight: 700;
      color: #1a1f36;
    }
    .header-right {
      text-align: right;
      font-weight: 600;
      color: #8792a2;
      font-size: 16px;
    }

    .meta-grid {
      display: flex;
      justify-content: space-between;
      margin-bottom: 40px;
    }
    .col {
      flex: 1;
    }
    .label {
      font-size: 11px;
      text-transform: uppercase;
      color: #8792a2;
      margin-bottom: 6px;
      font-weight: 600;
      letter-spacing: 0.3px;
    }
    .value {
      font-size: 14px;
      line-height: 1.5;
      color: #1a1f36;
    }

    .amount-section {
      margin-bottom: 40px;
    }
    .amount-large {
      font-size: 32px;
      font-weight: 700;
      color: #1a1f36;
      margin-bottom: 4px;
    }
    .pay-link {
      font-size: 13px;
      color: #006aff;
      text-decoration: none;
      font-weight: 500;
    }

    table {
      width: 100%;
      border-collapse: collapse;
      margin-bottom: 30px;
    }
    th {
      text-align: left;
      text-transform: uppercase;
      font-size: 11px;
      color: #8792a2;
      border-bottom: 1px solid #e3e8ee;
      padding: 10px 0;
      font-weight: 600;
      letter-spacing: 0.3px;
    }
    td {
      padding: 16px 0;
      border-bottom: 1px solid #e3e8ee;
      font-size: 14px;
      color: #1a1f36;
      vertical-align: top;
    }
    .td-right { text-align: right; }

    .item-title { font-weight: 600; margin-bottom: 2px; }
    .item-sub { font-size: 12px; color: #697386; }

    .totals {
      width: 100%;
      display: flex;
      flex-direction: column;
      align-items: flex-end;
    }
    .total-row {
      display: flex;
      justify-content: space-between;
      width: 250px;
      padding: 6px 0;
      font-size: 14px;
    }
    .total-label { color: #697386; }
    .total-value { color: #1a1f36; text-align: right; font-weight: 500; }
    .total-final {
      border-top: 1px solid #e3e8ee;
      margin-top: 10px;
      padding-top: 10px;
      font-weight: 700;
      font-size: 16px;
      color: #1a1f36;
    }

    .footer {
      margin-top: 60px;
      font-size: 12px;
      color: #8792a2;
      border-top: 1px solid #e3e8ee;
      padding-top: 20px;
    }
    .status {
      display: inline-block;
      padding: 2px 8px;
      border-radius: 4px;
      font-size: 12px;
      font-weight: 600;
      background: #e3e8ee;
      color: #1a1f36;
      text-transform: uppercase;
    }
    .accept {
      display: inline-block;
      margin-top: 12px;
      padding: 10px 18px;
      background: var(--primary);
      color: #ffffff;
      border: 0;
      border-radius: 4px;
      font-weight: 600;
      cursor: pointer;
    }
  </style>
</head>
<body>
  <div class="invoice-card">
    <div class="header">
      <div class="header-left">
        <h1>{{.Document.Title}}</h1>
        <div class="label" style="margin-top: 12px;">{{.Document.Title}} number</div>
        <div class="value">{{.Document.Number}}</div>
      </div>
      <div class="header-right">
        {{.Business.Name}}
        <div style="margin-top: 8px;"><span class="status">{{.Document.Status}}</span></div>
      </div>
    </div>

    <div class="meta-grid">
      <div class="col">
        <div class="label">Bill to</div>
        <div class="value">
          <strong>{{.Customer.Name}}</strong><br>
          {{if .Customer.Email}}{{.Customer.Email}}<br>{{end}}
          {{range .Customer.AddressLines}}{{.}}<br>{{end}}
        </div>
      </div>
      <div class="col" style="flex: 0 0 200px;">
        {{if .Document.DueDate}}
        <div class="label">Date due</div>
        <div class="value">{{.Document.DueDate}}</div>
        {{end}}
        <div class="label" style="margin-top: 16px;">Date issued</div>
        <div class="value">{{.Document.IssueDate}}</div>
      </div>
    </div>

    <div class="amount-section">
      <div class="amount-large">{{.Document.Total}}</div>
      {{if .Document.DueDate}}<div class="value" style="color: #697386;">due {{.Document.DueDate}}</div>{{end}}
      {{if .Document.AcceptURL}}
      <form method="post" action="{{.Document.AcceptURL}}">
        <button type="submit" class="accept">Accept estimate</button>
      </form>
      {{end}}
    </div>

    <table>
      <thead>
        <tr>
          <th style="width: 50%;">Description</th>
          <th class="td-right">Qty</th>
          <th class="td-right">Rate</th>
          <th class="td-right">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td><div class="item-title">{{.Description}}</div></td>
          <td class="td-right">{{.Quantity}}</td>
          <td class="td-right">{{.Rate}}</td>
          <td class="td-right" style="font-weight: 500;">{{.Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="total-row">
        <span class="total-label">Subtotal</span>
        <span class="total-value">{{.Document.BaseSubtotal}}</span>
      </div>
      {{if .Document.IndirectCharge}}
      <div class="total-row">
        <span class="total-label">Indirect materials</span>
        <span class="total-value">{{.Document.IndirectCharge}}</span>
      </div>
      {{end}}
      <div class="total-row">
        <span class="total-label">Tax ({{.Document.TaxRate}})</span>
        <span class="total-value">{{.Document.TaxAmount}}</span>
      </div>
      <div class="total-row total-final">
        <span class="total-label" style="color: #1a1f36;">Total</span>
        <span class="total-value">{{.Document.Total}}</span>
      </div>
    </div>

    {{if .Document.Notes}}
    <div class="footer">{{.Document.Notes}}</div>
    {{end}}
    {{if .Business.ReplyTo}}
    <div class="footer">Questions? Contact <a href="mailto:{{.Business.ReplyTo}}">{{.Business.ReplyTo}}</a></div>
    {{end}}
  </div>
</body>
</html>
`

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}

type RenderInput struct {
	Business BusinessView
	Document DocumentView
	Customer CustomerView
	Items    []LineItemView
}

type BusinessView struct {
	Name         string
	ReplyTo      string
	PrimaryColor string
}

// DocumentView holds display-ready values; amounts are already formatted.
type DocumentView struct {
	Title          string
	Number         string
	Status         string
	IssueDate      string
	DueDate        string
	BaseSubtotal   string
	IndirectCharge string
	TaxRate        string
	TaxAmount      string
	Total          string
	Notes          string
	AcceptURL      string
}

type CustomerView struct {
	Name         string
	Email        string
	AddressLines []string
}

type LineItemView struct {
	Description string
	Quantity    string
	Rate        string
	Amount      string
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("document").Parse(documentHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	input.Business.PrimaryColor = sanitizeColor(input.Business.PrimaryColor)
	if input.Business.Name == "" {
		input.Business.Name = "Barix Billing"
	}
	if input.Document.Title == "" {
		input.Document.Title = "Invoice"
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func sanitizeColor(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "#111827"
	}
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return "#111827"
}
