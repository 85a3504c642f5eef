package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	html, err := NewRenderer().RenderHTML(RenderInput{
		Business: BusinessView{Name: "Oak Roofing", ReplyTo: "owner@oak.test"},
		Document: DocumentView{
			Title:          "Invoice",
			Number:         "INV-202406-00001",
			Status:         "sent",
			IssueDate:      "2024-06-01",
			DueDate:        "2024-06-15",
			BaseSubtotal:   "$125.00",
			IndirectCharge: "$12.50",
			TaxRate:        "6%",
			TaxAmount:      "$8.25",
			Total:          "$145.75",
		},
		Customer: CustomerView{Name: "Ann <b>Smith</b>", AddressLines: []string{"12 Oak St"}},
		Items:    []LineItemView{{Description: "Labor", Quantity: "2", Rate: "$50.00", Amount: "$100.00"}},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "INV-202406-00001")
	assert.Contains(t, html, "$145.75")
	assert.Contains(t, html, "Indirect materials")
	assert.Contains(t, html, "12 Oak St")
	assert.Contains(t, html, "Ann &lt;b&gt;Smith&lt;/b&gt;")
	assert.NotContains(t, html, "Accept estimate")
}

func TestRenderHTMLEstimateAcceptAndDefaults(t *testing.T) {
	html, err := NewRenderer().RenderHTML(RenderInput{
		Business: BusinessView{PrimaryColor: "red;}body{display:none"},
		Document: DocumentView{Title: "Estimate", Number: "EST-202406-00002", AcceptURL: "/public/documents/tok/accept"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Accept estimate")
	assert.Contains(t, html, "Barix Billing")
	assert.Contains(t, html, "#111827")
	assert.NotContains(t, html, "Indirect materials")
}
