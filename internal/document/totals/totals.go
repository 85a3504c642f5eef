// Package totals computes document money totals from line items.
//
// Every derived amount is rounded to cents on its own (half away from zero,
// which equals half-up for the non-negative values produced here), and the
// composite amounts are built from already-rounded parts:
//
//	baseSubtotal   = round(Σ quantity × rate)
//	indirectCharge = round(indirect surcharge)
//	subtotal       = baseSubtotal + indirectCharge
//	taxAmount      = round(subtotal × taxRate)
//	total          = subtotal + taxAmount
package totals

import (
	"strings"

	"github.com/shopspring/decimal"
)

type IndirectMode string

const (
	IndirectModeAmount  IndirectMode = "amount"
	IndirectModePercent IndirectMode = "percent"
)

// DefaultTaxRate is used when configuration does not provide one.
var DefaultTaxRate = decimal.RequireFromString("0.06")

var hundred = decimal.NewFromInt(100)

type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

type IndirectMaterialsConfig struct {
	Enabled bool            `json:"enabled"`
	Mode    IndirectMode    `json:"mode"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

type DocumentTotals struct {
	BaseSubtotal   decimal.Decimal `json:"base_subtotal"`
	IndirectCharge decimal.Decimal `json:"indirect_charge"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Calculate never fails: negative quantities, rates, amounts and tax rates
// count as zero.
func Calculate(items []LineItem, indirect IndirectMaterialsConfig, taxRate decimal.Decimal) DocumentTotals {
	base := decimal.Zero
	for _, item := range items {
		base = base.Add(nonNegative(item.Quantity).Mul(nonNegative(item.Rate)))
	}
	base = roundCents(base)

	charge := roundCents(IndirectCharge(base, indirect))
	subtotal := base.Add(charge)
	tax := roundCents(subtotal.Mul(nonNegative(taxRate)))

	return DocumentTotals{
		BaseSubtotal:   base,
		IndirectCharge: charge,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		Total:          subtotal.Add(tax),
	}
}

// IndirectCharge returns the unrounded surcharge for baseSubtotal. An enabled
// config with an unrecognised mode is treated as a flat amount.
func IndirectCharge(baseSubtotal decimal.Decimal, cfg IndirectMaterialsConfig) decimal.Decimal {
	if !cfg.Enabled {
		return decimal.Zero
	}
	if NormalizeMode(string(cfg.Mode)) == IndirectModePercent {
		return nonNegative(baseSubtotal).Mul(clampPercent(cfg.Percent)).Div(hundred)
	}
	return nonNegative(cfg.Amount)
}

func NormalizeMode(raw string) IndirectMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(IndirectModePercent)) {
		return IndirectModePercent
	}
	return IndirectModeAmount
}

// LineAmount is quantity × rate rounded to cents, as shown on a document line.
func LineAmount(item LineItem) decimal.Decimal {
	return roundCents(nonNegative(item.Quantity).Mul(nonNegative(item.Rate)))
}

func roundCents(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func clampPercent(v decimal.Decimal) decimal.Decimal {
	switch {
	case v.IsNegative():
		return decimal.Zero
	case v.GreaterThan(hundred):
		return hundred
	default:
		return v
	}
}
