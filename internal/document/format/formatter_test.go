package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	issued := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

	got, err := FormatNumber(DefaultInvoiceNumberTemplate, issued, 7)
	require.NoError(t, err)
	assert.Equal(t, "INV-202406-00007", got)

	got, err = FormatNumber(DefaultEstimateNumberTemplate, issued, 123456)
	require.NoError(t, err)
	assert.Equal(t, "EST-202406-123456", got)

	got, err = FormatNumber("{YY}{MM}{DD}-{SEQ}", issued, 12)
	require.NoError(t, err)
	assert.Equal(t, "240603-12", got)

	assert.Equal(t, "202406", SequencePeriod(issued))
}

func TestFormatNumberErrors(t *testing.T) {
	issued := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

	_, err := FormatNumber("", issued, 1)
	assert.Error(t, err)

	_, err = FormatNumber(DefaultInvoiceNumberTemplate, issued, 0)
	assert.Error(t, err)

	_, err = FormatNumber("INV-{SEQX}", issued, 1)
	assert.Error(t, err)
}

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"0":         "$0.00",
		"145.75":    "$145.75",
		"1234.5":    "$1,234.50",
		"1234567.8": "$1,234,567.80",
		"999.999":   "$1,000.00",
		"-12.3":     "-$12.30",
	}
	for in, want := range cases {
		assert.Equal(t, want, Money(decimal.RequireFromString(in)), in)
	}
}

func TestRateKeepsSubCentDigits(t *testing.T) {
	cases := map[string]string{
		"50":       "$50.00",
		"0.125":    "$0.125",
		"0.125000": "$0.125",
		"1200.5":   "$1,200.50",
		"0.000001": "$0.000001",
	}
	for in, want := range cases {
		assert.Equal(t, want, Rate(decimal.RequireFromString(in)), in)
	}
}

func TestQuantityAndPercent(t *testing.T) {
	assert.Equal(t, "2.5", Quantity(decimal.RequireFromString("2.500")))
	assert.Equal(t, "3", Quantity(decimal.RequireFromString("3.000")))
	assert.Equal(t, "6%", Percent(decimal.RequireFromString("0.06")))
	assert.Equal(t, "8.25%", Percent(decimal.RequireFromString("0.0825")))
}
