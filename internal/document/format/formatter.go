package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

const (
	DefaultInvoiceNumberTemplate  = "INV-{YYYY}{MM}-{SEQ5}"
	DefaultEstimateNumberTemplate = "EST-{YYYY}{MM}-{SEQ5}"
)

// SequencePeriod is the numbering period a document issued at issuedAt
// draws its sequence from. Sequences restart every month.
func SequencePeriod(issuedAt time.Time) string {
	return issuedAt.Format("200601")
}

// FormatNumber formats a human-readable document number from a template,
// the issue date and a per-period sequence. It has no side effects.
func FormatNumber(
	template string,
	issuedAt time.Time,
	seq int64,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("document number template is empty")
	}

	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}

	out := template

	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in document number format: %s", out)
	}

	return out, nil
}

// Money renders an amount as US dollars with thousands separators.
func Money(v decimal.Decimal) string {
	return dollars(v.Round(2), 2)
}

// Rate renders a unit price. It shows cents, plus any sub-cent digits the
// rate carries: 0.125 → $0.125.
func Rate(v decimal.Decimal) string {
	return dollars(v, RateScale(v))
}

// RateScale is the number of decimals needed to show v without loss, at
// least two.
func RateScale(v decimal.Decimal) int32 {
	_, frac, _ := strings.Cut(v.String(), ".")
	return max(int32(len(frac)), 2)
}

func dollars(v decimal.Decimal, places int32) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	raw := v.StringFixed(places)
	whole, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// Quantity trims trailing zeros: 2.500 → 2.5, 3.000 → 3.
func Quantity(v decimal.Decimal) string {
	return v.String()
}

// Percent renders a tax rate fraction as a percentage: 0.06 → 6%.
func Percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).String() + "%"
}
