package totals

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var numberCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// ParseNonNegativeNumber coerces form and JSON input to a non-negative
// decimal. NaN, infinities, negatives, nil and anything unparseable become 0.
func ParseNonNegativeNumber(v any) decimal.Decimal {
	var d decimal.Decimal
	switch typed := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = typed
	case *decimal.Decimal:
		if typed == nil {
			return decimal.Zero
		}
		d = *typed
	case string:
		return parseString(typed)
	case *string:
		if typed == nil {
			return decimal.Zero
		}
		return parseString(*typed)
	case json.Number:
		return parseString(typed.String())
	case float64:
		return fromFloat(typed)
	case *float64:
		if typed == nil {
			return decimal.Zero
		}
		return fromFloat(*typed)
	case float32:
		return fromFloat(float64(typed))
	case int:
		d = decimal.NewFromInt(int64(typed))
	case *int:
		if typed == nil {
			return decimal.Zero
		}
		d = decimal.NewFromInt(int64(*typed))
	case int8:
		d = decimal.NewFromInt(int64(typed))
	case int16:
		d = decimal.NewFromInt(int64(typed))
	case int32:
		d = decimal.NewFromInt(int64(typed))
	case int64:
		d = decimal.NewFromInt(typed)
	case *int64:
		if typed == nil {
			return decimal.Zero
		}
		d = decimal.NewFromInt(*typed)
	case uint:
		d = decimal.NewFromUint64(uint64(typed))
	case uint8:
		d = decimal.NewFromUint64(uint64(typed))
	case uint16:
		d = decimal.NewFromUint64(uint64(typed))
	case uint32:
		d = decimal.NewFromUint64(uint64(typed))
	case uint64:
		d = decimal.NewFromUint64(typed)
	default:
		return decimal.Zero
	}
	return nonNegative(d)
}

// ParsePercent is ParseNonNegativeNumber clamped to [0, 100].
func ParsePercent(v any) decimal.Decimal {
	return clampPercent(ParseNonNegativeNumber(v))
}

func parseString(raw string) decimal.Decimal {
	cleaned := numberCleaner.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(d)
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
