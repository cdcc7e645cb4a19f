// Package numeric centralizes the tolerant coercion applied to client
// supplied quantities and prices. Storefront clients have historically sent
// numbers as strings (and occasionally garbage); the contract here is that
// malformed input coerces to zero instead of failing the request, trading
// strictness for resilience. Callers that need strict rejection must check
// the coerced value themselves.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceInt converts arbitrary JSON scalar input to an int.
// Unparseable or non-finite input yields 0.
func CoerceInt(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return CoerceInt(f)
		}
		return 0
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return CoerceInt(f)
		}
		return 0
	default:
		return 0
	}
}

// CoerceDecimal converts arbitrary JSON scalar input to a decimal.
// Unparseable or non-finite input yields zero.
func CoerceDecimal(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
		return decimal.Zero
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
		return decimal.Zero
	case decimal.Decimal:
		return v
	default:
		return decimal.Zero
	}
}
