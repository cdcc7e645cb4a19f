package numeric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil", nil, 0},
		{"int", 3, 3},
		{"float", 4.0, 4},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
		{"numeric string", "7", 7},
		{"float string", "2.0", 2},
		{"garbage string", "dos", 0},
		{"empty string", "  ", 0},
		{"json number", json.Number("12"), 12},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		if got := CoerceInt(tt.in); got != tt.want {
			t.Fatalf("%s: CoerceInt(%v) = %d, want %d", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestCoerceDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "0"},
		{"float", 19900.5, "19900.5"},
		{"nan", math.NaN(), "0"},
		{"string", "45000", "45000"},
		{"garbage", "gratis", "0"},
		{"json number", json.Number("12.50"), "12.5"},
		{"decimal passthrough", decimal.NewFromInt(5), "5"},
	}
	for _, tt := range tests {
		got := CoerceDecimal(tt.in)
		if got.String() != tt.want {
			t.Fatalf("%s: CoerceDecimal(%v) = %s, want %s", tt.name, tt.in, got, tt.want)
		}
	}
}
