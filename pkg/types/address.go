package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingAddress is the delivery snapshot captured at order time. It is
// absent for in-store pickup orders and stored as jsonb.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// IsEmpty reports whether no address field carries a value.
func (a *ShippingAddress) IsEmpty() bool {
	if a == nil {
		return true
	}
	fields := []string{a.FullName, a.Address, a.City, a.Department, a.Phone, a.Email}
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// DeliveryMethod is the snapshot of the shipping option chosen at
// checkout. Not a foreign key: later price changes must not rewrite
// order history.
type DeliveryMethod struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Cost        decimal.Decimal `json:"cost"`
	Description string          `json:"description,omitempty"`
}
