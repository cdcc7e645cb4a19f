package orders

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mercaline/tienda-backend/pkg/enums"
	"github.com/mercaline/tienda-backend/pkg/numeric"
	"github.com/mercaline/tienda-backend/pkg/types"
)

// ItemInput is the wire shape of an order line item. Clients historically
// reference the product under three different keys (numeric id, catalog
// document id, or a nested product object), so every field stays loose
// here and Normalize resolves them into one ProductRef.
type ItemInput struct {
	ID                any               `json:"id,omitempty"`
	ProductID         any               `json:"product_id,omitempty"`
	DocumentID        string            `json:"documentId,omitempty"`
	ProductDocumentID string            `json:"product_document_id,omitempty"`
	Product           *ItemProductInput `json:"product,omitempty"`
	Name              string            `json:"name,omitempty"`
	Quantity          any               `json:"quantity"`
	Price             any               `json:"price"`
}

// ItemProductInput is the nested product object some clients embed
// instead of a flat reference.
type ItemProductInput struct {
	ID         any    `json:"id,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ProductRef is the canonical product reference every line item resolves
// to before any business logic runs. Empty means the item carries no
// catalog reference and is treated as a custom line item.
type ProductRef struct {
	ID         int64
	DocumentID string
}

// IsEmpty reports whether the item referenced no catalog product.
func (r ProductRef) IsEmpty() bool {
	return r.ID == 0 && r.DocumentID == ""
}

// Label returns the most specific identifier for error messages.
func (r ProductRef) Label() string {
	if r.DocumentID != "" {
		return r.DocumentID
	}
	return strconv.FormatInt(r.ID, 10)
}

// NormalizedItem is a line item after reference resolution and numeric
// coercion. Quantity and price are already safe for arithmetic.
type NormalizedItem struct {
	Ref      ProductRef
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// Normalize collapses the three reference forms into a ProductRef and
// coerces quantity/price. Malformed numerics become zero rather than
// failing the request.
func (i ItemInput) Normalize() NormalizedItem {
	ref := ProductRef{DocumentID: strings.TrimSpace(i.ProductDocumentID)}
	if ref.DocumentID == "" {
		ref.DocumentID = strings.TrimSpace(i.DocumentID)
	}
	ref.ID = int64(numeric.CoerceInt(i.ProductID))
	if ref.ID == 0 {
		ref.ID = int64(numeric.CoerceInt(i.ID))
	}

	name := strings.TrimSpace(i.Name)
	if i.Product != nil {
		if ref.IsEmpty() {
			ref.ID = int64(numeric.CoerceInt(i.Product.ID))
			ref.DocumentID = strings.TrimSpace(i.Product.DocumentID)
		}
		if name == "" {
			name = strings.TrimSpace(i.Product.Name)
		}
	}

	return NormalizedItem{
		Ref:      ref,
		Name:     name,
		Quantity: numeric.CoerceInt(i.Quantity),
		Price:    numeric.CoerceDecimal(i.Price),
	}
}

// CreateOrderInput is the order creation payload.
type CreateOrderInput struct {
	Items           []ItemInput            `json:"items"`
	DeliveryMethod  types.DeliveryMethod   `json:"delivery_method"`
	ShippingAddress *types.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Status          string                 `json:"status,omitempty"`
	Subtotal        any                    `json:"subtotal,omitempty"`
	Total           any                    `json:"total,omitempty"`
	TransactionID   *string                `json:"transaction_id,omitempty"`
	UserID          *string                `json:"user_id,omitempty"`
	CustomerNotes   *string                `json:"customer_notes,omitempty"`
}

// UpdateStatusInput mutates the business status of an order. An empty
// status snaps back to the configured default instead of blanking out.
type UpdateStatusInput struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
	TrackingURL    *string `json:"tracking_url,omitempty"`
}

// CourierEvent is the courier webhook payload after controller decoding.
type CourierEvent struct {
	DropiOrderID   string
	Status         string
	TrackingNumber *string
	TrackingURL    *string
}

// ListFilters narrows the order listing.
type ListFilters struct {
	UserID *string
	Status *enums.OrderStatus
	Limit  int
	Offset int
}
