package dropi

import "github.com/shopspring/decimal"

// OrderPayload is the shipment body sent to the supplier. One payload is
// produced per supplier group of an order; split shipments carry a
// composite IDOrder ("{orderId}-{n}").
type OrderPayload struct {
	IDOrder       string          `json:"id_order"`
	Name          string          `json:"name"`
	Surname       string          `json:"surname"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	Address       string          `json:"dir"`
	City          string          `json:"city"`
	Department    string          `json:"department"`
	Country       string          `json:"country"`
	PaymentMethod string          `json:"type_payment"`
	TotalOrder    decimal.Decimal `json:"total_order"`
	Notes         string          `json:"notes,omitempty"`
	Items         []OrderItem     `json:"items"`
}

// OrderItem is one product line inside a shipment payload.
type OrderItem struct {
	ProductID string          `json:"id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderResponse is the supplier acknowledgment for one shipment.
type OrderResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
	Message string `json:"message,omitempty"`
}

// Product is the supplier catalog entry used by catalog sync. Stock and
// QuantityAvailable are pointers so an absent field can be told apart
// from a genuine zero.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Stock             *int            `json:"stock"`
	QuantityAvailable *int            `json:"quantity_available"`
	SalePrice         decimal.Decimal `json:"sale_price"`
	SuggestedPrice    decimal.Decimal `json:"suggested_price"`
	MainImageURL      string          `json:"main_image_url"`
}

// Payment method vocabulary accepted by the supplier API.
const (
	PaymentCashOnDelivery = "CONTRAENTREGA"
	PaymentPrepaid        = "ANTICIPADO"
)
