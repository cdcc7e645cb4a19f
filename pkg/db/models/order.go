package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercaline/tienda-backend/pkg/enums"
	"github.com/mercaline/tienda-backend/pkg/types"
)

// Order is the persisted checkout result. Created once by the checkout
// flow; afterwards mutated only through the status transition functions
// and the supplier sync result folding. Never deleted in normal operation.
type Order struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentID string  `gorm:"column:document_id;uniqueIndex;not null"`
	UserID     *string `gorm:"column:user_id;index"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	DeliveryCost decimal.Decimal `gorm:"column:delivery_cost;type:numeric(14,2);not null;default:0"`
	Total        decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`

	Status         enums.OrderStatus    `gorm:"column:status;not null"`
	ShippingStatus enums.ShippingStatus `gorm:"column:shipping_status;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;not null;default:'efectivo'"`

	DeliveryMethod  types.DeliveryMethod   `gorm:"column:delivery_method;type:jsonb;serializer:json"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	TransactionID *string `gorm:"column:transaction_id;index"`
	// DropiOrderID holds the supplier shipment reference after a successful
	// sync. Composite ("{id}-1,{id}-2") when the order split into several
	// shipments.
	DropiOrderID   *string `gorm:"column:dropi_order_id;index"`
	TrackingNumber *string `gorm:"column:tracking_number"`
	TrackingURL    *string `gorm:"column:tracking_url"`

	CustomerNotes *string   `gorm:"column:customer_notes"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is the line-item snapshot captured at order time.
type OrderItem struct {
	ID      int64 `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID int64 `gorm:"column:order_id;not null;index"`
	// ProductID is nil for non-catalog/custom line items, which skip stock
	// validation on purpose.
	ProductID         *int64          `gorm:"column:product_id;index"`
	ProductDocumentID *string         `gorm:"column:product_document_id"`
	Name              string          `gorm:"column:name;not null"`
	Quantity          int             `gorm:"column:quantity;not null"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}
