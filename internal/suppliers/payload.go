package suppliers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mercaline/tienda-backend/pkg/db/models"
	"github.com/mercaline/tienda-backend/pkg/dropi"
	"github.com/mercaline/tienda-backend/pkg/enums"
	"github.com/mercaline/tienda-backend/pkg/types"
)

// Fallback values substituted for missing customer fields. The supplier
// API rejects empty required fields, so a degraded order still ships.
const (
	fallbackName       = "Cliente"
	fallbackSurname    = "General"
	fallbackPhone      = "0000000000"
	fallbackEmail      = "clientes@tienda.com.co"
	fallbackAddress    = "Sin direccion"
	fallbackCity       = "Bogota"
	fallbackDepartment = "Cundinamarca"
	countryColombia    = "Colombia"
)

// shipmentItem pairs an order line with its resolved catalog product.
type shipmentItem struct {
	line    models.OrderItem
	product *models.Product
}

// shipment is one supplier group of an order. Every shipment dispatches
// independently.
type shipment struct {
	supplierID string
	items      []shipmentItem
}

func fallback(value, substitute string) string {
	if strings.TrimSpace(value) == "" {
		return substitute
	}
	return strings.TrimSpace(value)
}

// splitFullName separates a full name into name and surname for the
// supplier payload. A single token becomes the name with the fallback
// surname.
func splitFullName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return fallbackName, fallbackSurname
	case 1:
		return parts[0], fallbackSurname
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// shipmentRef builds the external order reference. A single shipment uses
// the plain order id; split shipments are numbered from 1 so the supplier
// and later reconciliation can tell them apart.
func shipmentRef(orderID int64, index, total int) string {
	if total <= 1 {
		return strconv.FormatInt(orderID, 10)
	}
	return fmt.Sprintf("%d-%d", orderID, index+1)
}

// mapPaymentMethod translates the local vocabulary to the supplier's.
// Anything not explicitly prepaid ships cash on delivery.
func mapPaymentMethod(method enums.PaymentMethod) string {
	if method.IsPrepaid() {
		return dropi.PaymentPrepaid
	}
	return dropi.PaymentCashOnDelivery
}

// buildPayload assembles one shipment's supplier payload. The order-level
// delivery cost is charged entirely to the first shipment, folded into
// its first item's unit price rather than sent as a separate line.
func buildPayload(order *models.Order, ship shipment, index, total int) dropi.OrderPayload {
	address := order.ShippingAddress
	if address == nil {
		address = &types.ShippingAddress{}
	}
	name, surname := splitFullName(address.FullName)

	items := make([]dropi.OrderItem, 0, len(ship.items))
	for _, item := range ship.items {
		price := item.line.Price
		entry := dropi.OrderItem{
			Name:     item.line.Name,
			Quantity: item.line.Quantity,
			Price:    price,
		}
		if item.product != nil {
			if item.product.DropiID != nil {
				entry.ProductID = *item.product.DropiID
			}
			if item.product.SupplierSKU != nil {
				entry.SKU = *item.product.SupplierSKU
			}
		}
		items = append(items, entry)
	}

	if index == 0 && order.DeliveryCost.IsPositive() && len(items) > 0 {
		items[0].Price = items[0].Price.Add(order.DeliveryCost)
	}

	totalOrder := decimal.Zero
	for _, item := range items {
		totalOrder = totalOrder.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	notes := ""
	if order.CustomerNotes != nil {
		notes = *order.CustomerNotes
	}

	return dropi.OrderPayload{
		IDOrder:       shipmentRef(order.ID, index, total),
		Name:          fallback(name, fallbackName),
		Surname:       fallback(surname, fallbackSurname),
		Phone:         fallback(address.Phone, fallbackPhone),
		Email:         fallback(address.Email, fallbackEmail),
		Address:       fallback(address.Address, fallbackAddress),
		City:          fallback(address.City, fallbackCity),
		Department:    fallback(address.Department, fallbackDepartment),
		Country:       countryColombia,
		PaymentMethod: mapPaymentMethod(order.PaymentMethod),
		TotalOrder:    totalOrder,
		Notes:         notes,
		Items:         items,
	}
}
