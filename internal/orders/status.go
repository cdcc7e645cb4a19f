package orders

import (
	"strings"

	"github.com/mercaline/tienda-backend/pkg/enums"
)

// The status rules live here as pure functions so every driver (creation
// defaulting, courier webhooks, payment webhooks, manual resync) shares
// one transition table instead of scattering conditionals.

// NormalizeStatus coerces an omitted or blank business status to the
// deployment default. A status is never allowed to become empty once set.
func NormalizeStatus(raw string, fallback enums.OrderStatus) enums.OrderStatus {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fallback
	}
	status, err := enums.ParseOrderStatus(value)
	if err != nil {
		return fallback
	}
	return status
}

// courierVocabulary maps the courier's wire terms (Spanish and English
// variants both occur in practice) to the local shipping status axis.
var courierVocabulary = map[string]enums.ShippingStatus{
	"despachado":  enums.ShippingStatusShipped,
	"shipped":     enums.ShippingStatusShipped,
	"entregado":   enums.ShippingStatusDelivered,
	"delivered":   enums.ShippingStatusDelivered,
	"en_transito": enums.ShippingStatusInTransit,
	"en transito": enums.ShippingStatusInTransit,
	"in_transit":  enums.ShippingStatusInTransit,
	"devuelto":    enums.ShippingStatusReturned,
	"returned":    enums.ShippingStatusReturned,
	"pendiente":   enums.ShippingStatusPending,
	"pending":     enums.ShippingStatusPending,
}

// MapCourierStatus translates a courier term. ok is false for
// unrecognized terms, which leave the shipping status unchanged.
func MapCourierStatus(term string) (enums.ShippingStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(term))
	status, ok := courierVocabulary[normalized]
	return status, ok
}

// TransitionShipping applies a mapped courier status to the current
// shipping axis. Re-applying the same status is a no-op, which keeps
// webhook redelivery idempotent.
func TransitionShipping(current, next enums.ShippingStatus) (enums.ShippingStatus, bool) {
	if !next.IsValid() || next == current {
		return current, false
	}
	return next, true
}

// BusinessAfterShipping returns the business status implied by a shipping
// update: delivery completes the order on both axes, anything else leaves
// the business status alone.
func BusinessAfterShipping(current enums.OrderStatus, shipping enums.ShippingStatus) enums.OrderStatus {
	if shipping == enums.ShippingStatusDelivered {
		return enums.OrderStatusDelivered
	}
	return current
}

// BusinessAfterPayment marks an order paid when the gateway confirms the
// charge. Terminal business states are never demoted back to paid.
func BusinessAfterPayment(current enums.OrderStatus) enums.OrderStatus {
	switch current {
	case enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		return current
	}
	return enums.OrderStatusPaid
}
