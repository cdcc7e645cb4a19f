package enums

import "fmt"

// ShippingStatus tracks physical logistics progress, independently of the
// business status axis. It is driven by supplier/courier webhooks.
type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "pending"
	ShippingStatusShipped   ShippingStatus = "shipped"
	ShippingStatusInTransit ShippingStatus = "in_transit"
	ShippingStatusDelivered ShippingStatus = "delivered"
	ShippingStatusReturned  ShippingStatus = "returned"
)

var validShippingStatuses = []ShippingStatus{
	ShippingStatusPending,
	ShippingStatusShipped,
	ShippingStatusInTransit,
	ShippingStatusDelivered,
	ShippingStatusReturned,
}

// String implements fmt.Stringer.
func (s ShippingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingStatus.
func (s ShippingStatus) IsValid() bool {
	for _, candidate := range validShippingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingStatus converts raw input into a ShippingStatus.
func ParseShippingStatus(value string) (ShippingStatus, error) {
	for _, candidate := range validShippingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping status %q", value)
}
