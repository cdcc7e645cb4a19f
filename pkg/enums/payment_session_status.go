package enums

import "fmt"

// PaymentSessionStatus is the state of a mock-gateway payment session.
// completed and expired are terminal.
type PaymentSessionStatus string

const (
	PaymentSessionPending   PaymentSessionStatus = "pending"
	PaymentSessionCompleted PaymentSessionStatus = "completed"
	PaymentSessionExpired   PaymentSessionStatus = "expired"
)

var validPaymentSessionStatuses = []PaymentSessionStatus{
	PaymentSessionPending,
	PaymentSessionCompleted,
	PaymentSessionExpired,
}

// String implements fmt.Stringer.
func (s PaymentSessionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed.
func (s PaymentSessionStatus) IsTerminal() bool {
	return s == PaymentSessionCompleted || s == PaymentSessionExpired
}

// ParsePaymentSessionStatus converts raw input into a PaymentSessionStatus.
func ParsePaymentSessionStatus(value string) (PaymentSessionStatus, error) {
	for _, candidate := range validPaymentSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment session status %q", value)
}
