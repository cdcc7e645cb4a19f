package enums

// PaymentMethod names how the customer pays. Deliberately an open string
// rather than a closed enum: storefront variants have shipped methods like
// "nequi_manual" without a backend release, so unknown values are stored
// as-is and only the known ones get special handling.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "efectivo"
	PaymentMethodNequi       PaymentMethod = "nequi"
	PaymentMethodNequiManual PaymentMethod = "nequi_manual"
	PaymentMethodCard        PaymentMethod = "tarjeta"
	PaymentMethodStripe      PaymentMethod = "stripe"
	PaymentMethodWompi       PaymentMethod = "wompi"
)

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsPrepaid reports whether the method indicates the order was paid before
// dispatch. Anything unrecognized is treated as cash on delivery.
func (p PaymentMethod) IsPrepaid() bool {
	switch p {
	case PaymentMethodNequi, PaymentMethodNequiManual, PaymentMethodCard, PaymentMethodStripe, PaymentMethodWompi:
		return true
	}
	return false
}
