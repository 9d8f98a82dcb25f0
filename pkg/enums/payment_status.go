package enums

import "fmt"

// PaymentStatus is the money state of an order. It only moves forward:
// PENDING -> PAID -> PARTIALLY_REFUNDED -> REFUNDED.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusPartiallyRefunded, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsRefundable reports whether money has been captured and not fully
// returned.
func (p PaymentStatus) IsRefundable() bool {
	return p == PaymentStatusPaid || p == PaymentStatusPartiallyRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	p := PaymentStatus(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid payment status %q", value)
	}
	return p, nil
}
