package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "CARD"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUSSD           PaymentMethod = "USSD"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodUSSD, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// UsesGateway is false only for cash collected by the driver.
func (p PaymentMethod) UsesGateway() bool {
	return p.IsValid() && p != PaymentMethodCashOnDelivery
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	p := PaymentMethod(strings.ToUpper(strings.TrimSpace(value)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return p, nil
}
