package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code the gateway can settle in.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyUSD Currency = "USD"
	CurrencyGHS Currency = "GHS"
	CurrencyKES Currency = "KES"
)

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyNGN, CurrencyUSD, CurrencyGHS, CurrencyKES:
		return true
	}
	return false
}

// ParseCurrency accepts codes in any case.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
