package enums

import "fmt"

// OrderType selects between courier delivery and in-store collection.
type OrderType string

const (
	OrderTypeDelivery   OrderType = "DELIVERY"
	OrderTypeCollection OrderType = "COLLECTION"
)

var validOrderTypes = []OrderType{
	OrderTypeDelivery,
	OrderTypeCollection,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into a OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
