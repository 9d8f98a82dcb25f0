package enums

import "fmt"

// PayeeType identifies which earnings account a payout draws from.
type PayeeType string

const (
	PayeeTypeVendor PayeeType = "VENDOR"
	PayeeTypeDriver PayeeType = "DRIVER"
)

var validPayeeTypes = []PayeeType{
	PayeeTypeVendor,
	PayeeTypeDriver,
}

// String implements fmt.Stringer.
func (p PayeeType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayeeType.
func (p PayeeType) IsValid() bool {
	for _, candidate := range validPayeeTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayeeType converts raw input into a PayeeType.
func ParsePayeeType(value string) (PayeeType, error) {
	for _, candidate := range validPayeeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payee type %q", value)
}
