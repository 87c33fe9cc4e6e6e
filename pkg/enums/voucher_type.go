package enums

import "fmt"

// VoucherType determines how a voucher value is interpreted.
type VoucherType string

const (
	VoucherTypePercent VoucherType = "percent"
	VoucherTypeAmount  VoucherType = "amount"
)

var validVoucherTypes = []VoucherType{
	VoucherTypePercent,
	VoucherTypeAmount,
}

// String implements fmt.Stringer.
func (v VoucherType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VoucherType.
func (v VoucherType) IsValid() bool {
	for _, candidate := range validVoucherTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoucherType converts raw input into a VoucherType.
func ParseVoucherType(value string) (VoucherType, error) {
	for _, candidate := range validVoucherTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voucher type %q", value)
}
