package enums

import "fmt"

// CheckoutOrigin distinguishes a checkout that started from the persistent
// cart from one started against pre-existing reservation items.
type CheckoutOrigin string

const (
	CheckoutOriginCart   CheckoutOrigin = "cart"
	CheckoutOriginDirect CheckoutOrigin = "direct"
)

var validCheckoutOrigins = []CheckoutOrigin{
	CheckoutOriginCart,
	CheckoutOriginDirect,
}

// String implements fmt.Stringer.
func (c CheckoutOrigin) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutOrigin.
func (c CheckoutOrigin) IsValid() bool {
	for _, candidate := range validCheckoutOrigins {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutOrigin converts raw input into a CheckoutOrigin.
func ParseCheckoutOrigin(value string) (CheckoutOrigin, error) {
	for _, candidate := range validCheckoutOrigins {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout origin %q", value)
}
