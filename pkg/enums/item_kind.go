package enums

import "fmt"

// ItemKind classifies a durable order line. Reservation items may be checked
// out directly; purchase items only ever originate from the cart flow.
type ItemKind string

const (
	ItemKindReservation ItemKind = "reservation"
	ItemKindPurchase    ItemKind = "purchase"
)

var validItemKinds = []ItemKind{
	ItemKindReservation,
	ItemKindPurchase,
}

// String implements fmt.Stringer.
func (i ItemKind) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemKind.
func (i ItemKind) IsValid() bool {
	for _, candidate := range validItemKinds {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseItemKind converts raw input into an ItemKind.
func ParseItemKind(value string) (ItemKind, error) {
	for _, candidate := range validItemKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item kind %q", value)
}
