package types

// Addon is a customer-selected extra attached to a line item. The fee is a
// flat per-line charge in centavos; Value carries free-form input such as an
// engraving text or fabric choice.
type Addon struct {
	Name     string `json:"name"`
	FeeCents int    `json:"fee_cents"`
	Value    string `json:"value,omitempty"`
}

// Addons is the jsonb-serialized addon list stored on cart and order rows.
type Addons []Addon

// TotalFeeCents sums the addon fees for the line.
func (a Addons) TotalFeeCents() int {
	total := 0
	for _, addon := range a {
		if addon.FeeCents > 0 {
			total += addon.FeeCents
		}
	}
	return total
}
