package pricing

import (
	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/money"
	"github.com/kmdeleon/tahanan-backend/pkg/types"
)

// Line is one raw line item entering the engine. Amounts are centavos.
type Line struct {
	ProductID      uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int
	Addons         types.Addons
}

// Voucher is an optional discount applied to the whole intent. Percent
// vouchers interpret Value as a whole percentage (10 means 10%), amount
// vouchers as centavos.
type Voucher struct {
	Code  string
	Type  enums.VoucherType
	Value int
}

// PricedLine is a Line with its share of the discount and reservation fee.
type PricedLine struct {
	Line
	GrossCents    int
	DiscountCents int
	NetCents      int
	FeeShareCents int
	TotalCents    int
}

// Result is the full priced intent. TotalCents is the amount handed to the
// payment provider and always equals the sum of the per-line totals.
type Result struct {
	Lines               []PricedLine
	SubtotalCents       int
	AddonsTotalCents    int
	DiscountCents       int
	ReservationFeeCents int
	TotalCents          int
}

// Price computes the gross, discount share, net, and fee share for every
// line. The discount is spread by gross weights and the reservation fee by
// net-of-discount weights, falling back to gross weights when every net is
// zero so a fully discounted intent still carries the fee.
func Price(lines []Line, voucher *Voucher, reservationFeeCents int) (*Result, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot price an empty intent")
	}
	if reservationFeeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation fee cannot be negative")
	}

	gross := make([]int, len(lines))
	subtotal := 0
	addonsTotal := 0
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}
		if line.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
		}
		addonFee := line.Addons.TotalFeeCents()
		gross[i] = line.UnitPriceCents*line.Quantity + addonFee
		subtotal += line.UnitPriceCents * line.Quantity
		addonsTotal += addonFee
	}
	preDiscount := subtotal + addonsTotal

	discount, err := discountAmount(voucher, preDiscount)
	if err != nil {
		return nil, err
	}

	discountShares := money.Allocate(discount, gross)

	net := make([]int, len(lines))
	allNetZero := true
	for i := range lines {
		net[i] = gross[i] - discountShares[i]
		if net[i] != 0 {
			allNetZero = false
		}
	}

	feeWeights := net
	if allNetZero {
		feeWeights = gross
	}
	feeShares := money.Allocate(reservationFeeCents, feeWeights)

	result := &Result{
		Lines:               make([]PricedLine, len(lines)),
		SubtotalCents:       subtotal,
		AddonsTotalCents:    addonsTotal,
		DiscountCents:       discount,
		ReservationFeeCents: reservationFeeCents,
	}
	for i, line := range lines {
		priced := PricedLine{
			Line:          line,
			GrossCents:    gross[i],
			DiscountCents: discountShares[i],
			NetCents:      net[i],
			FeeShareCents: feeShares[i],
			TotalCents:    net[i] + feeShares[i],
		}
		result.Lines[i] = priced
		result.TotalCents += priced.TotalCents
	}
	return result, nil
}

// discountAmount converts a voucher into centavos, clamped to [0, preDiscount].
func discountAmount(voucher *Voucher, preDiscount int) (int, error) {
	if voucher == nil {
		return 0, nil
	}
	var raw int
	switch voucher.Type {
	case enums.VoucherTypePercent:
		if voucher.Value < 0 || voucher.Value > 100 {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "percent voucher value must be between 0 and 100")
		}
		raw = preDiscount * voucher.Value / 100
	case enums.VoucherTypeAmount:
		raw = voucher.Value
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown voucher type")
	}
	if raw < 0 {
		return 0, nil
	}
	if raw > preDiscount {
		return preDiscount, nil
	}
	return raw, nil
}
