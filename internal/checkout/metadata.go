package checkout

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// Metadata is the correlation payload attached to a provider session and
// echoed back in the payment webhook. Cart-origin rows are not persisted
// until the webhook arrives, so the breakdown rides along here.
type Metadata struct {
	Origin            enums.CheckoutOrigin
	UserID            uuid.UUID
	ReceiptRef        string
	CartItemIDs       []uuid.UUID
	ItemIDs           []uuid.UUID
	SubtotalCents     int
	AddonsTotalCents  int
	DiscountCents     int
	ReservationCents  int
	TotalCents        int
	DeliveryAddressID *uuid.UUID
	Branch            string
	VoucherCode       string
}

// Encode flattens the metadata into the string map providers accept.
func (m Metadata) Encode() map[string]string {
	out := map[string]string{
		"origin":          m.Origin.String(),
		"user_id":         m.UserID.String(),
		"receipt_ref":     m.ReceiptRef,
		"subtotal":        strconv.Itoa(m.SubtotalCents),
		"addons_total":    strconv.Itoa(m.AddonsTotalCents),
		"discount_value":  strconv.Itoa(m.DiscountCents),
		"reservation_fee": strconv.Itoa(m.ReservationCents),
		"total_amount":    strconv.Itoa(m.TotalCents),
	}
	if len(m.CartItemIDs) > 0 {
		out["cart_item_ids"] = joinIDs(m.CartItemIDs)
	}
	if len(m.ItemIDs) > 0 {
		out["item_ids"] = joinIDs(m.ItemIDs)
	}
	if m.DeliveryAddressID != nil {
		out["delivery_address_id"] = m.DeliveryAddressID.String()
	}
	if m.Branch != "" {
		out["branch"] = m.Branch
	}
	if m.VoucherCode != "" {
		out["voucher_code"] = m.VoucherCode
	}
	return out
}

// ParseMetadata rebuilds the correlation payload from a webhook event. A
// payload without an origin, user, or id list is unresolvable and rejected.
func ParseMetadata(raw map[string]string) (*Metadata, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook metadata is empty")
	}

	origin, err := enums.ParseCheckoutOrigin(raw["origin"])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook metadata origin")
	}
	userID, err := uuid.Parse(raw["user_id"])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook metadata user id")
	}

	m := &Metadata{
		Origin:      origin,
		UserID:      userID,
		ReceiptRef:  raw["receipt_ref"],
		Branch:      raw["branch"],
		VoucherCode: raw["voucher_code"],
	}
	if m.ReceiptRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook metadata missing receipt ref")
	}

	if m.CartItemIDs, err = splitIDs(raw["cart_item_ids"]); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook metadata cart item ids")
	}
	if m.ItemIDs, err = splitIDs(raw["item_ids"]); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook metadata item ids")
	}
	switch origin {
	case enums.CheckoutOriginCart:
		if len(m.CartItemIDs) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart origin metadata missing cart item ids")
		}
	case enums.CheckoutOriginDirect:
		if len(m.ItemIDs) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct origin metadata missing item ids")
		}
	}

	for key, dst := range map[string]*int{
		"subtotal":        &m.SubtotalCents,
		"addons_total":    &m.AddonsTotalCents,
		"discount_value":  &m.DiscountCents,
		"reservation_fee": &m.ReservationCents,
		"total_amount":    &m.TotalCents,
	} {
		if raw[key] == "" {
			continue
		}
		value, err := strconv.Atoi(raw[key])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook metadata "+key)
		}
		*dst = value
	}

	if raw["delivery_address_id"] != "" {
		addrID, err := uuid.Parse(raw["delivery_address_id"])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook metadata delivery address")
		}
		m.DeliveryAddressID = &addrID
	}
	return m, nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func splitIDs(raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
