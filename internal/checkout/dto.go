package checkout

import (
	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/internal/pricing"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
)

// Origin selects where the checkout lines come from. Exactly one concrete
// type exists per origin so a request can never carry both id lists.
type Origin interface {
	Kind() enums.CheckoutOrigin
}

// OriginCart checks out rows from the user's cart.
type OriginCart struct {
	CartItemIDs []uuid.UUID
}

func (OriginCart) Kind() enums.CheckoutOrigin { return enums.CheckoutOriginCart }

// OriginDirect checks out existing reservation items.
type OriginDirect struct {
	ItemIDs []uuid.UUID
}

func (OriginDirect) Kind() enums.CheckoutOrigin { return enums.CheckoutOriginDirect }

// SessionInput is one checkout attempt.
type SessionInput struct {
	UserID            uuid.UUID
	Origin            Origin
	PaymentMethod     enums.PaymentMethod
	Voucher           *pricing.Voucher
	SuccessURL        string
	CancelURL         string
	DeliveryAddressID *uuid.UUID
	Branch            string
	ReceiptRef        string
}

// SessionResult is returned to the caller for the provider redirect.
type SessionResult struct {
	SessionID         uuid.UUID `json:"session_id"`
	ProviderSessionID string    `json:"provider_session_id"`
	CheckoutURL       string    `json:"checkout_url"`
	ReceiptRef        string    `json:"receipt_ref"`
	AmountCents       int       `json:"amount_cents"`
}
