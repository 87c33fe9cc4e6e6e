package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/api/middleware"
	"github.com/kmdeleon/tahanan-backend/api/responses"
	"github.com/kmdeleon/tahanan-backend/api/validators"
	checkoutsvc "github.com/kmdeleon/tahanan-backend/internal/checkout"
	"github.com/kmdeleon/tahanan-backend/internal/pricing"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

type checkoutSessionRequest struct {
	CartItemIDs       []uuid.UUID     `json:"cart_item_ids,omitempty" validate:"omitempty,min=1,max=50"`
	ItemIDs           []uuid.UUID     `json:"item_ids,omitempty" validate:"omitempty,min=1,max=50"`
	PaymentMethod     string          `json:"payment_method" validate:"required,oneof=paymongo paypal"`
	SuccessURL        string          `json:"success_url" validate:"required,url"`
	CancelURL         string          `json:"cancel_url" validate:"required,url"`
	Voucher           *voucherRequest `json:"voucher,omitempty"`
	DeliveryAddressID *uuid.UUID      `json:"delivery_address_id,omitempty"`
	Branch            string          `json:"branch,omitempty" validate:"omitempty,max=120"`
	ReceiptRef        string          `json:"receipt_ref,omitempty" validate:"omitempty,max=64"`
}

type voucherRequest struct {
	Code  string `json:"code" validate:"required,max=64"`
	Type  string `json:"type" validate:"required,oneof=percent amount"`
	Value int    `json:"value" validate:"required,min=1"`
}

// CreateCheckoutSession opens a hosted payment session for the caller's cart
// rows or for previously created reservation items.
func CreateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "user identity required"))
			return
		}

		var payload checkoutSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateSession(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func (p checkoutSessionRequest) toInput(userID uuid.UUID) (*checkoutsvc.SessionInput, error) {
	var origin checkoutsvc.Origin
	switch {
	case len(p.CartItemIDs) > 0 && len(p.ItemIDs) > 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_item_ids and item_ids are mutually exclusive")
	case len(p.CartItemIDs) > 0:
		origin = checkoutsvc.OriginCart{CartItemIDs: p.CartItemIDs}
	case len(p.ItemIDs) > 0:
		origin = checkoutsvc.OriginDirect{ItemIDs: p.ItemIDs}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart_item_ids or item_ids required")
	}

	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	var voucher *pricing.Voucher
	if p.Voucher != nil {
		voucherType, err := enums.ParseVoucherType(p.Voucher.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid voucher type")
		}
		voucher = &pricing.Voucher{
			Code:  validators.SanitizeString(p.Voucher.Code, 64),
			Type:  voucherType,
			Value: p.Voucher.Value,
		}
	}

	return &checkoutsvc.SessionInput{
		UserID:            userID,
		Origin:            origin,
		PaymentMethod:     method,
		Voucher:           voucher,
		SuccessURL:        p.SuccessURL,
		CancelURL:         p.CancelURL,
		DeliveryAddressID: p.DeliveryAddressID,
		Branch:            validators.SanitizeString(p.Branch, 120),
		ReceiptRef:        validators.SanitizeString(p.ReceiptRef, 64),
	}, nil
}
