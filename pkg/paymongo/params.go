package paymongo

import (
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

var defaultPaymentMethodTypes = []string{"card", "gcash", "grab_pay", "paymaya"}

// LineItem is one display row on the hosted checkout page. Amount is the
// unit price in minor units (centavos).
type LineItem struct {
	Name     string
	Amount   int
	Currency string
	Quantity int
}

// CheckoutSessionParams configures a hosted checkout session.
type CheckoutSessionParams struct {
	LineItems          []LineItem
	PaymentMethodTypes []string
	SuccessURL         string
	CancelURL          string
	Description        string
	Metadata           map[string]string
}

func (p CheckoutSessionParams) validate() error {
	if len(p.LineItems) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	if p.SuccessURL == "" || p.CancelURL == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls are required")
	}
	for _, item := range p.LineItems {
		if item.Name == "" || item.Quantity <= 0 || item.Amount < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line items need a name, positive quantity, and non-negative amount")
		}
	}
	return nil
}

type checkoutSessionRequest struct {
	Data struct {
		Attributes struct {
			LineItems          []lineItemPayload `json:"line_items"`
			PaymentMethodTypes []string          `json:"payment_method_types"`
			SuccessURL         string            `json:"success_url"`
			CancelURL          string            `json:"cancel_url"`
			Description        string            `json:"description,omitempty"`
			Metadata           map[string]string `json:"metadata,omitempty"`
		} `json:"attributes"`
	} `json:"data"`
}

type lineItemPayload struct {
	Name     string `json:"name"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

func (p CheckoutSessionParams) toRequest() checkoutSessionRequest {
	var req checkoutSessionRequest
	items := make([]lineItemPayload, 0, len(p.LineItems))
	for _, item := range p.LineItems {
		currency := item.Currency
		if currency == "" {
			currency = "PHP"
		}
		items = append(items, lineItemPayload{
			Name:     item.Name,
			Amount:   item.Amount,
			Currency: currency,
			Quantity: item.Quantity,
		})
	}
	req.Data.Attributes.LineItems = items
	methodTypes := p.PaymentMethodTypes
	if len(methodTypes) == 0 {
		methodTypes = defaultPaymentMethodTypes
	}
	req.Data.Attributes.PaymentMethodTypes = methodTypes
	req.Data.Attributes.SuccessURL = p.SuccessURL
	req.Data.Attributes.CancelURL = p.CancelURL
	req.Data.Attributes.Description = p.Description
	req.Data.Attributes.Metadata = p.Metadata
	return req
}
