package paypal

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// OrderParams configures a CAPTURE order. AmountCents is in centavos; the
// order is charged in USD at the given conversion rate because the merchant
// PayPal account settles in USD.
type OrderParams struct {
	AmountCents int
	PHPPerUSD   decimal.Decimal
	ReferenceID string
	Description string
	ReturnURL   string
	CancelURL   string
}

func (p OrderParams) validate() error {
	if p.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if p.PHPPerUSD.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "php per usd rate must be positive")
	}
	if p.ReferenceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}
	if p.ReturnURL == "" || p.CancelURL == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "return and cancel urls are required")
	}
	return nil
}

// USDValue converts the centavo amount into a USD string with two decimal
// places, rounding half up.
func (p OrderParams) USDValue() string {
	pesos := decimal.NewFromInt(int64(p.AmountCents)).Div(decimal.NewFromInt(100))
	return pesos.DivRound(p.PHPPerUSD, 2).StringFixed(2)
}

type orderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []purchaseUnit      `json:"purchase_units"`
	ApplicationContext *applicationContext `json:"application_context,omitempty"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	Description string `json:"description,omitempty"`
	Amount      struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
	} `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (p OrderParams) toRequest() orderRequest {
	unit := purchaseUnit{
		ReferenceID: p.ReferenceID,
		Description: p.Description,
	}
	unit.Amount.CurrencyCode = "USD"
	unit.Amount.Value = p.USDValue()

	return orderRequest{
		Intent:        "CAPTURE",
		PurchaseUnits: []purchaseUnit{unit},
		ApplicationContext: &applicationContext{
			ReturnURL: p.ReturnURL,
			CancelURL: p.CancelURL,
		},
	}
}
