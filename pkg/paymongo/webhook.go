package paymongo

import (
	"encoding/json"

	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// EventTypeCheckoutSessionPaymentPaid is the only event type the reconciler
// acts on; everything else is acknowledged and ignored.
const EventTypeCheckoutSessionPaymentPaid = "checkout_session.payment.paid"

// Event is a decoded PayMongo webhook delivery. The inner resource carries
// back the metadata attached at session creation.
type Event struct {
	ID         string `json:"id"`
	Attributes struct {
		Type string `json:"type"`
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"attributes"`
		} `json:"data"`
	} `json:"attributes"`
}

// Type returns the nested event type.
func (e *Event) Type() string {
	if e == nil {
		return ""
	}
	return e.Attributes.Type
}

// SessionID returns the checkout session id the event refers to.
func (e *Event) SessionID() string {
	if e == nil {
		return ""
	}
	return e.Attributes.Data.ID
}

// Metadata returns the metadata echoed back from session creation.
func (e *Event) Metadata() map[string]string {
	if e == nil {
		return nil
	}
	return e.Attributes.Data.Attributes.Metadata
}

// ParseEvent decodes a webhook payload into an Event.
func ParseEvent(payload []byte) (*Event, error) {
	var envelope struct {
		Data Event `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}
	if envelope.Data.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing event id")
	}
	return &envelope.Data, nil
}
