package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	"github.com/kmdeleon/tahanan-backend/pkg/types"
)

// CancelInput is a customer-initiated cancellation request.
type CancelInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Reason  string
}

// TransitionInput is a staff-driven status change. Confirming a pending
// cancellation releases reserved stock.
type TransitionInput struct {
	OrderID uuid.UUID
	To      enums.OrderStatus
}

// OrderResponse is the customer-facing view of a reservation item.
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	ProductID     uuid.UUID           `json:"product_id"`
	Quantity      int                 `json:"quantity"`
	Kind          enums.ItemKind      `json:"kind"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Addons        types.Addons        `json:"addons,omitempty"`
	GrossCents    int                 `json:"gross_cents"`
	DiscountCents int                 `json:"discount_cents"`
	NetCents      int                 `json:"net_cents"`
	FeeShareCents int                 `json:"fee_share_cents"`
	TotalCents    int                 `json:"total_cents"`
	ReceiptRef    string              `json:"receipt_ref,omitempty"`
	Branch        string              `json:"branch,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ToOrderResponse maps a model row into the API shape.
func ToOrderResponse(item models.ReservationItem) OrderResponse {
	return OrderResponse{
		ID:            item.ID,
		ProductID:     item.ProductID,
		Quantity:      item.Quantity,
		Kind:          item.Kind,
		Status:        item.Status,
		PaymentStatus: item.PaymentStatus,
		Addons:        item.Addons,
		GrossCents:    item.GrossCents,
		DiscountCents: item.DiscountCents,
		NetCents:      item.NetCents,
		FeeShareCents: item.FeeShareCents,
		TotalCents:    item.TotalCents,
		ReceiptRef:    item.ReceiptRef,
		Branch:        item.Branch,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}
