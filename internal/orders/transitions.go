package orders

import (
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
)

// transitions is the fulfillment state machine. The main line walks an item
// from payment to handover; cancellation branches off any state before
// completion and is confirmed by staff.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendingPayment:      {enums.OrderStatusReserved, enums.OrderStatusPendingCancellation},
	enums.OrderStatusReserved:            {enums.OrderStatusApproved, enums.OrderStatusPendingCancellation},
	enums.OrderStatusApproved:            {enums.OrderStatusInProduction, enums.OrderStatusPendingCancellation},
	enums.OrderStatusInProduction:        {enums.OrderStatusPackaging, enums.OrderStatusPendingCancellation},
	enums.OrderStatusPackaging:           {enums.OrderStatusReadyForDelivery, enums.OrderStatusPendingCancellation},
	enums.OrderStatusReadyForDelivery:    {enums.OrderStatusOutForDelivery, enums.OrderStatusPendingCancellation},
	enums.OrderStatusOutForDelivery:      {enums.OrderStatusCompleted, enums.OrderStatusPendingCancellation},
	enums.OrderStatusPendingCancellation: {enums.OrderStatusCancelled},
	enums.OrderStatusCompleted:           nil,
	enums.OrderStatusCancelled:           nil,
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
