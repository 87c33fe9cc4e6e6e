package enums

import "fmt"

// OrderStatus is the lifecycle state of a reservation item from checkout
// through fulfillment.
type OrderStatus string

const (
	OrderStatusPendingPayment      OrderStatus = "pending_payment"
	OrderStatusReserved            OrderStatus = "reserved"
	OrderStatusApproved            OrderStatus = "approved"
	OrderStatusInProduction        OrderStatus = "in_production"
	OrderStatusPackaging           OrderStatus = "packaging"
	OrderStatusReadyForDelivery    OrderStatus = "ready_for_delivery"
	OrderStatusOutForDelivery      OrderStatus = "out_for_delivery"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusPendingCancellation OrderStatus = "pending_cancellation"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusReserved,
	OrderStatusApproved,
	OrderStatusInProduction,
	OrderStatusPackaging,
	OrderStatusReadyForDelivery,
	OrderStatusOutForDelivery,
	OrderStatusCompleted,
	OrderStatusPendingCancellation,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusCompleted || o == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
