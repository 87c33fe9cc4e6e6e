package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	"github.com/kmdeleon/tahanan-backend/pkg/types"
)

// ReservationItem is the durable, customer-visible order line. Pricing
// breakdown and provenance flags are first-class columns so the webhook
// idempotency guard is enforceable at the schema level.
type ReservationItem struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ProductID      uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int                 `gorm:"column:quantity;not null"`
	Kind           enums.ItemKind      `gorm:"column:kind;type:text;not null;default:'reservation'"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	UnitPriceCents int                 `gorm:"column:unit_price_cents;not null"`
	Addons         types.Addons        `gorm:"column:addons;type:jsonb;serializer:json"`

	// Pricing breakdown persisted at session creation and re-checked by the
	// reconciler.
	GrossCents    int `gorm:"column:gross_cents;not null;default:0"`
	DiscountCents int `gorm:"column:discount_cents;not null;default:0"`
	NetCents      int `gorm:"column:net_cents;not null;default:0"`
	FeeShareCents int `gorm:"column:fee_share_cents;not null;default:0"`
	TotalCents    int `gorm:"column:total_cents;not null;default:0"`

	// Provenance flags: each side effect happens at most once per row.
	InventoryReserved bool `gorm:"column:inventory_reserved;not null;default:false"`
	InventoryDeducted bool `gorm:"column:inventory_deducted;not null;default:false"`
	StockBefore       *int `gorm:"column:stock_before"`
	StockAfter        *int `gorm:"column:stock_after"`

	ReceiptRef        string     `gorm:"column:receipt_ref;not null;default:'';index"`
	PaymentSessionID  *uuid.UUID `gorm:"column:payment_session_id;type:uuid"`
	DeliveryAddressID *uuid.UUID `gorm:"column:delivery_address_id;type:uuid"`
	Branch            string     `gorm:"column:branch;not null;default:''"`
	VoucherCode       *string    `gorm:"column:voucher_code"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
