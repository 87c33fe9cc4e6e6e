package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/pkg/types"
)

// CartItem is a pending selection in a user's cart. Rows are consumed (deleted)
// when the webhook reconciler converts them into reservation items.
type CartItem struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID   `gorm:"column:user_id;type:uuid;not null"`
	ProductID      uuid.UUID   `gorm:"column:product_id;type:uuid;not null"`
	Quantity       int         `gorm:"column:quantity;not null"`
	UnitPriceCents int         `gorm:"column:unit_price_cents;not null"`
	Addons         types.Addons `gorm:"column:addons;type:jsonb;serializer:json"`
	Branch         string      `gorm:"column:branch;not null;default:''"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
