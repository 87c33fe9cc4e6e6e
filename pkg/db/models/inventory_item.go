package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks on-hand stock per product. Mutations go through
// conditional updates so the quantity can never drop below zero.
type InventoryItem struct {
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	QuantityOnHand int       `gorm:"column:quantity_on_hand;not null;default:0"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
