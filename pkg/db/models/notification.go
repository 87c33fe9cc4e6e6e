package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the inbox row consumed by the fulfillment dashboard.
type Notification struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind      string         `gorm:"column:kind;not null"`
	Payload   map[string]any `gorm:"column:payload;type:jsonb;serializer:json"`
	ReadAt    *time.Time     `gorm:"column:read_at"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}
