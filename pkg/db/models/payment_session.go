package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/pkg/enums"
)

// PaymentSession correlates one checkout attempt with a provider-side session.
type PaymentSession struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	Provider          enums.PaymentMethod  `gorm:"column:provider;type:text;not null"`
	ProviderSessionID string               `gorm:"column:provider_session_id;not null;index"`
	CheckoutURL       string               `gorm:"column:checkout_url;not null"`
	AmountCents       int                  `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'PHP'"`
	Status            enums.PaymentStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	Origin            enums.CheckoutOrigin `gorm:"column:origin;type:text;not null"`
	ReceiptRef        string               `gorm:"column:receipt_ref;not null;uniqueIndex"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
