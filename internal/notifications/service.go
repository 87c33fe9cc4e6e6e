package notifications

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

// KindPaymentConfirmed tags the notification emitted after a successful
// payment reconciliation.
const KindPaymentConfirmed = "payment_confirmed"

// Publisher sends the notification payload to the fulfillment topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// PaymentConfirmed summarizes one reconciled payment for fulfillment staff.
type PaymentConfirmed struct {
	ReceiptRef string `json:"receipt_ref"`
	UserID     string `json:"user_id"`
	Origin     string `json:"origin"`
	ItemCount  int    `json:"item_count"`
	TotalCents int    `json:"total_cents"`
}

// Service records fulfillment notifications and fans them out.
type Service interface {
	NotifyPaymentConfirmed(ctx context.Context, tx *gorm.DB, event PaymentConfirmed)
}

type service struct {
	repo      Repository
	publisher Publisher
	logger    *logger.Logger
}

// NewService wires notifications dependencies. The publisher may be nil
// when pubsub is not configured; the inbox row is still written.
func NewService(repo Repository, publisher Publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, publisher: publisher, logger: logg}, nil
}

// NotifyPaymentConfirmed inserts the inbox row inside the caller's
// transaction and publishes the event after. Failures are logged and
// swallowed; a lost notification must never roll back a reconciled payment.
func (s *service) NotifyPaymentConfirmed(ctx context.Context, tx *gorm.DB, event PaymentConfirmed) {
	row := &models.Notification{
		Kind: KindPaymentConfirmed,
		Payload: map[string]any{
			"receipt_ref": event.ReceiptRef,
			"user_id":     event.UserID,
			"origin":      event.Origin,
			"item_count":  event.ItemCount,
			"total_cents": event.TotalCents,
		},
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		s.logger.Error(ctx, "write payment notification", err)
		return
	}

	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error(ctx, "encode payment notification", err)
		return
	}
	if _, err := s.publisher.Publish(ctx, data, map[string]string{"kind": KindPaymentConfirmed}); err != nil {
		s.logger.Error(ctx, "publish payment notification", err)
	}
}
