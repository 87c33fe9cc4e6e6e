package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/pagination"
)

// Repository persists reservation items, the durable order lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, items []models.ReservationItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReservationItem, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ReservationItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.ReservationItem, error)
	ListByReceiptRef(ctx context.Context, receiptRef string) ([]models.ReservationItem, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*models.ReservationItem, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReservationItem, string, error)
	Cancel(ctx context.Context, input CancelInput) (*models.ReservationItem, error)
	Transition(ctx context.Context, input TransitionInput) (*models.ReservationItem, error)
}
