package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/internal/checkout/reservation"
	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	tx     txRunner
	logger *logger.Logger
}

// NewService wires the orders service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, tx: tx, logger: logg}, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*models.ReservationItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		// do not leak existence of other users' orders
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return item, nil
}

// ListForUser pages through the caller's orders newest first. The
// returned cursor is empty on the last page.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReservationItem, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	items, err := s.repo.ListByUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return items, next, nil
}

// Cancel moves a customer's order into pending_cancellation. The row is
// kept; staff confirm via Transition, which is when stock returns.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.ReservationItem, error) {
	item, err := s.Get(ctx, input.UserID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(item.Status, enums.OrderStatusPendingCancellation) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot cancel an order in status %s", item.Status))
	}

	if err := s.repo.Update(ctx, item.ID, map[string]any{
		"status": enums.OrderStatusPendingCancellation,
	}); err != nil {
		return nil, err
	}
	item.Status = enums.OrderStatusPendingCancellation

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"order_id": item.ID.String(),
		"reason":   input.Reason,
	}), "order cancellation requested")
	return item, nil
}

// Transition applies a staff-driven status change under the transition
// table. Confirming a cancellation restores reserved stock in the same
// transaction as the status write.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.ReservationItem, error) {
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.To))
	}

	var updated *models.ReservationItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.GetByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(item.Status, input.To) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("illegal transition %s -> %s", item.Status, input.To))
		}

		if input.To == enums.OrderStatusCancelled {
			if err := reservation.Release(ctx, tx, item); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, item.ID, map[string]any{"status": input.To}); err != nil {
			return err
		}
		item.Status = input.To
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"order_id": updated.ID.String(),
		"status":   updated.Status.String(),
	}), "order status updated")
	return updated, nil
}
