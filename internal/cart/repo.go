package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// Repository manages persistent cart rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByIDs loads the given cart rows. Every requested id must exist, so a
// checkout against a stale cart fails loudly instead of silently pricing a
// subset.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CartItem, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items requested")
	}
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	if len(items) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more cart items no longer exist")
	}
	return items, nil
}

// ListExistingByIDs loads whichever of the given rows still exist. The
// reconciler uses this on retried deliveries, where already-consumed rows
// are gone.
func (r *Repository) ListExistingByIDs(ctx context.Context, ids []uuid.UUID) ([]models.CartItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart items")
	}
	return items, nil
}

// DeleteByIDs removes consumed cart rows. Missing rows are not an error;
// a retried webhook delivery deletes an already-empty set.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CartItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart items")
	}
	return nil
}

// Create inserts a cart row. Used by seeding and tests; the storefront's
// cart CRUD surface lives in a separate service.
func (r *Repository) Create(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart item")
	}
	return nil
}
