package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
)

// Request is one product decrement within a checkout attempt. ItemID points
// at the durable reservation item to stamp with provenance; it is nil for
// cart lines that have not been persisted yet.
type Request struct {
	ItemID          *uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	AlreadyReserved bool
}

// Result reports the stock movement for one request. Skipped means the item
// was already reserved by an earlier attempt and nothing was decremented.
type Result struct {
	ProductID   uuid.UUID
	StockBefore int
	StockAfter  int
	Skipped     bool
}

// Reserve decrements stock for every request inside the caller's
// transaction. The decrement is a single conditional UPDATE guarded on
// quantity_on_hand, so two concurrent checkouts can never drive stock
// negative. Any conflict fails the whole batch; the caller's transaction
// rollback undoes the earlier decrements.
func Reserve(ctx context.Context, tx *gorm.DB, requests []Request) ([]Result, error) {
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to reserve")
	}

	results := make([]Result, 0, len(requests))
	for _, req := range requests {
		if req.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be at least 1")
		}
		if req.AlreadyReserved {
			results = append(results, Result{ProductID: req.ProductID, Skipped: true})
			continue
		}

		after, err := decrement(ctx, tx, req.ProductID, req.Quantity)
		if err != nil {
			return nil, err
		}
		result := Result{
			ProductID:   req.ProductID,
			StockBefore: after + req.Quantity,
			StockAfter:  after,
		}

		if req.ItemID != nil {
			if err := stampReserved(ctx, tx, *req.ItemID, result); err != nil {
				return nil, err
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Deduct finalizes the stock side of a paid reservation item. A row whose
// stock was already decremented at reservation time only gets its flag
// flipped; a row that somehow reached payment unreserved is decremented
// here. Already-deducted rows are a no-op, which makes duplicate webhook
// delivery safe.
func Deduct(ctx context.Context, tx *gorm.DB, item *models.ReservationItem) error {
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation item is required")
	}
	if item.InventoryDeducted {
		return nil
	}

	updates := map[string]any{"inventory_deducted": true}
	if !item.InventoryReserved {
		after, err := decrement(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		before := after + item.Quantity
		updates["inventory_reserved"] = true
		updates["stock_before"] = before
		updates["stock_after"] = after
		item.InventoryReserved = true
		item.StockBefore = &before
		item.StockAfter = &after
	}

	if err := tx.WithContext(ctx).
		Model(&models.ReservationItem{}).
		Where("id = ?", item.ID).
		Updates(updates).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark inventory deducted")
	}
	item.InventoryDeducted = true
	return nil
}

// Release returns reserved stock to the shelf when an unfulfilled item is
// cancelled. Items that never reserved stock are a no-op.
func Release(ctx context.Context, tx *gorm.DB, item *models.ReservationItem) error {
	if item == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation item is required")
	}
	if !item.InventoryReserved {
		return nil
	}

	if err := tx.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ?", item.ProductID).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", item.Quantity)).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore inventory")
	}

	if err := tx.WithContext(ctx).
		Model(&models.ReservationItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"inventory_reserved": false,
			"inventory_deducted": false,
		}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear reservation flags")
	}
	item.InventoryReserved = false
	item.InventoryDeducted = false
	return nil
}

// decrement performs the guarded stock decrement and returns the remaining
// quantity. A zero-row update means the product is missing or short.
func decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (int, error) {
	res := tx.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND quantity_on_hand >= ?", productID, qty).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand - ?", qty))
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement inventory")
	}
	if res.RowsAffected == 0 {
		var item models.InventoryItem
		err := tx.WithContext(ctx).First(&item, "product_id = ?", productID).Error
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no inventory for product %s", productID))
		}
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load inventory")
		}
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID.String(),
				"requested":  qty,
				"available":  item.QuantityOnHand,
			})
	}

	var item models.InventoryItem
	if err := tx.WithContext(ctx).First(&item, "product_id = ?", productID).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload inventory")
	}
	return item.QuantityOnHand, nil
}

func stampReserved(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, result Result) error {
	if err := tx.WithContext(ctx).
		Model(&models.ReservationItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"inventory_reserved": true,
			"stock_before":       result.StockBefore,
			"stock_after":        result.StockAfter,
		}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamp reservation provenance")
	}
	return nil
}
