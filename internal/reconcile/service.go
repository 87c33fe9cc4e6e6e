package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/internal/cart"
	"github.com/kmdeleon/tahanan-backend/internal/checkout"
	"github.com/kmdeleon/tahanan-backend/internal/checkout/reservation"
	"github.com/kmdeleon/tahanan-backend/internal/notifications"
	"github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/metrics"
	"github.com/kmdeleon/tahanan-backend/pkg/money"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Outcome reports what a delivery did. Partial means some records failed
// and will be retried by the provider's redelivery.
type Outcome struct {
	Status     string `json:"status"`
	ReceiptRef string `json:"receipt_ref,omitempty"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
}

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeIgnored = "ignored"
)

// Service reconciles provider payment events against the database.
type Service interface {
	ProcessPayMongoEvent(ctx context.Context, payload []byte) (*Outcome, error)
}

type service struct {
	tx       txRunner
	cartRepo *cart.Repository
	orders   orders.Repository
	sessions checkout.SessionRepository
	notifier notifications.Service
	guard    *IdempotencyGuard
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
}

// NewService wires the reconciler. The idempotency guard is optional; when
// absent, duplicate suppression rests on the provenance flags alone.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	ordersRepo orders.Repository,
	sessions checkout.SessionRepository,
	notifier notifications.Service,
	guard *IdempotencyGuard,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       tx,
		cartRepo: cartRepo,
		orders:   ordersRepo,
		sessions: sessions,
		notifier: notifier,
		guard:    guard,
		metrics:  checkoutMetrics,
		logger:   logg,
	}, nil
}

func (s *service) ProcessPayMongoEvent(ctx context.Context, payload []byte) (*Outcome, error) {
	started := time.Now()

	event, err := paymongo.ParseEvent(payload)
	if err != nil {
		s.metrics.IncWebhookEvent("malformed")
		return nil, err
	}
	if event.Type() != paymongo.EventTypeCheckoutSessionPaymentPaid {
		s.metrics.IncWebhookEvent("ignored")
		return &Outcome{Status: OutcomeIgnored}, nil
	}

	if s.guard != nil {
		duplicate, gerr := s.guard.CheckAndMark(ctx, event.ID)
		if gerr != nil {
			// redis being down must not block reconciliation; the
			// provenance flags keep a replay harmless
			s.logger.Warn(ctx, "webhook idempotency check failed: "+gerr.Error())
		} else if duplicate {
			s.metrics.IncWebhookEvent("duplicate")
			return &Outcome{Status: OutcomeSuccess}, nil
		}
	}

	meta, err := checkout.ParseMetadata(event.Metadata())
	if err != nil {
		s.metrics.IncWebhookEvent("malformed")
		return nil, err
	}

	ctx = s.logger.WithReceiptRef(ctx, meta.ReceiptRef)

	outcome, err := s.reconcile(ctx, meta)
	if err != nil {
		if s.guard != nil {
			// allow the provider redelivery to retry the whole event
			if derr := s.guard.Delete(ctx, event.ID); derr != nil {
				s.logger.Warn(ctx, "clear webhook idempotency key: "+derr.Error())
			}
		}
		s.metrics.IncWebhookEvent("failed")
		s.metrics.ObserveWebhookDuration("failed", time.Since(started))
		return nil, err
	}

	s.metrics.IncWebhookEvent(outcome.Status)
	s.metrics.ObserveWebhookDuration(outcome.Status, time.Since(started))
	return outcome, nil
}

func (s *service) reconcile(ctx context.Context, meta *checkout.Metadata) (*Outcome, error) {
	outcome := &Outcome{Status: OutcomeSuccess, ReceiptRef: meta.ReceiptRef}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.sessions.WithTx(tx).MarkStatus(ctx, meta.ReceiptRef, enums.PaymentStatusCompleted); err != nil {
			// a session row may predate the metadata contract; log and keep going
			s.logger.Warn(ctx, "mark payment session completed: "+err.Error())
		}

		switch meta.Origin {
		case enums.CheckoutOriginCart:
			return s.reconcileCart(ctx, tx, meta, outcome)
		case enums.CheckoutOriginDirect:
			return s.reconcileDirect(ctx, tx, meta, outcome)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout origin")
	})
	if err != nil {
		return nil, err
	}
	if outcome.Failed > 0 {
		outcome.Status = OutcomePartial
	}
	return outcome, nil
}

// reconcileCart converts the referenced cart rows into finalized
// reservation items. Consumed rows are deleted, so a retried delivery only
// sees what is left; an empty remainder means everything was already done.
// The conversion is all-or-nothing so the echoed breakdown always spreads
// over the same set of rows.
func (s *service) reconcileCart(ctx context.Context, tx *gorm.DB, meta *checkout.Metadata, outcome *Outcome) error {
	rows, err := s.cartRepo.WithTx(tx).ListExistingByIDs(ctx, meta.CartItemIDs)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		// duplicate delivery after a completed conversion
		return nil
	}

	gross := make([]int, len(rows))
	for i, row := range rows {
		gross[i] = row.UnitPriceCents*row.Quantity + row.Addons.TotalFeeCents()
	}
	discountShares := money.Allocate(meta.DiscountCents, gross)

	net := make([]int, len(rows))
	allNetZero := true
	for i := range rows {
		net[i] = gross[i] - discountShares[i]
		if net[i] != 0 {
			allNetZero = false
		}
	}
	feeWeights := net
	if allNetZero {
		feeWeights = gross
	}
	feeShares := money.Allocate(meta.ReservationCents, feeWeights)

	items := make([]models.ReservationItem, len(rows))
	consumed := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		items[i] = models.ReservationItem{
			ID:             uuid.New(),
			UserID:         meta.UserID,
			ProductID:      row.ProductID,
			Quantity:       row.Quantity,
			Kind:           enums.ItemKindPurchase,
			Status:         enums.OrderStatusReserved,
			PaymentStatus:  enums.PaymentStatusCompleted,
			UnitPriceCents: row.UnitPriceCents,
			Addons:         row.Addons,
			GrossCents:     gross[i],
			DiscountCents:  discountShares[i],
			NetCents:       net[i],
			FeeShareCents:  feeShares[i],
			TotalCents:     net[i] + feeShares[i],
			// stock was held when the session was created
			InventoryReserved: true,
			InventoryDeducted: true,
			ReceiptRef:        meta.ReceiptRef,
			DeliveryAddressID: meta.DeliveryAddressID,
			Branch:            meta.Branch,
		}
		if meta.VoucherCode != "" {
			code := meta.VoucherCode
			items[i].VoucherCode = &code
		}
		consumed[i] = row.ID
	}

	repo := s.orders.WithTx(tx)
	if err := repo.Create(ctx, items); err != nil {
		return err
	}
	if err := s.cartRepo.WithTx(tx).DeleteByIDs(ctx, consumed); err != nil {
		return err
	}
	outcome.Processed = len(items)

	s.emitNotification(ctx, tx, meta, len(items), totalOf(items))
	return nil
}

// reconcileDirect finalizes existing reservation items in place. Each
// record is handled independently; one bad row does not block the rest.
func (s *service) reconcileDirect(ctx context.Context, tx *gorm.DB, meta *checkout.Metadata, outcome *Outcome) error {
	repo := s.orders.WithTx(tx)
	items, err := repo.ListByIDs(ctx, meta.ItemIDs)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no reservation items match the webhook metadata")
	}

	allDone := true
	for _, item := range items {
		if !item.InventoryDeducted || item.PaymentStatus != enums.PaymentStatusCompleted {
			allDone = false
			break
		}
	}
	if allDone {
		// replayed delivery; everything was finalized the first time
		outcome.Processed = len(items)
		return nil
	}

	var errs []error
	var done []models.ReservationItem
	for i := range items {
		item := &items[i]
		if err := s.finalizeItem(ctx, tx, repo, item); err != nil {
			errs = append(errs, fmt.Errorf("item %s: %w", item.ID, err))
			outcome.Failed++
			continue
		}
		done = append(done, *item)
		outcome.Processed++
	}

	if len(done) == 0 {
		return multierr.Combine(errs...)
	}

	for _, err := range errs {
		s.logger.Error(ctx, "reconcile reservation item", err)
	}

	s.emitNotification(ctx, tx, meta, len(done), totalOf(done))
	return nil
}

func (s *service) finalizeItem(ctx context.Context, tx *gorm.DB, repo orders.Repository, item *models.ReservationItem) error {
	if err := reservation.Deduct(ctx, tx, item); err != nil {
		return err
	}

	updates := map[string]any{"payment_status": enums.PaymentStatusCompleted}
	if orders.CanTransition(item.Status, enums.OrderStatusReserved) {
		updates["status"] = enums.OrderStatusReserved
	}
	if err := repo.Update(ctx, item.ID, updates); err != nil {
		return err
	}
	item.PaymentStatus = enums.PaymentStatusCompleted
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		item.Status = status
	}
	return nil
}

func (s *service) emitNotification(ctx context.Context, tx *gorm.DB, meta *checkout.Metadata, count, totalCents int) {
	s.notifier.NotifyPaymentConfirmed(ctx, tx, notifications.PaymentConfirmed{
		ReceiptRef: meta.ReceiptRef,
		UserID:     meta.UserID.String(),
		Origin:     meta.Origin.String(),
		ItemCount:  count,
		TotalCents: totalCents,
	})
}

func totalOf(items []models.ReservationItem) int {
	total := 0
	for _, item := range items {
		total += item.TotalCents
	}
	return total
}
