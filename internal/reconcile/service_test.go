package reconcile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/internal/cart"
	"github.com/kmdeleon/tahanan-backend/internal/checkout"
	"github.com/kmdeleon/tahanan-backend/internal/notifications"
	"github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type memoryStore struct {
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type fixture struct {
	db     *gorm.DB
	svc    Service
	userID uuid.UUID
}

func newFixture(t *testing.T, guard *IdempotencyGuard) *fixture {
	t.Helper()
	dsn := "file:reconcile_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.InventoryItem{},
		&models.CartItem{},
		&models.ReservationItem{},
		&models.PaymentSession{},
		&models.Notification{},
	))

	notifier, err := notifications.NewService(notifications.NewRepository(db), nil, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)

	svc, err := NewService(
		gormTxRunner{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		checkout.NewSessionRepository(db),
		notifier,
		guard,
		nil,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc, userID: uuid.New()}
}

func paidEvent(t *testing.T, eventID string, meta checkout.Metadata) []byte {
	t.Helper()
	payload := map[string]any{
		"data": map[string]any{
			"id": eventID,
			"attributes": map[string]any{
				"type": "checkout_session.payment.paid",
				"data": map[string]any{
					"id": "cs_" + eventID,
					"attributes": map[string]any{
						"metadata": meta.Encode(),
					},
				},
			},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

func (f *fixture) seedSession(t *testing.T, receiptRef string, origin enums.CheckoutOrigin, amount int) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.PaymentSession{
		ID:                uuid.New(),
		UserID:            f.userID,
		Provider:          enums.PaymentMethodPayMongo,
		ProviderSessionID: "cs_seed",
		CheckoutURL:       "https://checkout.test",
		AmountCents:       amount,
		Currency:          enums.CurrencyPHP,
		Status:            enums.PaymentStatusPending,
		Origin:            origin,
		ReceiptRef:        receiptRef,
	}).Error)
}

func TestProcessCartOriginEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	productA := uuid.New()
	productB := uuid.New()
	// stock already held at session creation
	require.NoError(t, f.db.Create(&models.InventoryItem{ProductID: productA, QuantityOnHand: 3}).Error)
	require.NoError(t, f.db.Create(&models.InventoryItem{ProductID: productB, QuantityOnHand: 2}).Error)

	rowA := models.CartItem{ID: uuid.New(), UserID: f.userID, ProductID: productA, Quantity: 2, UnitPriceCents: 100_000,
		Addons: types.Addons{{Name: "upholstery", FeeCents: 20_000}}}
	rowB := models.CartItem{ID: uuid.New(), UserID: f.userID, ProductID: productB, Quantity: 1, UnitPriceCents: 50_000}
	require.NoError(t, f.db.Create(&rowA).Error)
	require.NoError(t, f.db.Create(&rowB).Error)

	meta := checkout.Metadata{
		Origin:           enums.CheckoutOriginCart,
		UserID:           f.userID,
		ReceiptRef:       "TH-CART1",
		CartItemIDs:      []uuid.UUID{rowA.ID, rowB.ID},
		SubtotalCents:    250_000,
		AddonsTotalCents: 20_000,
		DiscountCents:    27_000,
		ReservationCents: 50_000,
		TotalCents:       293_000,
		Branch:           "quezon-city",
		VoucherCode:      "WELCOME10",
	}
	f.seedSession(t, meta.ReceiptRef, enums.CheckoutOriginCart, meta.TotalCents)

	outcome, err := f.svc.ProcessPayMongoEvent(context.Background(), paidEvent(t, "evt_cart_1", meta))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Equal(t, 2, outcome.Processed)

	// cart rows consumed
	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	// finalized items created with an exact breakdown
	var items []models.ReservationItem
	require.NoError(t, f.db.Where("receipt_ref = ?", meta.ReceiptRef).Find(&items).Error)
	require.Len(t, items, 2)
	total, fee, discount := 0, 0, 0
	for _, item := range items {
		assert.Equal(t, enums.ItemKindPurchase, item.Kind)
		assert.Equal(t, enums.OrderStatusReserved, item.Status)
		assert.Equal(t, enums.PaymentStatusCompleted, item.PaymentStatus)
		assert.True(t, item.InventoryReserved)
		assert.True(t, item.InventoryDeducted)
		assert.Equal(t, item.NetCents+item.FeeShareCents, item.TotalCents)
		total += item.TotalCents
		fee += item.FeeShareCents
		discount += item.DiscountCents
	}
	assert.Equal(t, 293_000, total)
	assert.Equal(t, 50_000, fee)
	assert.Equal(t, 27_000, discount)

	// stock untouched by the webhook; it was already decremented
	var inv models.InventoryItem
	require.NoError(t, f.db.First(&inv, "product_id = ?", productA).Error)
	assert.Equal(t, 3, inv.QuantityOnHand)

	// session marked completed and notification written
	var session models.PaymentSession
	require.NoError(t, f.db.First(&session, "receipt_ref = ?", meta.ReceiptRef).Error)
	assert.Equal(t, enums.PaymentStatusCompleted, session.Status)

	var noteCount int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&noteCount).Error)
	assert.EqualValues(t, 1, noteCount)

	// retried delivery finds no cart rows and changes nothing
	outcome, err = f.svc.ProcessPayMongoEvent(context.Background(), paidEvent(t, "evt_cart_2", meta))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Status)

	var itemCount int64
	require.NoError(t, f.db.Model(&models.ReservationItem{}).Count(&itemCount).Error)
	assert.EqualValues(t, 2, itemCount)
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&noteCount).Error)
	assert.EqualValues(t, 1, noteCount)
}

func TestProcessDirectOriginEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	productID := uuid.New()
	require.NoError(t, f.db.Create(&models.InventoryItem{ProductID: productID, QuantityOnHand: 1}).Error)

	item := models.ReservationItem{
		ID:                uuid.New(),
		UserID:            f.userID,
		ProductID:         productID,
		Quantity:          1,
		Kind:              enums.ItemKindReservation,
		Status:            enums.OrderStatusPendingPayment,
		PaymentStatus:     enums.PaymentStatusPending,
		UnitPriceCents:    250_000,
		GrossCents:        250_000,
		NetCents:          250_000,
		FeeShareCents:     50_000,
		TotalCents:        300_000,
		InventoryReserved: true,
		ReceiptRef:        "TH-DIRECT1",
	}
	require.NoError(t, f.db.Create(&item).Error)

	meta := checkout.Metadata{
		Origin:           enums.CheckoutOriginDirect,
		UserID:           f.userID,
		ReceiptRef:       item.ReceiptRef,
		ItemIDs:          []uuid.UUID{item.ID},
		SubtotalCents:    250_000,
		ReservationCents: 50_000,
		TotalCents:       300_000,
	}
	f.seedSession(t, meta.ReceiptRef, enums.CheckoutOriginDirect, meta.TotalCents)

	outcome, err := f.svc.ProcessPayMongoEvent(context.Background(), paidEvent(t, "evt_direct_1", meta))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Equal(t, 1, outcome.Processed)

	var reloaded models.ReservationItem
	require.NoError(t, f.db.First(&reloaded, "id = ?", item.ID).Error)
	assert.Equal(t, enums.PaymentStatusCompleted, reloaded.PaymentStatus)
	assert.Equal(t, enums.OrderStatusReserved, reloaded.Status)
	assert.True(t, reloaded.InventoryDeducted)

	// reserved stock is not decremented a second time
	var inv models.InventoryItem
	require.NoError(t, f.db.First(&inv, "product_id = ?", productID).Error)
	assert.Equal(t, 1, inv.QuantityOnHand)

	// replayed delivery is a quiet no-op
	outcome, err = f.svc.ProcessPayMongoEvent(context.Background(), paidEvent(t, "evt_direct_2", meta))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Status)

	var noteCount int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&noteCount).Error)
	assert.EqualValues(t, 1, noteCount)
}

func TestProcessIgnoresOtherEventTypes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	payload := []byte(`{"data":{"id":"evt_other","attributes":{"type":"source.chargeable","data":{"id":"src_1","attributes":{}}}}}`)

	outcome, err := f.svc.ProcessPayMongoEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome.Status)
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	_, err := f.svc.ProcessPayMongoEvent(context.Background(), []byte(`{"data":{}}`))
	require.Error(t, err)
}

func TestProcessRejectsUnresolvableMetadata(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	payload := []byte(`{"data":{"id":"evt_bad","attributes":{"type":"checkout_session.payment.paid","data":{"id":"cs_1","attributes":{"metadata":{"origin":"cart"}}}}}}`)

	_, err := f.svc.ProcessPayMongoEvent(context.Background(), payload)
	require.Error(t, err)
}

func TestProcessGuardDropsDuplicates(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Minute, "paymongo")
	require.NoError(t, err)

	f := newFixture(t, guard)
	productID := uuid.New()
	require.NoError(t, f.db.Create(&models.InventoryItem{ProductID: productID, QuantityOnHand: 1}).Error)
	item := models.ReservationItem{
		ID:                uuid.New(),
		UserID:            f.userID,
		ProductID:         productID,
		Quantity:          1,
		Kind:              enums.ItemKindReservation,
		Status:            enums.OrderStatusPendingPayment,
		PaymentStatus:     enums.PaymentStatusPending,
		TotalCents:        300_000,
		InventoryReserved: true,
		ReceiptRef:        "TH-GUARD1",
	}
	require.NoError(t, f.db.Create(&item).Error)
	f.seedSession(t, item.ReceiptRef, enums.CheckoutOriginDirect, item.TotalCents)

	meta := checkout.Metadata{
		Origin:     enums.CheckoutOriginDirect,
		UserID:     f.userID,
		ReceiptRef: item.ReceiptRef,
		ItemIDs:    []uuid.UUID{item.ID},
		TotalCents: 300_000,
	}

	// same event id twice; the second never reaches the database
	_, err = f.svc.ProcessPayMongoEvent(context.Background(), paidEvent(t, "evt_dup", meta))
	require.NoError(t, err)
	outcome, err := f.svc.ProcessPayMongoEvent(context.Background(), paidEvent(t, "evt_dup", meta))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome.Status)
	assert.Zero(t, outcome.Processed)
}
