package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/internal/cart"
	"github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/internal/pricing"
	"github.com/kmdeleon/tahanan-backend/internal/products"
	"github.com/kmdeleon/tahanan-backend/pkg/config"
	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
	"github.com/kmdeleon/tahanan-backend/pkg/paypal"
	"github.com/kmdeleon/tahanan-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubPayMongo struct {
	lastParams paymongo.CheckoutSessionParams
	err        error
}

func (s *stubPayMongo) CreateCheckoutSession(_ context.Context, params paymongo.CheckoutSessionParams) (*paymongo.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastParams = params
	return &paymongo.CheckoutSession{ID: "cs_test", CheckoutURL: "https://checkout.test/cs_test"}, nil
}

type stubPayPal struct {
	lastParams paypal.OrderParams
}

func (s *stubPayPal) CreateOrder(_ context.Context, params paypal.OrderParams) (*paypal.Order, error) {
	s.lastParams = params
	return &paypal.Order{ID: "PP1", ApproveURL: "https://paypal.test/approve/PP1"}, nil
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	paymongo *stubPayMongo
	paypal   *stubPayPal
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.InventoryItem{},
		&models.CartItem{},
		&models.ReservationItem{},
		&models.PaymentSession{},
	))

	pm := &stubPayMongo{}
	pp := &stubPayPal{}
	svc, err := NewService(
		gormTxRunner{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		products.NewRepository(db),
		NewSessionRepository(db),
		pm,
		pp,
		config.CheckoutConfig{ReservationFeeCents: 50_000, Currency: "PHP", PHPPerUSD: "58.00"},
		nil,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, paymongo: pm, paypal: pp, userID: uuid.New()}
}

func (f *fixture) seedProduct(t *testing.T, name string, priceCents, stock int) models.Product {
	t.Helper()
	product := models.Product{ID: uuid.New(), Name: name, PriceCents: priceCents, Active: true}
	require.NoError(t, f.db.Create(&product).Error)
	require.NoError(t, f.db.Create(&models.InventoryItem{ProductID: product.ID, QuantityOnHand: stock}).Error)
	return product
}

func (f *fixture) seedCartItem(t *testing.T, product models.Product, qty int, addons ...types.Addon) models.CartItem {
	t.Helper()
	item := models.CartItem{
		ID:             uuid.New(),
		UserID:         f.userID,
		ProductID:      product.ID,
		Quantity:       qty,
		UnitPriceCents: product.PriceCents,
		Addons:         addons,
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func (f *fixture) seedReservationItem(t *testing.T, product models.Product, qty int) models.ReservationItem {
	t.Helper()
	item := models.ReservationItem{
		ID:             uuid.New(),
		UserID:         f.userID,
		ProductID:      product.ID,
		Quantity:       qty,
		Kind:           enums.ItemKindReservation,
		Status:         enums.OrderStatusPendingPayment,
		PaymentStatus:  enums.PaymentStatusPending,
		UnitPriceCents: product.PriceCents,
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var inv models.InventoryItem
	require.NoError(t, f.db.First(&inv, "product_id = ?", productID).Error)
	return inv.QuantityOnHand
}

func baseInput(f *fixture, origin Origin) SessionInput {
	return SessionInput{
		UserID:        f.userID,
		Origin:        origin,
		PaymentMethod: enums.PaymentMethodPayMongo,
		SuccessURL:    "https://shop.test/success",
		CancelURL:     "https://shop.test/cancel",
	}
}

func TestCreateSessionCartOrigin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	table := f.seedProduct(t, "Narra Dining Table", 100_000, 5)
	stool := f.seedProduct(t, "Rattan Stool", 50_000, 3)
	a := f.seedCartItem(t, table, 2, types.Addon{Name: "upholstery", FeeCents: 20_000})
	b := f.seedCartItem(t, stool, 1)

	input := baseInput(f, OriginCart{CartItemIDs: []uuid.UUID{a.ID, b.ID}})
	input.Voucher = &pricing.Voucher{Code: "WELCOME10", Type: enums.VoucherTypePercent, Value: 10}

	result, err := f.svc.CreateSession(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "cs_test", result.ProviderSessionID)
	assert.Equal(t, "https://checkout.test/cs_test", result.CheckoutURL)
	assert.Equal(t, 293_000, result.AmountCents)
	assert.NotEmpty(t, result.ReceiptRef)

	// stock held for both products
	assert.Equal(t, 3, f.stock(t, table.ID))
	assert.Equal(t, 2, f.stock(t, stool.ID))

	// cart rows stay until the webhook converts them
	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&cartCount).Error)
	assert.EqualValues(t, 2, cartCount)

	// session row persisted as pending
	var session models.PaymentSession
	require.NoError(t, f.db.First(&session, "receipt_ref = ?", result.ReceiptRef).Error)
	assert.Equal(t, enums.PaymentStatusPending, session.Status)
	assert.Equal(t, enums.CheckoutOriginCart, session.Origin)
	assert.Equal(t, 293_000, session.AmountCents)

	// metadata carries the correlation payload and breakdown echo
	meta, err := ParseMetadata(f.paymongo.lastParams.Metadata)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutOriginCart, meta.Origin)
	assert.Equal(t, f.userID, meta.UserID)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, meta.CartItemIDs)
	assert.Equal(t, 27_000, meta.DiscountCents)
	assert.Equal(t, 50_000, meta.ReservationCents)
	assert.Equal(t, 293_000, meta.TotalCents)

	// provider line items sum to the charged total
	sum := 0
	for _, li := range f.paymongo.lastParams.LineItems {
		sum += li.Amount * li.Quantity
	}
	assert.Equal(t, 293_000, sum)
}

func TestCreateSessionDirectOrigin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bed := f.seedProduct(t, "Narra Bed Frame", 250_000, 2)
	item := f.seedReservationItem(t, bed, 1)

	result, err := f.svc.CreateSession(context.Background(), baseInput(f, OriginDirect{ItemIDs: []uuid.UUID{item.ID}}))
	require.NoError(t, err)
	assert.Equal(t, 300_000, result.AmountCents)

	assert.Equal(t, 1, f.stock(t, bed.ID))

	var reloaded models.ReservationItem
	require.NoError(t, f.db.First(&reloaded, "id = ?", item.ID).Error)
	assert.True(t, reloaded.InventoryReserved)
	assert.Equal(t, result.ReceiptRef, reloaded.ReceiptRef)
	assert.Equal(t, 250_000, reloaded.GrossCents)
	assert.Equal(t, 50_000, reloaded.FeeShareCents)
	assert.Equal(t, 300_000, reloaded.TotalCents)
}

func TestCreateSessionDirectRetrySkipsReservedStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bed := f.seedProduct(t, "Narra Bed Frame", 250_000, 2)
	item := f.seedReservationItem(t, bed, 1)

	_, err := f.svc.CreateSession(context.Background(), baseInput(f, OriginDirect{ItemIDs: []uuid.UUID{item.ID}}))
	require.NoError(t, err)
	require.Equal(t, 1, f.stock(t, bed.ID))

	// retry on the same record holds no additional stock
	_, err = f.svc.CreateSession(context.Background(), baseInput(f, OriginDirect{ItemIDs: []uuid.UUID{item.ID}}))
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, bed.ID))
}

func TestCreateSessionInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	table := f.seedProduct(t, "Narra Dining Table", 100_000, 5)
	stool := f.seedProduct(t, "Rattan Stool", 50_000, 1)
	a := f.seedCartItem(t, table, 2)
	b := f.seedCartItem(t, stool, 3)

	_, err := f.svc.CreateSession(context.Background(), baseInput(f, OriginCart{CartItemIDs: []uuid.UUID{a.ID, b.ID}}))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// all-or-nothing: the first decrement rolled back too
	assert.Equal(t, 5, f.stock(t, table.ID))
	assert.Equal(t, 1, f.stock(t, stool.ID))

	var sessionCount int64
	require.NoError(t, f.db.Model(&models.PaymentSession{}).Count(&sessionCount).Error)
	assert.Zero(t, sessionCount)
}

func TestCreateSessionProviderFailureKeepsReservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bed := f.seedProduct(t, "Narra Bed Frame", 250_000, 2)
	item := f.seedReservationItem(t, bed, 1)
	f.paymongo.err = pkgerrors.New(pkgerrors.CodeDependency, "paymongo: unexpected status 502")

	_, err := f.svc.CreateSession(context.Background(), baseInput(f, OriginDirect{ItemIDs: []uuid.UUID{item.ID}}))
	require.Error(t, err)

	// reserved stock is kept; a retry skips the second decrement
	assert.Equal(t, 1, f.stock(t, bed.ID))

	var sessionCount int64
	require.NoError(t, f.db.Model(&models.PaymentSession{}).Count(&sessionCount).Error)
	assert.Zero(t, sessionCount)
}

func TestCreateSessionPayPal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bed := f.seedProduct(t, "Narra Bed Frame", 250_000, 2)
	item := f.seedReservationItem(t, bed, 1)

	input := baseInput(f, OriginDirect{ItemIDs: []uuid.UUID{item.ID}})
	input.PaymentMethod = enums.PaymentMethodPayPal

	result, err := f.svc.CreateSession(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "PP1", result.ProviderSessionID)
	assert.Equal(t, "https://paypal.test/approve/PP1", result.CheckoutURL)
	assert.Equal(t, result.ReceiptRef, f.paypal.lastParams.ReferenceID)
	assert.Equal(t, 300_000, f.paypal.lastParams.AmountCents)
}

func TestCreateSessionDirectRejectsPurchaseKind(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	bed := f.seedProduct(t, "Narra Bed Frame", 250_000, 2)
	item := f.seedReservationItem(t, bed, 1)
	require.NoError(t, f.db.Model(&models.ReservationItem{}).Where("id = ?", item.ID).
		Update("kind", enums.ItemKindPurchase).Error)

	_, err := f.svc.CreateSession(context.Background(), baseInput(f, OriginDirect{ItemIDs: []uuid.UUID{item.ID}}))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateSessionForeignCartItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	table := f.seedProduct(t, "Narra Dining Table", 100_000, 5)
	item := f.seedCartItem(t, table, 1)
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("id = ?", item.ID).
		Update("user_id", uuid.New()).Error)

	_, err := f.svc.CreateSession(context.Background(), baseInput(f, OriginCart{CartItemIDs: []uuid.UUID{item.ID}}))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCreateSessionValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cases := []struct {
		name  string
		input SessionInput
	}{
		{name: "missing user", input: SessionInput{Origin: OriginCart{CartItemIDs: []uuid.UUID{uuid.New()}}, PaymentMethod: enums.PaymentMethodPayMongo, SuccessURL: "a", CancelURL: "b"}},
		{name: "missing origin", input: SessionInput{UserID: f.userID, PaymentMethod: enums.PaymentMethodPayMongo, SuccessURL: "a", CancelURL: "b"}},
		{name: "missing urls", input: SessionInput{UserID: f.userID, Origin: OriginCart{CartItemIDs: []uuid.UUID{uuid.New()}}, PaymentMethod: enums.PaymentMethodPayMongo}},
		{name: "bad method", input: SessionInput{UserID: f.userID, Origin: OriginCart{CartItemIDs: []uuid.UUID{uuid.New()}}, PaymentMethod: enums.PaymentMethod("cash"), SuccessURL: "a", CancelURL: "b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateSession(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}
