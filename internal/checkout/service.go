package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kmdeleon/tahanan-backend/internal/cart"
	"github.com/kmdeleon/tahanan-backend/internal/checkout/reservation"
	"github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/internal/pricing"
	"github.com/kmdeleon/tahanan-backend/pkg/config"
	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
	"github.com/kmdeleon/tahanan-backend/pkg/metrics"
	"github.com/kmdeleon/tahanan-backend/pkg/paymongo"
	"github.com/kmdeleon/tahanan-backend/pkg/paypal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCatalog interface {
	MapByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type paymongoProvider interface {
	CreateCheckoutSession(ctx context.Context, params paymongo.CheckoutSessionParams) (*paymongo.CheckoutSession, error)
}

type paypalProvider interface {
	CreateOrder(ctx context.Context, params paypal.OrderParams) (*paypal.Order, error)
}

// Service creates provider checkout sessions.
type Service interface {
	CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error)
}

type service struct {
	tx          txRunner
	cartRepo    *cart.Repository
	ordersRepo  orders.Repository
	productRepo productCatalog
	sessions    SessionRepository
	paymongo    paymongoProvider
	paypal      paypalProvider
	cfg         config.CheckoutConfig
	phpPerUSD   decimal.Decimal
	metrics     *metrics.CheckoutMetrics
	logger      *logger.Logger
}

// NewService builds the checkout service. The paypal provider may be nil
// when that method is not configured; requests selecting it are rejected.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	ordersRepo orders.Repository,
	productRepo productCatalog,
	sessions SessionRepository,
	paymongoClient paymongoProvider,
	paypalClient paypalProvider,
	cfg config.CheckoutConfig,
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
	if productRepo == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if paymongoClient == nil {
		return nil, fmt.Errorf("paymongo client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	rate, err := decimal.NewFromString(cfg.PHPPerUSD)
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("invalid php per usd rate %q", cfg.PHPPerUSD)
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		productRepo: productRepo,
		sessions:    sessions,
		paymongo:    paymongoClient,
		paypal:      paypalClient,
		cfg:         cfg,
		phpPerUSD:   rate,
		metrics:     checkoutMetrics,
		logger:      logg,
	}, nil
}

// resolved is the priced, reserved state of one checkout attempt.
type resolved struct {
	priced      *pricing.Result
	cartItemIDs []uuid.UUID
	itemIDs     []uuid.UUID
	names       map[uuid.UUID]string
}

func (s *service) CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	receiptRef := input.ReceiptRef
	if receiptRef == "" {
		receiptRef = "TH-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}

	ctx = s.logger.WithReceiptRef(ctx, receiptRef)

	var state *resolved
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var terr error
		switch origin := input.Origin.(type) {
		case OriginCart:
			state, terr = s.resolveCart(ctx, tx, input, origin)
		case OriginDirect:
			state, terr = s.resolveDirect(ctx, tx, input, origin, receiptRef)
		default:
			terr = pkgerrors.New(pkgerrors.CodeValidation, "unsupported checkout origin")
		}
		return terr
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncInventoryConflict()
		}
		s.metrics.IncSession(input.PaymentMethod.String(), "rejected")
		return nil, err
	}

	meta := s.buildMetadata(input, state, receiptRef)

	providerSessionID, checkoutURL, err := s.createProviderSession(ctx, input, state, meta, receiptRef)
	if err != nil {
		// reserved stock is intentionally kept; the customer can retry the
		// same records and the provenance flags skip the second decrement
		s.metrics.IncSession(input.PaymentMethod.String(), "provider_error")
		return nil, err
	}

	session := &models.PaymentSession{
		UserID:            input.UserID,
		Provider:          input.PaymentMethod,
		ProviderSessionID: providerSessionID,
		CheckoutURL:       checkoutURL,
		AmountCents:       state.priced.TotalCents,
		Currency:          enums.CurrencyPHP,
		Status:            enums.PaymentStatusPending,
		Origin:            input.Origin.Kind(),
		ReceiptRef:        receiptRef,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.IncSession(input.PaymentMethod.String(), "created")
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"provider":     input.PaymentMethod.String(),
		"amount_cents": state.priced.TotalCents,
		"origin":       input.Origin.Kind().String(),
	}), "checkout session created")

	return &SessionResult{
		SessionID:         session.ID,
		ProviderSessionID: providerSessionID,
		CheckoutURL:       checkoutURL,
		ReceiptRef:        receiptRef,
		AmountCents:       state.priced.TotalCents,
	}, nil
}

func validateInput(input SessionInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Origin == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout origin required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.SuccessURL == "" || input.CancelURL == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls are required")
	}
	return nil
}

// resolveCart prices the referenced cart rows and reserves their stock.
// The rows stay in the cart; the webhook converts them into reservation
// items once payment lands.
func (s *service) resolveCart(ctx context.Context, tx *gorm.DB, input SessionInput, origin OriginCart) (*resolved, error) {
	items, err := s.cartRepo.WithTx(tx).ListByIDs(ctx, origin.CartItemIDs)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	lines := make([]pricing.Line, 0, len(items))
	requests := make([]reservation.Request, 0, len(items))
	for _, item := range items {
		if item.UserID != input.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another user")
		}
		productIDs = append(productIDs, item.ProductID)
		lines = append(lines, pricing.Line{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			Addons:         item.Addons,
		})
		requests = append(requests, reservation.Request{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	names, err := s.productNames(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	priced, err := pricing.Price(lines, input.Voucher, s.cfg.ReservationFeeCents)
	if err != nil {
		return nil, err
	}
	if _, err := reservation.Reserve(ctx, tx, requests); err != nil {
		return nil, err
	}

	return &resolved{priced: priced, cartItemIDs: origin.CartItemIDs, names: names}, nil
}

// resolveDirect prices existing reservation items, reserves any stock not
// already held, and stamps the breakdown and receipt ref onto the rows.
func (s *service) resolveDirect(ctx context.Context, tx *gorm.DB, input SessionInput, origin OriginDirect, receiptRef string) (*resolved, error) {
	repo := s.ordersRepo.WithTx(tx)
	items, err := repo.ListByIDs(ctx, origin.ItemIDs)
	if err != nil {
		return nil, err
	}
	if len(items) != len(origin.ItemIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "one or more reservation items not found")
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	lines := make([]pricing.Line, 0, len(items))
	requests := make([]reservation.Request, 0, len(items))
	for i := range items {
		item := items[i]
		if item.UserID != input.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reservation item belongs to another user")
		}
		if item.Kind != enums.ItemKindReservation {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "direct checkout only accepts reservation items")
		}
		if item.PaymentStatus == enums.PaymentStatusCompleted {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation item already paid")
		}
		productIDs = append(productIDs, item.ProductID)
		lines = append(lines, pricing.Line{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			Addons:         item.Addons,
		})
		requests = append(requests, reservation.Request{
			ItemID:          &items[i].ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			AlreadyReserved: item.InventoryReserved,
		})
	}

	names, err := s.productNames(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	priced, err := pricing.Price(lines, input.Voucher, s.cfg.ReservationFeeCents)
	if err != nil {
		return nil, err
	}
	if _, err := reservation.Reserve(ctx, tx, requests); err != nil {
		return nil, err
	}

	for i, pl := range priced.Lines {
		updates := map[string]any{
			"gross_cents":     pl.GrossCents,
			"discount_cents":  pl.DiscountCents,
			"net_cents":       pl.NetCents,
			"fee_share_cents": pl.FeeShareCents,
			"total_cents":     pl.TotalCents,
			"receipt_ref":     receiptRef,
		}
		if input.Voucher != nil {
			updates["voucher_code"] = input.Voucher.Code
		}
		if err := repo.Update(ctx, items[i].ID, updates); err != nil {
			return nil, err
		}
	}

	return &resolved{priced: priced, itemIDs: origin.ItemIDs, names: names}, nil
}

func (s *service) productNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	productsByID, err := s.productRepo.MapByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(productsByID))
	for id, product := range productsByID {
		names[id] = product.Name
	}
	return names, nil
}

func (s *service) buildMetadata(input SessionInput, state *resolved, receiptRef string) Metadata {
	meta := Metadata{
		Origin:            input.Origin.Kind(),
		UserID:            input.UserID,
		ReceiptRef:        receiptRef,
		CartItemIDs:       state.cartItemIDs,
		ItemIDs:           state.itemIDs,
		SubtotalCents:     state.priced.SubtotalCents,
		AddonsTotalCents:  state.priced.AddonsTotalCents,
		DiscountCents:     state.priced.DiscountCents,
		ReservationCents:  state.priced.ReservationFeeCents,
		TotalCents:        state.priced.TotalCents,
		DeliveryAddressID: input.DeliveryAddressID,
		Branch:            input.Branch,
	}
	if input.Voucher != nil {
		meta.VoucherCode = input.Voucher.Code
	}
	return meta
}

func (s *service) createProviderSession(ctx context.Context, input SessionInput, state *resolved, meta Metadata, receiptRef string) (string, string, error) {
	switch input.PaymentMethod {
	case enums.PaymentMethodPayMongo:
		lineItems := make([]paymongo.LineItem, 0, len(state.priced.Lines))
		for _, pl := range state.priced.Lines {
			name := state.names[pl.ProductID]
			if name == "" {
				name = pl.ProductID.String()
			}
			// per-line totals as single units so the provider charge matches
			// the allocator output exactly
			lineItems = append(lineItems, paymongo.LineItem{
				Name:     fmt.Sprintf("%s x%d", name, pl.Quantity),
				Amount:   pl.TotalCents,
				Quantity: 1,
			})
		}
		session, err := s.paymongo.CreateCheckoutSession(ctx, paymongo.CheckoutSessionParams{
			LineItems:   lineItems,
			SuccessURL:  input.SuccessURL,
			CancelURL:   input.CancelURL,
			Description: "Tahanan checkout " + receiptRef,
			Metadata:    meta.Encode(),
		})
		if err != nil {
			return "", "", err
		}
		return session.ID, session.CheckoutURL, nil

	case enums.PaymentMethodPayPal:
		if s.paypal == nil {
			return "", "", pkgerrors.New(pkgerrors.CodeDependency, "paypal is not configured")
		}
		order, err := s.paypal.CreateOrder(ctx, paypal.OrderParams{
			AmountCents: state.priced.TotalCents,
			PHPPerUSD:   s.phpPerUSD,
			ReferenceID: receiptRef,
			Description: "Tahanan checkout " + receiptRef,
			ReturnURL:   input.SuccessURL,
			CancelURL:   input.CancelURL,
		})
		if err != nil {
			return "", "", err
		}
		return order.ID, order.ApproveURL, nil
	}
	return "", "", pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
}
