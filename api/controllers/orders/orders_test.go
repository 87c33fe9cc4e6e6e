package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kmdeleon/tahanan-backend/api/middleware"
	internalorders "github.com/kmdeleon/tahanan-backend/internal/orders"
	"github.com/kmdeleon/tahanan-backend/pkg/db/models"
	"github.com/kmdeleon/tahanan-backend/pkg/enums"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/pagination"
)

type stubOrdersService struct {
	items      []models.ReservationItem
	nextCursor string
	listParams *pagination.Params
	item       *models.ReservationItem
	cancelArgs *internalorders.CancelInput
	err        error
}

func (s *stubOrdersService) Get(ctx context.Context, userID, id uuid.UUID) (*models.ReservationItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.item, nil
}

func (s *stubOrdersService) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.ReservationItem, string, error) {
	s.listParams = &params
	if s.err != nil {
		return nil, "", s.err
	}
	return s.items, s.nextCursor, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) (*models.ReservationItem, error) {
	s.cancelArgs = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.item, nil
}

func (s *stubOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.ReservationItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.item, nil
}

func requestWithIdentity(method, target, body, userID, orderID string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithUserID(req.Context(), userID)
	if orderID != "" {
		rc := chi.NewRouteContext()
		rc.URLParams.Add("orderId", orderID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func sampleItem(userID uuid.UUID) *models.ReservationItem {
	return &models.ReservationItem{
		ID:         uuid.New(),
		UserID:     userID,
		ProductID:  uuid.New(),
		Quantity:   2,
		Kind:       enums.ItemKindReservation,
		Status:     enums.OrderStatusReserved,
		TotalCents: 152_000,
	}
}

func TestListReturnsCallerOrders(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{items: []models.ReservationItem{*sampleItem(userID), *sampleItem(userID)}}

	rec := httptest.NewRecorder()
	List(svc, nil)(rec, requestWithIdentity(http.MethodGet, "/api/v1/orders", "", userID.String(), ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Orders     []internalorders.OrderResponse `json:"orders"`
			NextCursor string                         `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 2 {
		t.Fatalf("expected 2 orders got %d", len(envelope.Data.Orders))
	}
	if svc.listParams == nil || svc.listParams.Limit != pagination.DefaultLimit {
		t.Fatalf("expected default limit passed through, got %+v", svc.listParams)
	}
}

func TestListPassesPaginationParams(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		items:      []models.ReservationItem{*sampleItem(userID), *sampleItem(userID)},
		nextCursor: "opaque-cursor",
	}

	rec := httptest.NewRecorder()
	List(svc, nil)(rec, requestWithIdentity(http.MethodGet, "/api/v1/orders?limit=2&cursor=abc123", "", userID.String(), ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.listParams == nil || svc.listParams.Limit != 2 || svc.listParams.Cursor != "abc123" {
		t.Fatalf("pagination params not propagated: %+v", svc.listParams)
	}

	var envelope struct {
		Data struct {
			NextCursor string `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.NextCursor != "opaque-cursor" {
		t.Fatalf("expected next cursor surfaced, got %q", envelope.Data.NextCursor)
	}
}

func TestListRejectsOutOfRangeLimit(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	List(svc, nil)(rec, requestWithIdentity(http.MethodGet, "/api/v1/orders?limit=5000", "", uuid.NewString(), ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.listParams != nil {
		t.Fatalf("service should not be called on bad limit")
	}
}

func TestDetailRejectsBadOrderID(t *testing.T) {
	svc := &stubOrdersService{}
	rec := httptest.NewRecorder()
	Detail(svc, nil)(rec, requestWithIdentity(http.MethodGet, "/api/v1/orders/nope", "", uuid.NewString(), "nope"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDetailMapsNotFound(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	orderID := uuid.NewString()

	rec := httptest.NewRecorder()
	Detail(svc, nil)(rec, requestWithIdentity(http.MethodGet, "/api/v1/orders/"+orderID, "", uuid.NewString(), orderID))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCancelPassesReason(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{item: sampleItem(userID)}
	orderID := uuid.New()

	rec := httptest.NewRecorder()
	req := requestWithIdentity(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel",
		`{"reason":"changed my mind"}`, userID.String(), orderID.String())
	Cancel(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.cancelArgs == nil {
		t.Fatalf("cancel not invoked")
	}
	if svc.cancelArgs.UserID != userID || svc.cancelArgs.OrderID != orderID {
		t.Fatalf("identity or order id not propagated: %+v", svc.cancelArgs)
	}
	if svc.cancelArgs.Reason != "changed my mind" {
		t.Fatalf("reason not propagated: %q", svc.cancelArgs.Reason)
	}
}

func TestCancelAllowsEmptyBody(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{item: sampleItem(userID)}
	orderID := uuid.New()

	rec := httptest.NewRecorder()
	req := requestWithIdentity(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", "", userID.String(), orderID.String())
	Cancel(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelMapsStateConflict(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order already completed")}
	orderID := uuid.NewString()

	rec := httptest.NewRecorder()
	req := requestWithIdentity(http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", "", uuid.NewString(), orderID)
	Cancel(svc, nil)(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}
