package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/api/middleware"
	"github.com/angelmondragon/wholesale-storefront/internal/cart"
	"github.com/angelmondragon/wholesale-storefront/internal/checkout"
	"github.com/angelmondragon/wholesale-storefront/internal/orders"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/internal/wholesale"
	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
	"github.com/angelmondragon/wholesale-storefront/pkg/pagination"
)

type stubCheckoutService struct {
	input checkout.PlaceOrderInput
	order *models.Order
	err   error
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, _ uuid.UUID, input checkout.PlaceOrderInput) (*models.Order, error) {
	s.input = input
	return s.order, s.err
}

type stubOrdersService struct {
	order  *models.Order
	list   []models.Order
	page   *orders.OrderList
	update orders.UpdateStatusInput
	err    error
}

func (s *stubOrdersService) ListOrders(context.Context, uuid.UUID) ([]models.Order, error) {
	return s.list, s.err
}

func (s *stubOrdersService) GetOrder(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrdersService) ListAllOrders(context.Context, pagination.Params) (*orders.OrderList, error) {
	return s.page, s.err
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
	s.update = input
	return s.order, s.err
}

type stubCartService struct {
	added cart.AddItemInput
	err   error
}

func (s *stubCartService) AddItem(_ context.Context, userID uuid.UUID, input cart.AddItemInput) (*models.CartItem, error) {
	s.added = input
	if s.err != nil {
		return nil, s.err
	}
	return &models.CartItem{ID: uuid.New(), UserID: userID, ProductID: input.ProductID, VariantID: input.VariantID, Quantity: input.Quantity}, nil
}

func (s *stubCartService) UpdateQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*models.CartItem, error) {
	return nil, s.err
}

func (s *stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) error { return s.err }

func (s *stubCartService) Clear(context.Context, uuid.UUID) error { return s.err }

func (s *stubCartService) List(context.Context, uuid.UUID) (*cart.View, error) {
	return &cart.View{}, s.err
}

type stubWholesaleService struct {
	review wholesale.ReviewInput
	app    *models.WholesaleApplication
	err    error
}

func (s *stubWholesaleService) VolumeDiscountRate(context.Context, *models.User) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubWholesaleService) PricingContext(context.Context, uuid.UUID) (pricing.Context, error) {
	return pricing.Context{}, nil
}

func (s *stubWholesaleService) Apply(context.Context, uuid.UUID, wholesale.ApplyInput) (*models.WholesaleApplication, error) {
	return s.app, s.err
}

func (s *stubWholesaleService) GetApplication(context.Context, uuid.UUID) (*models.WholesaleApplication, error) {
	return s.app, s.err
}

func (s *stubWholesaleService) Review(_ context.Context, input wholesale.ReviewInput) (*models.WholesaleApplication, error) {
	s.review = input
	return s.app, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func authedRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), userID)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func sampleOrder(userID uuid.UUID) *models.Order {
	sku := "TRAY-L"
	return &models.Order{
		ID:             uuid.New(),
		UserID:         userID,
		Subtotal:       decimal.RequireFromString("85.46"),
		TaxAmount:      decimal.RequireFromString("6.84"),
		ShippingCost:   decimal.Zero,
		TotalAmount:    decimal.RequireFromString("92.30"),
		Currency:       "USD",
		ShippingMethod: "ground",
		PaymentMethod:  "card",
		Status:         enums.OrderStatusPending,
		IsWholesale:    true,
		Items: []models.OrderItem{{
			ID:           uuid.New(),
			ProductID:    uuid.New(),
			ProductName:  "Rolling Tray",
			VariantSKU:   &sku,
			Quantity:     5,
			UnitPrice:    decimal.RequireFromString("17.091"),
			DiscountRate: decimal.RequireFromString("0.10"),
			LineTotal:    decimal.RequireFromString("85.455"),
		}},
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{order: sampleOrder(userID)}

	req := authedRequest(http.MethodPost, "/api/v1/checkout", `{"shipping_method":"ground","shipping_cost":"15.00","payment_method":"card"}`, userID, nil)
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.input.ShippingCost.Equal(decimal.RequireFromString("15")) || svc.input.ShippingMethod != "ground" {
		t.Fatalf("unexpected input %+v", svc.input)
	}

	var body struct {
		Data orderResponse `json:"data"`
	}
	decodeBody(t, rec, &body)
	if body.Data.TotalAmount.String() != "92.3" || len(body.Data.Items) != 1 {
		t.Fatalf("unexpected order payload %+v", body.Data)
	}
	if body.Data.Items[0].UnitPrice.String() != "17.091" {
		t.Fatalf("unit price must be exposed unrounded, got %s", body.Data.Items[0].UnitPrice)
	}
}

func TestCheckoutMapsServiceErrors(t *testing.T) {
	userID := uuid.New()
	for code, want := range map[pkgerrors.Code]int{
		pkgerrors.CodeEmptyCart:           pkgerrors.MetadataFor(pkgerrors.CodeEmptyCart).HTTPStatus,
		pkgerrors.CodeInsufficientStock:   http.StatusConflict,
		pkgerrors.CodeOrderCreationFailed: http.StatusInternalServerError,
	} {
		svc := &stubCheckoutService{err: pkgerrors.New(code, "nope")}
		req := authedRequest(http.MethodPost, "/api/v1/checkout", `{"shipping_method":"ground","payment_method":"card"}`, userID, nil)
		rec := httptest.NewRecorder()
		Checkout(svc, nil).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", code, want, rec.Code)
		}
	}
}

func TestCheckoutRequiresAuthenticatedUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	Checkout(&stubCheckoutService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCartAddItemValidatesBody(t *testing.T) {
	svc := &stubCartService{}
	userID := uuid.New()

	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"`+uuid.NewString()+`","quantity":0}`, userID, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
	}

	productID := uuid.New()
	rec = httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"`+productID.String()+`","quantity":3}`, userID, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.added.ProductID != productID || svc.added.Quantity != 3 || svc.added.VariantID != nil {
		t.Fatalf("unexpected add input %+v", svc.added)
	}
}

func TestCartRemoveItemRejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodDelete, "/api/v1/cart/items/nope", "", uuid.New(), map[string]string{"itemId": "nope"})
	CartRemoveItem(&stubCartService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetOrderForbiddenForOtherUser(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")}
	orderID := uuid.New()
	req := authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", uuid.New(), map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	GetOrder(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminUpdateOrderStatusPassesActor(t *testing.T) {
	adminID := uuid.New()
	order := sampleOrder(uuid.New())
	order.Status = enums.OrderStatusProcessing
	svc := &stubOrdersService{order: order}

	req := authedRequest(http.MethodPatch, "/api/admin/v1/orders/"+order.ID.String()+"/status", `{"status":"processing"}`, adminID, map[string]string{"orderId": order.ID.String()})
	rec := httptest.NewRecorder()
	AdminUpdateOrderStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.update.ActorID != adminID || svc.update.OrderID != order.ID || svc.update.Status != "processing" {
		t.Fatalf("unexpected update input %+v", svc.update)
	}
}

func TestAdminListOrdersWritesPage(t *testing.T) {
	svc := &stubOrdersService{page: &orders.OrderList{Orders: []models.Order{*sampleOrder(uuid.New())}, NextCursor: "c1"}}
	rec := httptest.NewRecorder()
	AdminListOrders(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/admin/v1/orders?limit=1", "", uuid.New(), nil))

	var body struct {
		Data struct {
			Items      []orderResponse `json:"items"`
			NextCursor string          `json:"next_cursor"`
		} `json:"data"`
	}
	decodeBody(t, rec, &body)
	if len(body.Data.Items) != 1 || body.Data.NextCursor != "c1" {
		t.Fatalf("unexpected page %+v", body.Data)
	}
}

func TestAdminReviewApplicationValidatesDecision(t *testing.T) {
	svc := &stubWholesaleService{}
	appID := uuid.New()
	params := map[string]string{"applicationId": appID.String()}

	rec := httptest.NewRecorder()
	AdminReviewApplication(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"decision":"maybe"}`, uuid.New(), params))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	svc.app = &models.WholesaleApplication{ID: appID, Status: enums.ApplicationStatusApproved}
	reviewer := uuid.New()
	rec = httptest.NewRecorder()
	AdminReviewApplication(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"decision":"approve"}`, reviewer, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.review.Decision != enums.ReviewDecisionApprove || svc.review.ReviewerID != reviewer || svc.review.ApplicationID != appID {
		t.Fatalf("unexpected review input %+v", svc.review)
	}
}

func TestWholesaleApplyConflict(t *testing.T) {
	svc := &stubWholesaleService{err: pkgerrors.New(pkgerrors.CodeConflict, "application already submitted")}
	body := `{"business_name":"Acme","tax_id":"12-345","business_address":"1 Main St","phone":"555-0100"}`
	rec := httptest.NewRecorder()
	WholesaleApply(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/wholesale/applications", body, uuid.New(), nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHealthReadyReportsDependencies(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
