package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/internal/cart"
	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/orders"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/internal/users"
	"github.com/angelmondragon/wholesale-storefront/internal/wholesale"
	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/dbtest"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

// racingUnitOfWork runs a competing write just before the commit starts.
type racingUnitOfWork struct {
	inner  *db.Client
	before func()
}

func (r racingUnitOfWork) Apply(ctx context.Context, mutations ...db.Mutation) error {
	r.before()
	return r.inner.Apply(ctx, mutations...)
}

// faultyUnitOfWork fails the commit right after the given number of steps.
type faultyUnitOfWork struct {
	inner *db.Client
	after int
	err   error
}

func (f faultyUnitOfWork) Apply(ctx context.Context, mutations ...db.Mutation) error {
	injected := append([]db.Mutation{}, mutations[:f.after]...)
	injected = append(injected, func(*gorm.DB) error { return f.err })
	injected = append(injected, mutations[f.after:]...)
	return f.inner.Apply(ctx, injected...)
}

type recordedMetrics struct {
	placed   int
	failures []string
}

func (r *recordedMetrics) OrderPlaced(bool, int, time.Duration) { r.placed++ }
func (r *recordedMetrics) OrderFailed(reason string, _ time.Duration) {
	r.failures = append(r.failures, reason)
}

type fixture struct {
	client    *db.Client
	users     users.Repository
	wholesale wholesale.Repository
	orders    orders.Repository
	metrics   *recordedMetrics
	params    ServiceParams
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.NewSQLite(t)
	usersRepo := users.NewRepository(client.DB())
	wholesaleRepo := wholesale.NewRepository(client.DB())
	wholesaleSvc, err := wholesale.NewService(client, wholesaleRepo, usersRepo, config.WholesaleConfig{
		MinLineQuantity:         3,
		VolumeDiscountThreshold: 10000,
		VolumeDiscountRate:      decimal.RequireFromString("0.10"),
	}, nil)
	require.NoError(t, err)

	f := &fixture{
		client:    client,
		users:     usersRepo,
		wholesale: wholesaleRepo,
		orders:    orders.NewRepository(client.DB()),
		metrics:   &recordedMetrics{},
	}
	f.params = ServiceParams{
		UnitOfWork: client,
		Cart:       cart.NewRepository(client.DB()),
		Catalog:    catalog.NewRepository(client.DB()),
		Orders:     f.orders,
		Wholesale:  wholesaleRepo,
		Pricing:    wholesaleSvc,
		Engine:     pricing.NewEngine(decimal.RequireFromString("0.08")),
		Metrics:    f.metrics,
	}
	return f
}

func (f *fixture) service(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(f.params)
	require.NoError(t, err)
	return svc
}

func (f *fixture) retailUser(t *testing.T) uuid.UUID {
	t.Helper()
	user, err := f.users.Create(context.Background(), users.CreateUserDTO{Email: uuid.NewString() + "@example.com"})
	require.NoError(t, err)
	return user.ID
}

func (f *fixture) wholesaleUser(t *testing.T, unitsOrdered int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	user, err := f.users.Create(ctx, users.CreateUserDTO{
		Email:       uuid.NewString() + "@example.com",
		AccountType: enums.AccountTypeWholesale,
		Approved:    true,
	})
	require.NoError(t, err)
	require.NoError(t, f.wholesale.Create(ctx, &models.WholesaleApplication{
		UserID:            user.ID,
		BusinessName:      "Corner Smoke Shop",
		TaxID:             "98-7654321",
		BusinessAddress:   "12 Market St",
		Phone:             "555-0142",
		Status:            enums.ApplicationStatusApproved,
		TotalUnitsOrdered: unitsOrdered,
	}))
	return user.ID
}

func (f *fixture) simpleProduct(t *testing.T, retail, wholesalePrice string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:           "Glass Ashtray",
		Category:       "accessories",
		SKU:            "ASH-" + uuid.NewString()[:8],
		ProductType:    enums.ProductTypeSimple,
		MOQ:            1,
		RetailPrice:    decimal.RequireFromString(retail),
		WholesalePrice: decimal.RequireFromString(wholesalePrice),
		StockQuantity:  stock,
		IsActive:       true,
	}
	require.NoError(t, f.client.DB().Create(p).Error)
	return p
}

func (f *fixture) variableProduct(t *testing.T, variantStock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          "Rolling Papers",
		Category:      "papers",
		SKU:           "PAP-" + uuid.NewString()[:8],
		ProductType:   enums.ProductTypeVariable,
		MOQ:           1,
		StockQuantity: 500,
		IsActive:      true,
		Variants: []models.ProductVariant{
			{SKU: "PAP-KS-" + uuid.NewString()[:8], Size: "king size", Packet: "32", RetailPrice: decimal.RequireFromString("3.25"), WholesalePrice: decimal.RequireFromString("2.10"), StockQuantity: variantStock, SortOrder: 1, IsDefault: true, IsActive: true},
		},
	}
	require.NoError(t, f.client.DB().Create(p).Error)
	return p
}

func (f *fixture) addLine(t *testing.T, userID, productID uuid.UUID, variantID *uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.client.DB().Create(&models.CartItem{
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
	}).Error)
}

func (f *fixture) productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.client.DB().First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func standardInput() PlaceOrderInput {
	return PlaceOrderInput{
		ShippingMethod: "ground",
		ShippingCost:   decimal.RequireFromString("15.00"),
		PaymentMethod:  "card",
	}
}

func TestPlaceOrderRetailTotals(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.retailUser(t)
	product := f.simpleProduct(t, "24.99", "18.99", 10)
	f.addLine(t, user, product.ID, nil, 2)

	order, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.NoError(t, err)

	requireAmount(t, "49.98", order.Subtotal)
	requireAmount(t, "4.00", order.TaxAmount)
	requireAmount(t, "15.00", order.ShippingCost)
	requireAmount(t, "68.98", order.TotalAmount)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.False(t, order.IsWholesale)
	require.Len(t, order.Items, 1)
	requireAmount(t, "24.99", order.Items[0].UnitPrice)
	require.Equal(t, "Glass Ashtray", order.Items[0].ProductName)
	require.NotNil(t, order.Items[0].Product, "reloaded order carries product refs")

	require.Equal(t, 8, f.productStock(t, product.ID))
	require.Zero(t, f.count(t, &models.CartItem{}, "user_id = ?", user))
	require.Equal(t, 1, f.metrics.placed)
}

func TestPlaceOrderWholesaleVolumeDiscount(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.wholesaleUser(t, 12000)
	product := f.simpleProduct(t, "24.99", "18.99", 50)
	f.addLine(t, user, product.ID, nil, 5)

	input := standardInput()
	input.ShippingCost = decimal.Zero
	order, err := svc.PlaceOrder(context.Background(), user, input)
	require.NoError(t, err)

	require.True(t, order.IsWholesale)
	requireAmount(t, "17.091", order.Items[0].UnitPrice)
	requireAmount(t, "85.455", order.Items[0].LineTotal)
	requireAmount(t, "0.10", order.Items[0].DiscountRate)
	requireAmount(t, "85.46", order.Subtotal)
	requireAmount(t, "6.84", order.TaxAmount)
	requireAmount(t, "92.30", order.TotalAmount)

	app, err := f.wholesale.FindByUserID(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, int64(12005), app.TotalUnitsOrdered)
}

func TestPlaceOrderRetailDoesNotTouchUnitsCounter(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.retailUser(t)
	require.NoError(t, f.wholesale.Create(context.Background(), &models.WholesaleApplication{
		UserID: user, BusinessName: "Pending Shop", TaxID: "1", BusinessAddress: "2 Side St", Phone: "555-0101",
	}))
	product := f.simpleProduct(t, "10.00", "8.00", 10)
	f.addLine(t, user, product.ID, nil, 4)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.NoError(t, err)

	app, err := f.wholesale.FindByUserID(context.Background(), user)
	require.NoError(t, err)
	require.Zero(t, app.TotalUnitsOrdered)
}

func TestPlaceOrderDecrementsVariantStock(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.retailUser(t)
	product := f.variableProduct(t, 20)
	variant := product.Variants[0]
	f.addLine(t, user, product.ID, &variant.ID, 4)

	order, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.NoError(t, err)
	require.NotNil(t, order.Items[0].VariantSKU)
	require.Equal(t, variant.SKU, *order.Items[0].VariantSKU)

	var stored models.ProductVariant
	require.NoError(t, f.client.DB().First(&stored, "id = ?", variant.ID).Error)
	require.Equal(t, 16, stored.StockQuantity)
	require.Equal(t, 500, f.productStock(t, product.ID), "variant orders leave product stock alone")
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	_, err := svc.PlaceOrder(context.Background(), f.retailUser(t), standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart), "got %v", err)
	require.Equal(t, []string{reasonEmptyCart}, f.metrics.failures)
}

func TestPlaceOrderRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.retailUser(t)

	input := standardInput()
	input.ShippingMethod = "  "
	_, err := svc.PlaceOrder(context.Background(), user, input)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))

	input = standardInput()
	input.ShippingCost = decimal.RequireFromString("-1")
	_, err = svc.PlaceOrder(context.Background(), user, input)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))
}

func TestPlaceOrderInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.retailUser(t)
	product := f.simpleProduct(t, "24.99", "18.99", 1)
	f.addLine(t, user, product.ID, nil, 2)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	lines := details["lines"].([]map[string]any)
	require.Len(t, lines, 1)
	require.Equal(t, product.ID.String(), lines[0]["product_id"])
	require.Equal(t, 1, lines[0]["available"])

	require.Zero(t, f.count(t, &models.Order{}, "user_id = ?", user))
	require.Equal(t, 1, f.productStock(t, product.ID))
	require.Equal(t, int64(1), f.count(t, &models.CartItem{}, "user_id = ?", user))
}

func TestPlaceOrderWholesaleMinimumRechecked(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.wholesaleUser(t, 0)
	product := f.simpleProduct(t, "5.00", "4.00", 100)
	f.addLine(t, user, product.ID, nil, 2)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest), "got %v", err)
	require.Zero(t, f.count(t, &models.Order{}, "user_id = ?", user))
}

func TestPlaceOrderLosingStockRaceRollsBack(t *testing.T) {
	f := newFixture(t)
	user := f.retailUser(t)
	product := f.simpleProduct(t, "24.99", "18.99", 5)
	f.addLine(t, user, product.ID, nil, 3)

	f.params.UnitOfWork = racingUnitOfWork{
		inner: f.client,
		before: func() {
			require.NoError(t, f.client.DB().Model(&models.Product{}).
				Where("id = ?", product.ID).
				UpdateColumn("stock_quantity", 2).Error)
		},
	}
	svc := f.service(t)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	require.Equal(t, 2, f.productStock(t, product.ID), "stock never goes negative")
	require.Zero(t, f.count(t, &models.Order{}, "user_id = ?", user))
	require.Zero(t, f.count(t, &models.OrderItem{}, "1 = 1"))
	require.Equal(t, int64(1), f.count(t, &models.CartItem{}, "user_id = ?", user))
	require.Equal(t, []string{reasonStockRaceLost}, f.metrics.failures)
}

func TestPlaceOrderLineAddedDuringCheckoutConflicts(t *testing.T) {
	f := newFixture(t)
	user := f.retailUser(t)
	first := f.simpleProduct(t, "24.99", "18.99", 10)
	second := f.simpleProduct(t, "5.00", "4.00", 10)
	f.addLine(t, user, first.ID, nil, 2)

	f.params.UnitOfWork = racingUnitOfWork{
		inner:  f.client,
		before: func() { f.addLine(t, user, second.ID, nil, 4) },
	}
	svc := f.service(t)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	require.Zero(t, f.count(t, &models.Order{}, "user_id = ?", user))
	require.Equal(t, 10, f.productStock(t, first.ID))
	require.Equal(t, 10, f.productStock(t, second.ID))
	require.Equal(t, int64(2), f.count(t, &models.CartItem{}, "user_id = ?", user))
	require.Equal(t, []string{reasonCartChanged}, f.metrics.failures)
}

func TestPlaceOrderLineResizedDuringCheckoutConflicts(t *testing.T) {
	f := newFixture(t)
	user := f.retailUser(t)
	product := f.simpleProduct(t, "24.99", "18.99", 10)
	f.addLine(t, user, product.ID, nil, 2)

	f.params.UnitOfWork = racingUnitOfWork{
		inner: f.client,
		before: func() {
			require.NoError(t, f.client.DB().Model(&models.CartItem{}).
				Where("user_id = ?", user).
				UpdateColumn("quantity", 5).Error)
		},
	}
	svc := f.service(t)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	require.Zero(t, f.count(t, &models.Order{}, "user_id = ?", user))
	require.Equal(t, 10, f.productStock(t, product.ID))
	require.Equal(t, int64(1), f.count(t, &models.CartItem{}, "user_id = ? AND quantity = ?", user, 5))
	require.Equal(t, []string{reasonCartChanged}, f.metrics.failures)
}

// unreadableCart fails every cart listing.
type unreadableCart struct {
	cart.Repository
	err error
}

func (u unreadableCart) ListByUser(context.Context, uuid.UUID) ([]models.CartItem, error) {
	return nil, u.err
}

func TestPlaceOrderCartReadFailureIsNotACommitFailure(t *testing.T) {
	f := newFixture(t)
	user := f.retailUser(t)
	f.params.Cart = unreadableCart{
		Repository: f.params.Cart,
		err:        pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("connection refused"), "list cart items"),
	}
	svc := f.service(t)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency), "got %v", err)
	require.Equal(t, []string{reasonCartUnavailable}, f.metrics.failures)
}

func TestPlaceOrderCommitFaultRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	user := f.retailUser(t)
	product := f.simpleProduct(t, "24.99", "18.99", 5)
	f.addLine(t, user, product.ID, nil, 2)

	fault := errors.New("connection reset")
	f.params.UnitOfWork = faultyUnitOfWork{inner: f.client, after: 1, err: fault}
	svc := f.service(t)

	_, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeOrderCreationFailed), "got %v", err)
	require.ErrorIs(t, err, fault)

	require.Zero(t, f.count(t, &models.Order{}, "user_id = ?", user))
	require.Zero(t, f.count(t, &models.OrderItem{}, "1 = 1"))
	require.Equal(t, 5, f.productStock(t, product.ID))
	require.Equal(t, int64(1), f.count(t, &models.CartItem{}, "user_id = ?", user))
	require.Equal(t, []string{reasonCommitFailed}, f.metrics.failures)
}

func TestPlacedOrderKeepsFrozenPrices(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	user := f.retailUser(t)
	product := f.simpleProduct(t, "24.99", "18.99", 10)
	f.addLine(t, user, product.ID, nil, 2)

	order, err := svc.PlaceOrder(context.Background(), user, standardInput())
	require.NoError(t, err)

	require.NoError(t, f.client.DB().Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{"retail_price": decimal.RequireFromString("99.99")}).Error)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	requireAmount(t, "24.99", stored.Items[0].UnitPrice)
	requireAmount(t, "49.98", stored.Subtotal)
	requireAmount(t, "99.99", stored.Items[0].Product.RetailPrice)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
