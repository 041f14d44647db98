package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/internal/cart"
	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/orders"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/internal/wholesale"
	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

type unitOfWork interface {
	Apply(ctx context.Context, mutations ...db.Mutation) error
}

type pricingContextProvider interface {
	PricingContext(ctx context.Context, userID uuid.UUID) (pricing.Context, error)
}

type metricsRecorder interface {
	OrderPlaced(wholesale bool, units int, elapsed time.Duration)
	OrderFailed(reason string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) OrderPlaced(bool, int, time.Duration) {}
func (noopMetrics) OrderFailed(string, time.Duration)    {}

// Failure reasons reported to metrics.
const (
	reasonInvalidInput      = "invalid_input"
	reasonEmptyCart         = "empty_cart"
	reasonPrecheck          = "precheck_rejected"
	reasonInsufficientStock = "insufficient_stock"
	reasonStockRaceLost     = "stock_race_lost"
	reasonCartChanged       = "cart_changed"
	reasonCartUnavailable   = "cart_unavailable"
	reasonCommitFailed      = "commit_failed"
)

// Service converts a user's cart into a placed order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
}

// PlaceOrderInput carries the caller-supplied parts of an order. The payment reference is
// opaque and is not verified.
type PlaceOrderInput struct {
	ShippingMethod   string
	ShippingCost     decimal.Decimal
	PaymentMethod    string
	PaymentReference *string
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	UnitOfWork unitOfWork
	Cart       cart.Repository
	Catalog    catalog.Repository
	Orders     orders.Repository
	Wholesale  wholesale.Repository
	Pricing    pricingContextProvider
	Engine     *pricing.Engine
	Currency   string
	Metrics    metricsRecorder
	Logger     *logger.Logger
}

type service struct {
	uow       unitOfWork
	cart      cart.Repository
	catalog   catalog.Repository
	orders    orders.Repository
	wholesale wholesale.Repository
	pricing   pricingContextProvider
	engine    *pricing.Engine
	currency  string
	metrics   metricsRecorder
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Wholesale == nil {
		return nil, fmt.Errorf("wholesale repository required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing context provider required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if params.Currency == "" {
		params.Currency = "USD"
	}
	if params.Metrics == nil {
		params.Metrics = noopMetrics{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		uow:       params.UnitOfWork,
		cart:      params.Cart,
		catalog:   params.Catalog,
		orders:    params.Orders,
		wholesale: params.Wholesale,
		pricing:   params.Pricing,
		engine:    params.Engine,
		currency:  params.Currency,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	started := s.now()
	ctx = s.logg.WithUserID(ctx, userID.String())

	input, err := input.normalized()
	if err != nil {
		return nil, s.fail(ctx, started, reasonInvalidInput, err)
	}

	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, started, reasonCartUnavailable, err)
	}
	if len(items) == 0 {
		return nil, s.fail(ctx, started, reasonEmptyCart, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"))
	}

	pc, err := s.pricing.PricingContext(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, started, reasonPrecheck, err)
	}

	p, err := s.prepare(items, pc, input.ShippingCost)
	if err != nil {
		reason := reasonPrecheck
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			reason = reasonInsufficientStock
		}
		return nil, s.fail(ctx, started, reason, err)
	}

	order := p.order(userID, input, s.currency)
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	placed, err := s.commit(ctx, userID, order, p)
	if err != nil {
		switch {
		case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
			return nil, s.fail(ctx, started, reasonStockRaceLost, pkgerrors.As(err))
		case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
			return nil, s.fail(ctx, started, reasonCartChanged, pkgerrors.As(err))
		default:
			s.logg.Error(s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "order commit rolled back", err)
			s.metrics.OrderFailed(reasonCommitFailed, s.now().Sub(started))
			return nil, pkgerrors.Wrap(pkgerrors.CodeOrderCreationFailed, err, "order creation failed")
		}
	}

	s.metrics.OrderPlaced(pc.IsWholesale, p.units, s.now().Sub(started))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"units":        p.units,
		"total_amount": placed.TotalAmount.StringFixed(2),
		"wholesale":    pc.IsWholesale,
	}), "order placed")
	return placed, nil
}

// commit applies every write of an order as one unit of work.
func (s *service) commit(ctx context.Context, userID uuid.UUID, order *models.Order, p *plan) (*models.Order, error) {
	var placed *models.Order
	err := s.uow.Apply(ctx,
		createOrder(ctx, s.orders, order),
		decrementStock(ctx, s.catalog, p.lines),
		recordWholesaleUnits(ctx, s.wholesale, userID, p),
		consumeCart(ctx, s.cart, userID, p.lines),
		func(tx *gorm.DB) error {
			reloaded, err := s.orders.WithTx(tx).FindByID(ctx, order.ID)
			placed = reloaded
			return err
		},
	)
	return placed, err
}

// fail logs a rejected checkout and records it.
func (s *service) fail(ctx context.Context, started time.Time, reason string, err error) error {
	s.metrics.OrderFailed(reason, s.now().Sub(started))
	s.logg.Rejected(s.logg.WithField(ctx, "reason", reason), "checkout rejected", err)
	return err
}

func (in PlaceOrderInput) normalized() (PlaceOrderInput, error) {
	in.ShippingMethod = strings.TrimSpace(in.ShippingMethod)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentReference != nil {
		ref := strings.TrimSpace(*in.PaymentReference)
		if ref == "" {
			in.PaymentReference = nil
		} else {
			in.PaymentReference = &ref
		}
	}
	if in.ShippingMethod == "" {
		return in, pkgerrors.New(pkgerrors.CodeInvalidRequest, "shipping method is required")
	}
	if in.PaymentMethod == "" {
		return in, pkgerrors.New(pkgerrors.CodeInvalidRequest, "payment method is required")
	}
	if in.ShippingCost.IsNegative() {
		return in, pkgerrors.New(pkgerrors.CodeInvalidRequest, "shipping cost must not be negative")
	}
	return in, nil
}
