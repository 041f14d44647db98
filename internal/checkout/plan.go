package checkout

import (
	"context"
	"fmt"

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
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

// plannedLine is a cart line resolved to its price source and frozen unit price.
type plannedLine struct {
	cartItemID uuid.UUID
	source     catalog.Priceable
	quantity   int
	unitPrice  decimal.Decimal
}

func (l plannedLine) pricingLine() pricing.Line {
	return pricing.Line{UnitPrice: l.unitPrice, Quantity: l.quantity}
}

type plan struct {
	pc     pricing.Context
	lines  []plannedLine
	totals pricing.Totals
	units  int
}

// prepare validates every cart line against the catalog and prices the order.
// Stock shortages are collected so a single response can name all of them.
func (s *service) prepare(items []models.CartItem, pc pricing.Context, shipping decimal.Decimal) (*plan, error) {
	p := &plan{pc: pc, lines: make([]plannedLine, 0, len(items))}
	var shortages []map[string]any

	for _, item := range items {
		source, err := catalog.Resolve(item.Product, item.VariantID)
		if err != nil {
			return nil, err
		}
		if !source.Active() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, fmt.Sprintf("%s is no longer available", source.Label()))
		}
		if minimum := pc.MinimumQuantity(source.Product()); item.Quantity < minimum {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest,
				fmt.Sprintf("%s requires a minimum quantity of %d", source.Label(), minimum))
		}
		if source.StockQuantity() < item.Quantity {
			shortages = append(shortages, shortage(source, item.Quantity, source.StockQuantity()))
		}

		p.lines = append(p.lines, plannedLine{
			cartItemID: item.ID,
			source:     source,
			quantity:   item.Quantity,
			unitPrice:  s.engine.UnitPrice(source, pc),
		})
		p.units += item.Quantity
	}

	if len(shortages) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("not enough stock for %s", shortages[0]["label"])).
			WithDetails(map[string]any{"lines": shortages})
	}

	lines := make([]pricing.Line, len(p.lines))
	for i, line := range p.lines {
		lines[i] = line.pricingLine()
	}
	p.totals = s.engine.Totals(lines, shipping)
	return p, nil
}

// order builds the order and its snapshot lines. Nothing here reads the catalog again.
func (p *plan) order(userID uuid.UUID, input PlaceOrderInput, currency string) *models.Order {
	order := &models.Order{
		ID:               uuid.New(),
		UserID:           userID,
		Subtotal:         p.totals.Subtotal,
		TaxAmount:        p.totals.Tax,
		ShippingCost:     p.totals.Shipping,
		TotalAmount:      p.totals.Total,
		Currency:         currency,
		ShippingMethod:   input.ShippingMethod,
		PaymentMethod:    input.PaymentMethod,
		PaymentReference: input.PaymentReference,
		Status:           enums.OrderStatusPending,
		IsWholesale:      p.pc.IsWholesale,
		Items:            make([]models.OrderItem, 0, len(p.lines)),
	}
	for i, line := range p.lines {
		product := line.source.Product()
		order.Items = append(order.Items, models.OrderItem{
			Position:     i,
			ProductID:    product.ID,
			VariantID:    line.source.VariantID(),
			ProductName:  product.Name,
			VariantSKU:   line.source.VariantSKU(),
			Quantity:     line.quantity,
			UnitPrice:    line.unitPrice,
			DiscountRate: p.pc.DiscountRate(),
			LineTotal:    line.pricingLine().Total(),
		})
	}
	return order
}

func shortage(source catalog.Priceable, requested, available int) map[string]any {
	entry := map[string]any{
		"product_id": source.Product().ID.String(),
		"label":      source.Label(),
		"requested":  requested,
		"available":  available,
	}
	if sku := source.VariantSKU(); sku != nil {
		entry["variant_sku"] = *sku
	}
	return entry
}

func createOrder(ctx context.Context, repo orders.Repository, order *models.Order) db.Mutation {
	return func(tx *gorm.DB) error {
		return repo.WithTx(tx).Create(ctx, order)
	}
}

// decrementStock guards every decrement on the stock still covering the quantity, so a
// concurrent checkout that got there first fails this one instead of overselling.
func decrementStock(ctx context.Context, repo catalog.Repository, lines []plannedLine) db.Mutation {
	return func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		for _, line := range lines {
			ok, err := txRepo.DecrementStock(ctx, line.source, line.quantity)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock,
					fmt.Sprintf("not enough stock for %s", line.source.Label())).
					WithDetails(map[string]any{"lines": []map[string]any{
						{
							"product_id": line.source.Product().ID.String(),
							"label":      line.source.Label(),
							"requested":  line.quantity,
						},
					}})
			}
		}
		return nil
	}
}

func recordWholesaleUnits(ctx context.Context, repo wholesale.Repository, userID uuid.UUID, p *plan) db.Mutation {
	if !p.pc.IsWholesale {
		return nil
	}
	return func(tx *gorm.DB) error {
		return repo.WithTx(tx).IncrementUnitsOrdered(ctx, userID, int64(p.units))
	}
}

// consumeCart removes exactly the lines that were priced. Any other change to the cart
// since pricing fails the commit so nothing is ordered at a stale quantity.
func consumeCart(ctx context.Context, repo cart.Repository, userID uuid.UUID, lines []plannedLine) db.Mutation {
	priced := make([]cart.Line, len(lines))
	for i, line := range lines {
		priced[i] = cart.Line{ID: line.cartItemID, Quantity: line.quantity}
	}
	return func(tx *gorm.DB) error {
		matched, err := repo.WithTx(tx).ConsumeLines(ctx, userID, priced)
		if err != nil {
			return err
		}
		if !matched {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, review it and retry")
		}
		return nil
	}
}
