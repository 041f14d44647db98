// Package pricing derives unit prices and order totals.
//
// Rounding policy: unit prices are never rounded. The subtotal is the sum of unit price
// times quantity rounded to cents; tax is the rounded subtotal times the tax rate rounded
// to cents; the total adds the rounded shipping fee. All rounding is half away from zero.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
)

const currencyPlaces = 2

// Context captures everything about the acting user that affects a price. It is resolved
// once per request or order.
type Context struct {
	IsWholesale        bool
	VolumeDiscountRate decimal.Decimal
	// MinLineQuantity is the wholesale floor per cart line; ignored for retail.
	MinLineQuantity int
}

// Retail is the context of an unqualified user.
func Retail() Context {
	return Context{VolumeDiscountRate: decimal.Zero}
}

// DiscountRate is the rate actually applied: zero unless wholesale.
func (c Context) DiscountRate() decimal.Decimal {
	if !c.IsWholesale || !c.VolumeDiscountRate.IsPositive() {
		return decimal.Zero
	}
	return c.VolumeDiscountRate
}

// MinimumQuantity is the smallest quantity a line of product may hold for this user.
func (c Context) MinimumQuantity(product *models.Product) int {
	if !c.IsWholesale {
		return 1
	}
	minimum := c.MinLineQuantity
	if product != nil && product.MOQ > minimum {
		minimum = product.MOQ
	}
	if minimum < 1 {
		minimum = 1
	}
	return minimum
}

// Engine prices lines and orders.
type Engine struct {
	taxRate decimal.Decimal
}

// NewEngine builds an engine charging the given flat tax rate.
func NewEngine(taxRate decimal.Decimal) *Engine {
	return &Engine{taxRate: taxRate}
}

// TaxRate returns the configured flat rate.
func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// UnitPrice picks the tier for ctx and applies the volume discount without rounding.
func (e *Engine) UnitPrice(source catalog.Priceable, ctx Context) decimal.Decimal {
	base := source.RetailPrice()
	if ctx.IsWholesale {
		base = source.WholesalePrice()
	}
	rate := ctx.DiscountRate()
	if rate.IsZero() {
		return base
	}
	return base.Mul(decimal.NewFromInt(1).Sub(rate))
}

// Line is a priced quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total is the unrounded line amount.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the money summary of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal sums the lines and rounds to cents.
func (e *Engine) Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Total())
	}
	return Round(sum)
}

// Totals applies the rounding policy to the lines and the flat shipping fee.
func (e *Engine) Totals(lines []Line, shipping decimal.Decimal) Totals {
	subtotal := e.Subtotal(lines)
	tax := Round(subtotal.Mul(e.taxRate))
	shipping = Round(shipping)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}
