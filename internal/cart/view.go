package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
)

// View is the priced cart shown to the user. Prices are recomputed on every read.
type View struct {
	Items         []LineView      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalQuantity int             `json:"total_quantity"`
	IsWholesale   bool            `json:"is_wholesale"`
	DiscountRate  decimal.Decimal `json:"discount_rate"`
}

// LineView is a cart line with its current price. Unavailable lines carry no price and do
// not count toward the subtotal.
type LineView struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	VariantID      *uuid.UUID       `json:"variant_id,omitempty"`
	ProductName    string           `json:"product_name"`
	VariantSKU     *string          `json:"variant_sku,omitempty"`
	Quantity       int              `json:"quantity"`
	StockAvailable int              `json:"stock_available"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	LineTotal      *decimal.Decimal `json:"line_total,omitempty"`
	Available      bool             `json:"available"`
}

func buildView(items []models.CartItem, pc pricing.Context, engine *pricing.Engine) *View {
	view := &View{
		Items:        make([]LineView, 0, len(items)),
		IsWholesale:  pc.IsWholesale,
		DiscountRate: pc.DiscountRate(),
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		line := LineView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		}
		view.TotalQuantity += item.Quantity

		source, err := catalog.Resolve(item.Product, item.VariantID)
		if err != nil {
			view.Items = append(view.Items, line)
			continue
		}
		line.ProductName = source.Product().Name
		line.VariantSKU = source.VariantSKU()
		line.StockAvailable = source.StockQuantity()
		line.Available = source.Active()
		if line.Available {
			priced := pricing.Line{UnitPrice: engine.UnitPrice(source, pc), Quantity: item.Quantity}
			total := priced.Total()
			line.UnitPrice = &priced.UnitPrice
			line.LineTotal = &total
			lines = append(lines, priced)
		}
		view.Items = append(view.Items, line)
	}

	view.Subtotal = engine.Subtotal(lines)
	return view
}
