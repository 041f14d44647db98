package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
)

// ProductDTO represents a catalog entry priced for the requesting user.
type ProductDTO struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	SKU             string           `json:"sku"`
	ProductType     string           `json:"product_type"`
	MOQ             int              `json:"moq"`
	MinimumQuantity int              `json:"minimum_quantity"`
	RetailPrice     decimal.Decimal  `json:"retail_price"`
	WholesalePrice  *decimal.Decimal `json:"wholesale_price,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	StockQuantity   int              `json:"stock_quantity"`
	InStock         bool             `json:"in_stock"`
	Variants        []VariantDTO     `json:"variants,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// VariantDTO is a sellable variant with the user's unit price.
type VariantDTO struct {
	ID             uuid.UUID        `json:"id"`
	SKU            string           `json:"sku"`
	Size           string           `json:"size"`
	Packet         string           `json:"packet"`
	RetailPrice    decimal.Decimal  `json:"retail_price"`
	WholesalePrice *decimal.Decimal `json:"wholesale_price,omitempty"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	StockQuantity  int              `json:"stock_quantity"`
	IsDefault      bool             `json:"is_default"`
}

// newProductDTO prices the product for pc. Wholesale prices are only exposed to wholesale
// users, and a variable product's headline price comes from its default variant.
func newProductDTO(product *models.Product, pc pricing.Context, engine *pricing.Engine) ProductDTO {
	dto := ProductDTO{
		ID:              product.ID,
		Name:            product.Name,
		Category:        product.Category,
		SKU:             product.SKU,
		ProductType:     string(product.ProductType),
		MOQ:             product.MOQ,
		MinimumQuantity: pc.MinimumQuantity(product),
		RetailPrice:     product.RetailPrice,
		StockQuantity:   product.StockQuantity,
		CreatedAt:       product.CreatedAt,
		UpdatedAt:       product.UpdatedAt,
	}

	if source, ok := catalog.DefaultSource(product); ok {
		price := engine.UnitPrice(source, pc)
		dto.UnitPrice = &price
		dto.RetailPrice = source.RetailPrice()
		dto.StockQuantity = source.StockQuantity()
		if pc.IsWholesale {
			wholesalePrice := source.WholesalePrice()
			dto.WholesalePrice = &wholesalePrice
		}
	}

	for i := range product.Variants {
		variant := &product.Variants[i]
		if !variant.IsActive {
			continue
		}
		source, err := catalog.Resolve(product, &variant.ID)
		if err != nil {
			continue
		}
		v := VariantDTO{
			ID:            variant.ID,
			SKU:           variant.SKU,
			Size:          variant.Size,
			Packet:        variant.Packet,
			RetailPrice:   variant.RetailPrice,
			UnitPrice:     engine.UnitPrice(source, pc),
			StockQuantity: variant.StockQuantity,
			IsDefault:     variant.IsDefault,
		}
		if pc.IsWholesale {
			wholesalePrice := variant.WholesalePrice
			v.WholesalePrice = &wholesalePrice
		}
		dto.Variants = append(dto.Variants, v)
		if v.StockQuantity > 0 {
			dto.InStock = true
		}
	}
	if len(dto.Variants) == 0 && dto.StockQuantity > 0 {
		dto.InStock = true
	}
	return dto
}
