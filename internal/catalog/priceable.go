package catalog

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

// Priceable is the price and stock source of a cart or order line: either the product
// itself (ProductPriced) or one of its variants (VariantPriced).
type Priceable interface {
	RetailPrice() decimal.Decimal
	WholesalePrice() decimal.Decimal
	StockQuantity() int
	Product() *models.Product
	VariantID() *uuid.UUID
	VariantSKU() *string
	Active() bool
	// Label names the source in error messages, e.g. "Blue Dream (BD-01)".
	Label() string

	priceable()
}

// ProductPriced reads price and stock from a simple product.
type ProductPriced struct {
	product *models.Product
}

func (p ProductPriced) RetailPrice() decimal.Decimal    { return p.product.RetailPrice }
func (p ProductPriced) WholesalePrice() decimal.Decimal { return p.product.WholesalePrice }
func (p ProductPriced) StockQuantity() int              { return p.product.StockQuantity }
func (p ProductPriced) Product() *models.Product        { return p.product }
func (p ProductPriced) VariantID() *uuid.UUID           { return nil }
func (p ProductPriced) VariantSKU() *string             { return nil }
func (p ProductPriced) Active() bool                    { return p.product.IsActive }
func (p ProductPriced) Label() string {
	return fmt.Sprintf("%s (%s)", p.product.Name, p.product.SKU)
}
func (ProductPriced) priceable() {}

// VariantPriced reads price and stock from a variant of a variable product.
type VariantPriced struct {
	product *models.Product
	variant *models.ProductVariant
}

func (v VariantPriced) RetailPrice() decimal.Decimal    { return v.variant.RetailPrice }
func (v VariantPriced) WholesalePrice() decimal.Decimal { return v.variant.WholesalePrice }
func (v VariantPriced) StockQuantity() int              { return v.variant.StockQuantity }
func (v VariantPriced) Product() *models.Product        { return v.product }
func (v VariantPriced) Variant() *models.ProductVariant { return v.variant }
func (v VariantPriced) VariantID() *uuid.UUID {
	id := v.variant.ID
	return &id
}
func (v VariantPriced) VariantSKU() *string {
	sku := v.variant.SKU
	return &sku
}
func (v VariantPriced) Active() bool { return v.product.IsActive && v.variant.IsActive }
func (v VariantPriced) Label() string {
	return fmt.Sprintf("%s (%s)", v.product.Name, v.variant.SKU)
}
func (VariantPriced) priceable() {}

// Resolve picks the price source for a line. Variable products require a variant that
// belongs to them; simple products never take one.
func Resolve(product *models.Product, variantID *uuid.UUID) (Priceable, error) {
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	switch product.ProductType {
	case enums.ProductTypeSimple:
		if variantID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "simple products do not accept a variant").
				WithDetails(map[string]any{"product_id": product.ID, "variant_id": *variantID})
		}
		return ProductPriced{product: product}, nil
	case enums.ProductTypeVariable:
		if variantID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "variant selection is required for this product").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		for i := range product.Variants {
			if product.Variants[i].ID == *variantID {
				return VariantPriced{product: product, variant: &product.Variants[i]}, nil
			}
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for product")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown product type %q", product.ProductType))
	}
}

// DefaultSource returns the source shown on listings: the product itself, or the default
// variant (first by sort order when none is flagged) of a variable product.
func DefaultSource(product *models.Product) (Priceable, bool) {
	if product == nil {
		return nil, false
	}
	if product.ProductType == enums.ProductTypeSimple {
		return ProductPriced{product: product}, true
	}
	if len(product.Variants) == 0 {
		return nil, false
	}
	for i := range product.Variants {
		if product.Variants[i].IsDefault {
			return VariantPriced{product: product, variant: &product.Variants[i]}, true
		}
	}
	return VariantPriced{product: product, variant: &product.Variants[0]}, true
}
