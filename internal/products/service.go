package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

// Service exposes the storefront catalog priced for the acting user.
type Service interface {
	ListProducts(ctx context.Context, userID uuid.UUID, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, userID, productID uuid.UUID) (*ProductDTO, error)
}

type catalogReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListActiveProducts(ctx context.Context, filter catalog.ProductFilter) (*catalog.ProductPage, error)
}

type pricingContextProvider interface {
	PricingContext(ctx context.Context, userID uuid.UUID) (pricing.Context, error)
}

type service struct {
	catalog catalogReader
	pricing pricingContextProvider
	engine  *pricing.Engine
}

// NewService constructs a product service instance.
func NewService(catalogRepo catalogReader, pricingProvider pricingContextProvider, engine *pricing.Engine) (Service, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if pricingProvider == nil {
		return nil, fmt.Errorf("pricing context provider required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	return &service{catalog: catalogRepo, pricing: pricingProvider, engine: engine}, nil
}

// ListProducts returns active products; prices are recomputed on every read.
func (s *service) ListProducts(ctx context.Context, userID uuid.UUID, input ListProductsInput) (*ProductListResult, error) {
	pc, err := s.pricing.PricingContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	page, err := s.catalog.ListActiveProducts(ctx, catalog.ProductFilter{
		Category:   input.Filters.Category,
		Query:      input.Filters.Query,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, err
	}

	result := &ProductListResult{
		Products:   make([]ProductDTO, 0, len(page.Products)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Products {
		result.Products = append(result.Products, newProductDTO(&page.Products[i], pc, s.engine))
	}
	return result, nil
}

func (s *service) GetProduct(ctx context.Context, userID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	pc, err := s.pricing.PricingContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := newProductDTO(product, pc, s.engine)
	return &dto, nil
}
