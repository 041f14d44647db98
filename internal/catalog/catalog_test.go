package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/wholesale-storefront/pkg/db/dbtest"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
	"github.com/angelmondragon/wholesale-storefront/pkg/pagination"
)

func simpleProduct() *models.Product {
	return &models.Product{
		ID:             uuid.New(),
		Name:           "Rolling Tray",
		SKU:            "TRAY-1",
		ProductType:    enums.ProductTypeSimple,
		RetailPrice:    decimal.RequireFromString("24.99"),
		WholesalePrice: decimal.RequireFromString("18.99"),
		StockQuantity:  10,
		IsActive:       true,
	}
}

func variableProduct() *models.Product {
	p := &models.Product{
		ID:          uuid.New(),
		Name:        "Hemp Wraps",
		SKU:         "WRAP",
		ProductType: enums.ProductTypeVariable,
		IsActive:    true,
	}
	p.Variants = []models.ProductVariant{
		{ID: uuid.New(), ProductID: p.ID, SKU: "WRAP-S", Size: "small", Packet: "25", RetailPrice: decimal.RequireFromString("5.00"), WholesalePrice: decimal.RequireFromString("3.50"), StockQuantity: 4, SortOrder: 1, IsActive: true},
		{ID: uuid.New(), ProductID: p.ID, SKU: "WRAP-L", Size: "large", Packet: "50", RetailPrice: decimal.RequireFromString("9.00"), WholesalePrice: decimal.RequireFromString("6.00"), StockQuantity: 8, SortOrder: 2, IsDefault: true, IsActive: true},
	}
	return p
}

func TestResolveSimpleProduct(t *testing.T) {
	product := simpleProduct()

	source, err := Resolve(product, nil)
	require.NoError(t, err)
	require.IsType(t, ProductPriced{}, source)
	require.True(t, source.RetailPrice().Equal(decimal.RequireFromString("24.99")))
	require.True(t, source.WholesalePrice().Equal(decimal.RequireFromString("18.99")))
	require.Equal(t, 10, source.StockQuantity())
	require.Nil(t, source.VariantID())
	require.Equal(t, "Rolling Tray (TRAY-1)", source.Label())

	variantID := uuid.New()
	_, err = Resolve(product, &variantID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))
}

func TestResolveVariableProduct(t *testing.T) {
	product := variableProduct()

	_, err := Resolve(product, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest), "missing variant must be invalid request, got %v", err)

	foreign := uuid.New()
	_, err = Resolve(product, &foreign)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "foreign variant must be not found, got %v", err)

	wanted := product.Variants[1].ID
	source, err := Resolve(product, &wanted)
	require.NoError(t, err)
	require.IsType(t, VariantPriced{}, source)
	require.Equal(t, wanted, *source.VariantID())
	require.Equal(t, "WRAP-L", *source.VariantSKU())
	require.Equal(t, 8, source.StockQuantity())
	require.True(t, source.WholesalePrice().Equal(decimal.RequireFromString("6.00")))

	product.Variants[1].IsActive = false
	source, err = Resolve(product, &wanted)
	require.NoError(t, err)
	require.False(t, source.Active())
}

func TestResolveNilProduct(t *testing.T) {
	_, err := Resolve(nil, nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDefaultSourcePrefersFlaggedVariant(t *testing.T) {
	product := variableProduct()
	source, ok := DefaultSource(product)
	require.True(t, ok)
	require.Equal(t, "WRAP-L", *source.VariantSKU())

	product.Variants[1].IsDefault = false
	source, ok = DefaultSource(product)
	require.True(t, ok)
	require.Equal(t, "WRAP-S", *source.VariantSKU())

	product.Variants = nil
	_, ok = DefaultSource(product)
	require.False(t, ok)
}

func TestRepositoryDecrementStockGuardsAgainstNegative(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	product := simpleProduct()
	product.StockQuantity = 3
	require.NoError(t, client.DB().Create(product).Error)

	source, err := repo.Load(ctx, product.ID, nil)
	require.NoError(t, err)

	ok, err := repo.DecrementStock(ctx, source, 2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.DecrementStock(ctx, source, 2)
	require.NoError(t, err)
	require.False(t, ok, "decrement below zero must be rejected")

	reloaded, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.StockQuantity)

	_, err = repo.DecrementStock(ctx, source, 0)
	require.Error(t, err)
}

func TestRepositoryDecrementVariantStock(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	product := variableProduct()
	require.NoError(t, client.DB().Create(product).Error)

	variantID := product.Variants[0].ID
	source, err := repo.Load(ctx, product.ID, &variantID)
	require.NoError(t, err)

	ok, err := repo.DecrementStock(ctx, source, 4)
	require.NoError(t, err)
	require.True(t, ok)

	variant, err := repo.FindVariant(ctx, variantID)
	require.NoError(t, err)
	require.Equal(t, 0, variant.StockQuantity)

	other, err := repo.FindVariant(ctx, product.Variants[1].ID)
	require.NoError(t, err)
	require.Equal(t, 8, other.StockQuantity, "sibling variant stock must be untouched")
}

func TestRepositoryFindProductOrdersVariantsAndReportsMissing(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	product := variableProduct()
	product.Variants[0].SortOrder = 5
	require.NoError(t, client.DB().Create(product).Error)

	loaded, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 2)
	require.Equal(t, "WRAP-L", loaded.Variants[0].SKU)

	_, err = repo.FindProduct(ctx, uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = repo.FindVariant(ctx, uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryListActiveProductsSkipsInactive(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	active := simpleProduct()
	inactive := simpleProduct()
	inactive.SKU = "TRAY-2"
	inactive.IsActive = false
	require.NoError(t, client.DB().Create(active).Error)
	require.NoError(t, client.DB().Create(inactive).Error)

	page, err := repo.ListActiveProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	require.Equal(t, active.ID, page.Products[0].ID)
	require.Empty(t, page.NextCursor)

	found, err := repo.FindProducts(ctx, []uuid.UUID{active.ID, inactive.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func TestRepositoryListActiveProductsFiltersAndPages(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	for i, name := range []string{"Glass Pipe", "Rolling Tray", "Glass Bong"} {
		p := simpleProduct()
		p.Name = name
		p.SKU = fmt.Sprintf("SKU-%d", i)
		p.Category = "glass"
		if name == "Rolling Tray" {
			p.Category = "accessories"
		}
		require.NoError(t, client.DB().Create(p).Error)
	}

	page, err := repo.ListActiveProducts(ctx, ProductFilter{Category: "glass"})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)

	page, err = repo.ListActiveProducts(ctx, ProductFilter{Query: "tray"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	require.Equal(t, "Rolling Tray", page.Products[0].Name)

	first, err := repo.ListActiveProducts(ctx, ProductFilter{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Products, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListActiveProducts(ctx, ProductFilter{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Products, 1)
	require.Empty(t, second.NextCursor)

	_, err = repo.ListActiveProducts(ctx, ProductFilter{Pagination: pagination.Params{Cursor: "not-a-cursor"}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))
}

func TestRepositoryListLowStock(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	low := simpleProduct()
	low.StockQuantity = 2
	plenty := simpleProduct()
	plenty.SKU = "TRAY-2"
	plenty.StockQuantity = 40
	retired := simpleProduct()
	retired.SKU = "TRAY-3"
	retired.StockQuantity = 0
	retired.IsActive = false
	wraps := variableProduct()
	for _, p := range []*models.Product{low, plenty, retired, wraps} {
		require.NoError(t, client.DB().Create(p).Error)
	}

	items, err := repo.ListLowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "TRAY-1", items[0].SKU)
	require.Nil(t, items[0].VariantID)
	require.Equal(t, 2, items[0].Stock)

	require.Equal(t, "WRAP-S", items[1].SKU)
	require.NotNil(t, items[1].VariantID)
	require.Equal(t, wraps.Variants[0].ID, *items[1].VariantID)
	require.Equal(t, "Hemp Wraps", items[1].ProductName)
}
