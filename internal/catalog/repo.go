package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
	"github.com/angelmondragon/wholesale-storefront/pkg/pagination"
)

// Repository reads the catalog and applies stock decrements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	Load(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Priceable, error)
	ListActiveProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	DecrementStock(ctx context.Context, source Priceable, qty int) (bool, error)
	ListLowStock(ctx context.Context, threshold int) ([]LowStockItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func variantsBySortOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC").Order("sku ASC")
}

// FindProduct loads a product with its variants ordered for display.
func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", variantsBySortOrder).
		First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// FindProducts loads several products keyed by id. Missing ids are simply absent.
func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", variantsBySortOrder).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// FindVariant loads a single variant.
func (r *repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return &variant, nil
}

// Load resolves the price source for a product and optional variant.
func (r *repository) Load(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Priceable, error) {
	product, err := r.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return Resolve(product, variantID)
}

// ProductFilter narrows the storefront listing.
type ProductFilter struct {
	Category   string
	Query      string
	Pagination pagination.Params
}

// ProductPage is one page of active products.
type ProductPage struct {
	Products   []models.Product
	NextCursor string
}

// ListActiveProducts returns active products with their active variants, newest first.
func (r *repository) ListActiveProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	keyset, err := pagination.NewKeyset(filter.Pagination)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return variantsBySortOrder(db.Where("is_active = ?", true))
		}).
		Where("is_active = ?", true)
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", like, like)
	}

	var products []models.Product
	if err := query.Scopes(keyset.Scope).Find(&products).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := &ProductPage{}
	page.Products, page.NextCursor = pagination.Trim(keyset, products, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return page, nil
}

// DecrementStock subtracts qty from the source's stock only when enough remains. It reports
// false when the guard rejected the update.
func (r *repository) DecrementStock(ctx context.Context, source Priceable, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}

	var res *gorm.DB
	switch src := source.(type) {
	case ProductPriced:
		res = r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", src.product.ID, qty).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	case VariantPriced:
		res = r.db.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND stock_quantity >= ?", src.variant.ID, qty).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	default:
		return false, fmt.Errorf("unsupported price source %T", source)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LowStockItem is a sellable stock source at or below a reorder threshold.
type LowStockItem struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	ProductName string
	SKU         string
	Stock       int
}

// ListLowStock reports active simple products and active variants of active variable
// products whose stock is at or below threshold, lowest stock first.
func (r *repository) ListLowStock(ctx context.Context, threshold int) ([]LowStockItem, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND product_type = ? AND stock_quantity <= ?", true, enums.ProductTypeSimple, threshold).
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}

	type variantRow struct {
		models.ProductVariant
		ProductName string
	}
	var variants []variantRow
	err = r.db.WithContext(ctx).
		Table("product_variants").
		Select("product_variants.*, products.name AS product_name").
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.is_active = ? AND products.product_type = ?", true, enums.ProductTypeVariable).
		Where("product_variants.is_active = ? AND product_variants.stock_quantity <= ?", true, threshold).
		Scan(&variants).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock variants")
	}

	items := make([]LowStockItem, 0, len(products)+len(variants))
	for _, p := range products {
		items = append(items, LowStockItem{ProductID: p.ID, ProductName: p.Name, SKU: p.SKU, Stock: p.StockQuantity})
	}
	for _, v := range variants {
		variantID := v.ID
		items = append(items, LowStockItem{ProductID: v.ProductID, VariantID: &variantID, ProductName: v.ProductName, SKU: v.SKU, Stock: v.StockQuantity})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Stock != items[j].Stock {
			return items[i].Stock < items[j].Stock
		}
		return items[i].SKU < items[j].SKU
	})
	return items, nil
}
