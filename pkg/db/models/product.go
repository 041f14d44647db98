package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

// Product is a catalog entry. Price and stock columns are only authoritative for simple
// products; variable products delegate both to their variants.
type Product struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name           string            `gorm:"column:name;not null"`
	Category       string            `gorm:"column:category;not null"`
	SKU            string            `gorm:"column:sku;not null;uniqueIndex"`
	ProductType    enums.ProductType `gorm:"column:product_type;type:text;not null"`
	MOQ            int               `gorm:"column:moq;not null"`
	RetailPrice    decimal.Decimal   `gorm:"column:retail_price;type:numeric(12,2);not null"`
	WholesalePrice decimal.Decimal   `gorm:"column:wholesale_price;type:numeric(12,2);not null"`
	StockQuantity  int               `gorm:"column:stock_quantity;not null"`
	IsActive       bool              `gorm:"column:is_active;not null"`
	Variants       []ProductVariant  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductVariant is a purchasable size/packet option of a variable product.
type ProductVariant struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	SKU            string          `gorm:"column:sku;not null;uniqueIndex"`
	Size           string          `gorm:"column:size;not null"`
	Packet         string          `gorm:"column:packet;not null"`
	RetailPrice    decimal.Decimal `gorm:"column:retail_price;type:numeric(12,2);not null"`
	WholesalePrice decimal.Decimal `gorm:"column:wholesale_price;type:numeric(12,2);not null"`
	StockQuantity  int             `gorm:"column:stock_quantity;not null"`
	SortOrder      int             `gorm:"column:sort_order;not null"`
	IsDefault      bool            `gorm:"column:is_default;not null"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
