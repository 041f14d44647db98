package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

// Order is immutable after creation except for its status.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount        decimal.Decimal   `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	ShippingCost     decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency         string            `gorm:"column:currency;not null"`
	ShippingMethod   string            `gorm:"column:shipping_method;not null"`
	PaymentMethod    string            `gorm:"column:payment_method;not null"`
	PaymentReference *string           `gorm:"column:payment_reference"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null"`
	IsWholesale      bool              `gorm:"column:is_wholesale;not null"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}

// OrderItem snapshots a cart line at order time. UnitPrice is the price as charged and is
// never recomputed from the catalog.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position     int             `gorm:"column:position;not null"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID    *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ProductName  string          `gorm:"column:product_name;not null"`
	VariantSKU   *string         `gorm:"column:variant_sku"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,4);not null"`
	DiscountRate decimal.Decimal `gorm:"column:discount_rate;type:numeric(5,4);not null"`
	LineTotal    decimal.Decimal `gorm:"column:line_total;type:numeric(14,4);not null"`
	Product      *Product        `gorm:"foreignKey:ProductID"`
	Variant      *ProductVariant `gorm:"foreignKey:VariantID"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
