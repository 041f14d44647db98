package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

// WholesaleApplication is the single wholesale request per user. TotalUnitsOrdered only
// grows, and only through order placement.
type WholesaleApplication struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BusinessName      string                  `gorm:"column:business_name;not null"`
	TaxID             string                  `gorm:"column:tax_id;not null"`
	BusinessAddress   string                  `gorm:"column:business_address;not null"`
	Phone             string                  `gorm:"column:phone;not null"`
	Website           *string                 `gorm:"column:website"`
	Status            enums.ApplicationStatus `gorm:"column:status;type:text;not null"`
	TotalUnitsOrdered int64                   `gorm:"column:total_units_ordered;not null"`
	ReviewedBy        *uuid.UUID              `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt        *time.Time              `gorm:"column:reviewed_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *WholesaleApplication) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	if w.Status == "" {
		w.Status = enums.ApplicationStatusPending
	}
	return nil
}
