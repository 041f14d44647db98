package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

// User mirrors the identity record owned by the auth provider. Only the pricing class
// fields are read by this service.
type User struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Email       string            `gorm:"column:email;type:text;not null;uniqueIndex"`
	FirstName   string            `gorm:"column:first_name;not null"`
	LastName    string            `gorm:"column:last_name;not null"`
	AccountType enums.AccountType `gorm:"column:account_type;type:text;not null"`
	Approved    bool              `gorm:"column:approved;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	if u.AccountType == "" {
		u.AccountType = enums.AccountTypeRetail
	}
	return nil
}
