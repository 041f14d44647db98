package users

import (
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email       string
	FirstName   string
	LastName    string
	AccountType enums.AccountType
	Approved    bool
}

// ToModel converts the DTO into the GORM model.
func (dto CreateUserDTO) ToModel() *models.User {
	accountType := dto.AccountType
	if accountType == "" {
		accountType = enums.AccountTypeRetail
	}
	return &models.User{
		Email:       dto.Email,
		FirstName:   dto.FirstName,
		LastName:    dto.LastName,
		AccountType: accountType,
		Approved:    dto.Approved,
	}
}
