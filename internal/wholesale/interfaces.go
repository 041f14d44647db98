package wholesale

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
)

// Repository persists wholesale applications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.WholesaleApplication, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.WholesaleApplication, error)
	Create(ctx context.Context, app *models.WholesaleApplication) error
	MarkReviewed(ctx context.Context, id uuid.UUID, status enums.ApplicationStatus, reviewerID uuid.UUID, at time.Time) error
	IncrementUnitsOrdered(ctx context.Context, userID uuid.UUID, units int64) error
}
