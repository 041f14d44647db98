package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
)

// Line identifies a cart line together with the quantity it was read with.
type Line struct {
	ID       uuid.UUID
	Quantity int
}

// Repository persists cart lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	// FindLine returns the line matching the uniqueness key, or nil when there is none.
	FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	IncrementQuantity(ctx context.Context, id uuid.UUID, delta int) error
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// ConsumeLines removes exactly the given lines and reports whether the cart still
	// matched them: every line at its quantity and no other line present.
	ConsumeLines(ctx context.Context, userID uuid.UUID, lines []Line) (bool, error)
	// DeleteStale removes lines not touched since cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type catalogReader interface {
	Load(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (catalog.Priceable, error)
}

type pricingContextProvider interface {
	PricingContext(ctx context.Context, userID uuid.UUID) (pricing.Context, error)
}
