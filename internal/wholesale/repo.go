package wholesale

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wholesale application repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WholesaleApplication, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.WholesaleApplication, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *repository) first(ctx context.Context, query string, arg any) (*models.WholesaleApplication, error) {
	var app models.WholesaleApplication
	if err := r.db.WithContext(ctx).Where(query, arg).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wholesale application not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wholesale application")
	}
	return &app, nil
}

func (r *repository) Create(ctx context.Context, app *models.WholesaleApplication) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a wholesale application already exists for this user")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wholesale application")
	}
	return nil
}

// MarkReviewed only moves applications that are still pending.
func (r *repository) MarkReviewed(ctx context.Context, id uuid.UUID, status enums.ApplicationStatus, reviewerID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.WholesaleApplication{}).
		Where("id = ? AND status = ?", id, enums.ApplicationStatusPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "application has already been reviewed")
	}
	return nil
}

// IncrementUnitsOrdered bumps the cumulative counter. A user without an application has
// nothing to count and is not an error.
func (r *repository) IncrementUnitsOrdered(ctx context.Context, userID uuid.UUID, units int64) error {
	if units <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.WholesaleApplication{}).
		Where("user_id = ?", userID).
		UpdateColumn("total_units_ordered", gorm.Expr("total_units_ordered + ?", units)).Error
}
