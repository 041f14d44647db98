package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Variant").
		First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return &item, nil
}

func (r *repository) FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}

	var item models.CartItem
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	return &item, nil
}

// ListByUser returns the user's lines oldest first with the catalog refs needed to price them.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product.Variants").
		Preload("Variant").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return items, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		// a concurrent add created the same line first
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item was added to the cart concurrently, retry the request")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
	}
	return nil
}

func (r *repository) IncrementQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity": gorm.Expr("quantity + ?", delta)}).Error
}

func (r *repository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

func (r *repository) ClearUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ConsumeLines deletes each line only while it still holds the quantity it was read with,
// then checks nothing else is left in the cart. It reports false, without error, as soon as
// the cart no longer matches the lines.
func (r *repository) ConsumeLines(ctx context.Context, userID uuid.UUID, lines []Line) (bool, error) {
	conn := r.db.WithContext(ctx)
	for _, line := range lines {
		res := conn.
			Where("id = ? AND user_id = ? AND quantity = ?", line.ID, userID, line.Quantity).
			Delete(&models.CartItem{})
		if res.Error != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete cart line")
		}
		if res.RowsAffected != 1 {
			return false, nil
		}
	}

	var left int64
	if err := conn.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&left).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart lines")
	}
	return left == 0, nil
}

func (r *repository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
