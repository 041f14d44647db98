package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

// Service exposes the cart operations used by the storefront.
type Service interface {
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) (*View, error)
}

// AddItemInput selects a product, and a variant for variable products.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type service struct {
	repo    Repository
	catalog catalogReader
	pricing pricingContextProvider
	engine  *pricing.Engine
	logg    *logger.Logger
}

// NewService builds the cart service.
func NewService(repo Repository, catalogRepo catalogReader, pricingProvider pricingContextProvider, engine *pricing.Engine, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if pricingProvider == nil {
		return nil, fmt.Errorf("pricing context provider required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		pricing: pricingProvider,
		engine:  engine,
		logg:    logg,
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartItem, error) {
	ctx = s.lineContext(ctx, userID, input.ProductID, input.VariantID, input.Quantity)

	if input.Quantity <= 0 {
		return nil, s.reject(ctx, pkgerrors.New(pkgerrors.CodeInvalidRequest, "quantity must be positive"))
	}

	source, err := s.catalog.Load(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	if !source.Active() {
		return nil, s.reject(ctx, unavailable(source))
	}

	pc, err := s.pricing.PricingContext(ctx, userID)
	if err != nil {
		return nil, s.reject(ctx, err)
	}

	existing, err := s.repo.FindLine(ctx, userID, input.ProductID, input.VariantID)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	resulting := input.Quantity
	if existing != nil {
		resulting += existing.Quantity
	}
	if err := checkLine(source, pc, resulting); err != nil {
		return nil, s.reject(ctx, err)
	}

	if existing != nil {
		if err := s.repo.IncrementQuantity(ctx, existing.ID, input.Quantity); err != nil {
			return nil, s.reject(ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item"))
		}
		return s.repo.FindByID(ctx, existing.ID)
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: input.ProductID,
		VariantID: source.VariantID(),
		Quantity:  input.Quantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, s.reject(ctx, err)
	}
	return s.repo.FindByID(ctx, item.ID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	ctx = s.lineContext(ctx, userID, item.ProductID, item.VariantID, quantity)

	if quantity <= 0 {
		return nil, s.reject(ctx, pkgerrors.New(pkgerrors.CodeInvalidRequest, "quantity must be positive"))
	}

	source, err := s.catalog.Load(ctx, item.ProductID, item.VariantID)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	if !source.Active() {
		return nil, s.reject(ctx, unavailable(source))
	}

	pc, err := s.pricing.PricingContext(ctx, userID)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	if err := checkLine(source, pc, quantity); err != nil {
		return nil, s.reject(ctx, err)
	}

	if err := s.repo.SetQuantity(ctx, item.ID, quantity); err != nil {
		return nil, s.reject(ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item"))
	}
	return s.repo.FindByID(ctx, item.ID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return s.reject(ctx, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item"))
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.ClearUser(ctx, userID); err != nil {
		return s.reject(s.logg.WithUserID(ctx, userID.String()), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart"))
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) (*View, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pc, err := s.pricing.PricingContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildView(items, pc, s.engine), nil
}

// owned loads an item and hides other users' lines behind Forbidden.
func (s *service) owned(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "cart_item_id": itemID.String()})
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	if item.UserID != userID {
		return nil, s.reject(ctx, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another user"))
	}
	return item, nil
}

// checkLine enforces the wholesale minimum and stock sufficiency for a resulting quantity.
func checkLine(source catalog.Priceable, pc pricing.Context, quantity int) error {
	if minimum := pc.MinimumQuantity(source.Product()); quantity < minimum {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, fmt.Sprintf("wholesale orders require at least %d units of %s", minimum, source.Label())).
			WithDetails(map[string]any{"minimum_quantity": minimum, "requested": quantity})
	}
	if quantity > source.StockQuantity() {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("not enough stock for %s", source.Label())).
			WithDetails(stockDetails(source, quantity))
	}
	return nil
}

func stockDetails(source catalog.Priceable, requested int) map[string]any {
	details := map[string]any{
		"product_id": source.Product().ID,
		"available":  source.StockQuantity(),
		"requested":  requested,
	}
	if sku := source.VariantSKU(); sku != nil {
		details["variant_sku"] = *sku
	}
	return details
}

func unavailable(source catalog.Priceable) error {
	return pkgerrors.New(pkgerrors.CodeInvalidRequest, fmt.Sprintf("%s is not available", source.Label()))
}

func (s *service) lineContext(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, quantity int) context.Context {
	fields := map[string]any{
		"user_id":    userID.String(),
		"product_id": productID.String(),
		"quantity":   quantity,
	}
	if variantID != nil {
		fields["variant_id"] = variantID.String()
	}
	return s.logg.WithFields(ctx, fields)
}

// reject logs a failed cart operation and returns err unchanged.
func (s *service) reject(ctx context.Context, err error) error {
	s.logg.Rejected(ctx, "cart operation rejected", err)
	return err
}
