package wholesale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	"github.com/angelmondragon/wholesale-storefront/internal/users"
	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db/models"
	"github.com/angelmondragon/wholesale-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/wholesale-storefront/pkg/errors"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service decides wholesale entitlement and runs the application workflow.
type Service interface {
	VolumeDiscountRate(ctx context.Context, user *models.User) (decimal.Decimal, error)
	PricingContext(ctx context.Context, userID uuid.UUID) (pricing.Context, error)
	Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*models.WholesaleApplication, error)
	GetApplication(ctx context.Context, userID uuid.UUID) (*models.WholesaleApplication, error)
	Review(ctx context.Context, input ReviewInput) (*models.WholesaleApplication, error)
}

// ApplyInput carries the business identity submitted with an application.
type ApplyInput struct {
	BusinessName    string
	TaxID           string
	BusinessAddress string
	Phone           string
	Website         *string
}

// ReviewInput is an admin verdict on an application.
type ReviewInput struct {
	ApplicationID uuid.UUID
	ReviewerID    uuid.UUID
	Decision      enums.ReviewDecision
}

type service struct {
	tx    txRunner
	repo  Repository
	users users.Repository
	cfg   config.WholesaleConfig
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the wholesale service.
func NewService(tx txRunner, repo Repository, usersRepo users.Repository, cfg config.WholesaleConfig, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wholesale repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:    tx,
		repo:  repo,
		users: usersRepo,
		cfg:   cfg,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// Qualifies reports whether the user is entitled to wholesale pricing.
func Qualifies(user *models.User) bool {
	return user != nil && user.AccountType == enums.AccountTypeWholesale && user.Approved
}

func (s *service) VolumeDiscountRate(ctx context.Context, user *models.User) (decimal.Decimal, error) {
	if !Qualifies(user) {
		return decimal.Zero, nil
	}
	app, err := s.repo.FindByUserID(ctx, user.ID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	if app.TotalUnitsOrdered > s.cfg.VolumeDiscountThreshold {
		return s.cfg.VolumeDiscountRate, nil
	}
	return decimal.Zero, nil
}

func (s *service) PricingContext(ctx context.Context, userID uuid.UUID) (pricing.Context, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return pricing.Context{}, err
	}
	if !Qualifies(user) {
		return pricing.Retail(), nil
	}
	rate, err := s.VolumeDiscountRate(ctx, user)
	if err != nil {
		return pricing.Context{}, err
	}
	return pricing.Context{
		IsWholesale:        true,
		VolumeDiscountRate: rate,
		MinLineQuantity:    s.cfg.MinLineQuantity,
	}, nil
}

func (s *service) Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*models.WholesaleApplication, error) {
	input = input.normalized()
	if input.BusinessName == "" || input.TaxID == "" || input.BusinessAddress == "" || input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "business name, tax id, address and phone are required")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a wholesale application already exists for this user").
			WithDetails(map[string]any{"status": existing.Status})
	}

	app := &models.WholesaleApplication{
		UserID:          userID,
		BusinessName:    input.BusinessName,
		TaxID:           input.TaxID,
		BusinessAddress: input.BusinessAddress,
		Phone:           input.Phone,
		Website:         input.Website,
		Status:          enums.ApplicationStatusPending,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":        userID.String(),
		"application_id": app.ID.String(),
	}), "wholesale application submitted")
	return app, nil
}

func (s *service) GetApplication(ctx context.Context, userID uuid.UUID) (*models.WholesaleApplication, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *service) Review(ctx context.Context, input ReviewInput) (*models.WholesaleApplication, error) {
	status, err := input.Decision.Status()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidRequest, err, "decision must be approve or reject")
	}
	if input.ApplicationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "application id required")
	}

	var reviewed *models.WholesaleApplication
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		app, err := repo.FindByID(ctx, input.ApplicationID)
		if err != nil {
			return err
		}
		if app.Status != enums.ApplicationStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "application has already been reviewed").
				WithDetails(map[string]any{"status": app.Status})
		}
		if err := repo.MarkReviewed(ctx, app.ID, status, input.ReviewerID, s.now().UTC()); err != nil {
			return err
		}
		if status == enums.ApplicationStatusApproved {
			if err := s.users.WithTx(tx).UpdateAccountClass(ctx, app.UserID, enums.AccountTypeWholesale, true); err != nil {
				return err
			}
		}

		reviewed, err = repo.FindByID(ctx, app.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"application_id": reviewed.ID.String(),
		"user_id":        reviewed.UserID.String(),
		"reviewer_id":    input.ReviewerID.String(),
		"status":         reviewed.Status.String(),
	}), "wholesale application reviewed")
	return reviewed, nil
}

func (in ApplyInput) normalized() ApplyInput {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.BusinessAddress = strings.TrimSpace(in.BusinessAddress)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Website != nil {
		website := strings.TrimSpace(*in.Website)
		if website == "" {
			in.Website = nil
		} else {
			in.Website = &website
		}
	}
	return in
}
