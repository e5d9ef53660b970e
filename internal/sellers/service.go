package sellers

import (
	"context"
	"errors"
	"strings"

	"github.com/angelviera/shoplane-backend/internal/users"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines the storefront operations needed by the sellers controller.
type Service interface {
	Register(ctx context.Context, userID uuid.UUID, req RegisterRequest) (*SellerDTO, error)
	GetMine(ctx context.Context, userID uuid.UUID) (*SellerDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*SellerDTO, error)
}

type sellerRepository interface {
	Create(ctx context.Context, seller *models.Seller) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	WithTx(tx *gorm.DB) *Repository
}

type sellerUserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	WithTx(tx *gorm.DB) *users.Repository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	sellers sellerRepository
	users   sellerUserRepository
	tx      txRunner
}

// ServiceParams bundles the dependencies required to build a sellers service.
type ServiceParams struct {
	SellerRepo sellerRepository
	UserRepo   sellerUserRepository
	TxRunner   txRunner
}

// NewService constructs a sellers service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.SellerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository is required")
	}
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	return &service{
		sellers: params.SellerRepo,
		users:   params.UserRepo,
		tx:      params.TxRunner,
	}, nil
}

// Register opens a storefront and promotes the account to the seller role in
// one transaction; a half-promoted account must not be observable.
func (s *service) Register(ctx context.Context, userID uuid.UUID, req RegisterRequest) (*SellerDTO, error) {
	shopName := strings.TrimSpace(req.ShopName)
	if shopName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name is required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	seller := &models.Seller{
		UserID:      userID,
		ShopName:    shopName,
		Description: req.Description,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.sellers.WithTx(tx).Create(ctx, seller); err != nil {
			switch {
			case db.IsUniqueViolation(err, "uq_sellers_user_id"):
				return pkgerrors.New(pkgerrors.CodeConflict, "account already has a storefront")
			case db.IsUniqueViolation(err, "uq_sellers_shop_name"):
				return pkgerrors.New(pkgerrors.CodeConflict, "shop name already taken")
			default:
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seller")
			}
		}
		// Admins keep their role; everyone else becomes a seller.
		if user.Role != enums.UserRoleAdmin {
			if err := s.users.WithTx(tx).UpdateRole(ctx, userID, enums.UserRoleSeller); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote role")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(seller), nil
}

// GetMine returns the caller's storefront.
func (s *service) GetMine(ctx context.Context, userID uuid.UUID) (*SellerDTO, error) {
	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storefront not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	return FromModel(seller), nil
}

// UpdateProfile applies the non-nil storefront fields.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*SellerDTO, error) {
	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "storefront not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}

	updates := map[string]any{}
	if req.ShopName != nil {
		name := strings.TrimSpace(*req.ShopName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name cannot be empty")
		}
		updates["shop_name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		return FromModel(seller), nil
	}

	if err := s.sellers.Update(ctx, seller.ID, updates); err != nil {
		if db.IsUniqueViolation(err, "uq_sellers_shop_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "shop name already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update seller")
	}

	seller, err = s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload seller")
	}
	return FromModel(seller), nil
}
