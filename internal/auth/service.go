package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the login and refresh behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type refreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) (bool, error)
	WithTx(tx *gorm.DB) *RefreshTokenRepository
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	users    userRepository
	refresh  refreshTokenRepository
	tx       txRunner
	minter   *pkgauth.Minter
	tokenTTL time.Duration
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo         userRepository
	RefreshTokenRepo refreshTokenRepository
	TxRunner         txRunner
	Minter           *pkgauth.Minter
	RefreshTTL       time.Duration
	Now              func() time.Time
}

// NewService constructs a login/refresh service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	if params.RefreshTokenRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refresh token repository is required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	if params.Minter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "token minter is required")
	}
	if params.RefreshTTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refresh ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:    params.UserRepo,
		refresh:  params.RefreshTokenRepo,
		tx:       params.TxRunner,
		minter:   params.Minter,
		tokenTTL: params.RefreshTTL,
		now:      now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	pair, row, err := s.mintPair(user, now)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		TokenPair: *pair,
		User:      users.FromModel(user),
	}, nil
}

// Refresh rotates the presented token: the old row is revoked and the
// replacement inserted in one transaction, so each refresh token is
// redeemable exactly once even under concurrent presentation.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	claims, err := s.minter.Verify(req.RefreshToken, pkgauth.PurposeRefresh)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	now := s.now()
	var pair *TokenPair

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.refresh.WithTx(tx)

		row, err := repo.FindByToken(ctx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load refresh token")
		}
		if !row.Live(now) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token expired or revoked")
		}

		revoked, err := repo.Revoke(ctx, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh token")
		}
		if !revoked {
			// Lost the race to a concurrent redemption.
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token already used")
		}

		user, err := s.users.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if !user.IsActive {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled")
		}

		newPair, newRow, err := s.mintPair(user, now)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, newRow); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
		}
		pair = newPair
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *service) mintPair(user *models.User, now time.Time) (*TokenPair, *models.RefreshToken, error) {
	return mintTokenPair(s.minter, user, now, s.tokenTTL)
}

// mintTokenPair issues the access/refresh pair plus the refresh row to
// persist; registration and login share it.
func mintTokenPair(minter *pkgauth.Minter, user *models.User, now time.Time, refreshTTL time.Duration) (*TokenPair, *models.RefreshToken, error) {
	payload := pkgauth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	access, err := minter.Mint(pkgauth.PurposeAccess, now, payload)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := minter.Mint(pkgauth.PurposeRefresh, now, payload)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}

	row := &models.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: now.Add(refreshTTL),
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, row, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}
