package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

// CodeIssuer abstracts the verification flow so registration can hand out the
// first code without owning the lifecycle.
type CodeIssuer interface {
	RequestCode(ctx context.Context, userID uuid.UUID) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	WithTx(tx *gorm.DB) *users.Repository
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	UserRepo         registerUserRepository
	RefreshTokenRepo refreshTokenRepository
	TxRunner         txRunner
	Codes            CodeIssuer
	Minter           *pkgauth.Minter
	RefreshTTL       time.Duration
	PasswordConfig   config.PasswordConfig
	Logger           *logger.Logger
	Now              func() time.Time
}

type registerService struct {
	users       registerUserRepository
	refresh     refreshTokenRepository
	tx          txRunner
	codes       CodeIssuer
	minter      *pkgauth.Minter
	tokenTTL    time.Duration
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
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
	return &registerService{
		users:       params.UserRepo,
		refresh:     params.RefreshTokenRepo,
		tx:          params.TxRunner,
		codes:       params.Codes,
		minter:      params.Minter,
		tokenTTL:    params.RefreshTTL,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Register creates the account and its first session inside one transaction.
// The duplicate check runs in the same transaction and the unique index
// backstops concurrent inserts that slip past it; both paths surface as
// CONFLICT.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var (
		created *models.User
		pair    *TokenPair
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := repo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "uq_users_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		// The account logs in straight away; the refresh row commits with it.
		tokens, row, err := mintTokenPair(s.minter, user, s.now(), s.tokenTTL)
		if err != nil {
			return err
		}
		if err := s.refresh.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
		}

		created = user
		pair = tokens
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The first verification code goes out after the account commit; a mail
	// hiccup must not undo the registration.
	if s.codes != nil {
		if err := s.codes.RequestCode(ctx, created.ID); err != nil && s.logg != nil {
			logCtx := s.logg.WithUserID(ctx, created.ID.String())
			s.logg.Warn(logCtx, "issue initial verification code failed")
		}
	}

	return &RegisterResponse{
		TokenPair: *pair,
		User:      users.FromModel(created),
	}, nil
}
