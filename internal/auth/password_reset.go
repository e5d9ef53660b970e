package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/angelviera/shoplane-backend/pkg/mail"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"gorm.io/gorm"
)

// PasswordResetService drives the forgot/reset flow. The reset token is a
// self-contained signed JWT; nothing is stored server-side, redemption is a
// signature and expiry check.
type PasswordResetService interface {
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	WithTx(tx *gorm.DB) *users.Repository
}

// PasswordResetServiceParams packages the dependencies for the reset flow.
type PasswordResetServiceParams struct {
	UserRepo         resetUserRepository
	RefreshTokenRepo refreshTokenRepository
	TxRunner         txRunner
	Minter           *pkgauth.Minter
	PasswordConfig   config.PasswordConfig
	Mailer           mail.Sender
	Logger           *logger.Logger
	Now              func() time.Time
}

type passwordResetService struct {
	users       resetUserRepository
	refresh     refreshTokenRepository
	tx          txRunner
	minter      *pkgauth.Minter
	passwordCfg config.PasswordConfig
	mailer      mail.Sender
	logg        *logger.Logger
	now         func() time.Time
}

// NewPasswordResetService builds the reset flow with the provided dependencies.
func NewPasswordResetService(params PasswordResetServiceParams) (PasswordResetService, error) {
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
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &passwordResetService{
		users:       params.UserRepo,
		refresh:     params.RefreshTokenRepo,
		tx:          params.TxRunner,
		minter:      params.Minter,
		passwordCfg: params.PasswordConfig,
		mailer:      params.Mailer,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// ForgotPassword responds identically whether or not the email exists, so
// the endpoint cannot be used to probe for accounts.
func (s *passwordResetService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, err := s.minter.Mint(pkgauth.PurposePasswordReset, s.now(), pkgauth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint reset token")
	}

	if s.mailer != nil {
		go func() {
			sendCtx := context.WithoutCancel(ctx)
			if err := s.mailer.Send(sendCtx, mail.PasswordReset(user.Email, token)); err != nil && s.logg != nil {
				s.logg.Error(sendCtx, "send password reset mail", err)
			}
		}()
	}
	return nil
}

// ResetPassword swaps the credential and kills every live refresh token in
// one transaction so stolen sessions die with the old password.
func (s *passwordResetService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	claims, err := s.minter.Verify(req.Token, pkgauth.PurposePasswordReset)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdatePassword(ctx, claims.UserID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store password")
		}
		if err := s.refresh.WithTx(tx).RevokeAllForUser(ctx, claims.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke sessions")
		}
		return nil
	})
}
