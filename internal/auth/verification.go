package auth

import (
	"context"
	"errors"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/angelviera/shoplane-backend/pkg/mail"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationService drives the email verification lifecycle.
type VerificationService interface {
	RequestCode(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error
}

type verificationUserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetVerified(ctx context.Context, id uuid.UUID) error
	WithTx(tx *gorm.DB) *users.Repository
}

type codeRepository interface {
	Create(ctx context.Context, code *models.VerificationCode) error
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.VerificationCode, error)
	CountIssuedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	WithTx(tx *gorm.DB) *VerificationCodeRepository
}

// VerificationServiceParams packages the dependencies for the verification flow.
type VerificationServiceParams struct {
	UserRepo verificationUserRepository
	CodeRepo codeRepository
	TxRunner txRunner
	Mailer   mail.Sender
	Config   config.VerificationConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type verificationService struct {
	users  verificationUserRepository
	codes  codeRepository
	tx     txRunner
	mailer mail.Sender
	cfg    config.VerificationConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewVerificationService builds the verification flow with the provided dependencies.
func NewVerificationService(params VerificationServiceParams) (VerificationService, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	if params.CodeRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "code repository is required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &verificationService{
		users:  params.UserRepo,
		codes:  params.CodeRepo,
		tx:     params.TxRunner,
		mailer: params.Mailer,
		cfg:    params.Config,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// RequestCode issues a fresh verification code. Issuance is capped per
// rolling window, counted from the codes table itself so the limit needs no
// extra state. The mail goes out only after the insert committed.
func (s *verificationService) RequestCode(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user.IsVerified {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already verified")
	}

	now := s.now()
	issued, err := s.codes.CountIssuedSince(ctx, userID, now.Add(-s.cfg.IssueWindow))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count issued codes")
	}
	if issued >= int64(s.cfg.IssueLimit) {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many verification codes requested, try again later")
	}

	code, err := security.GenerateCode(s.cfg.CodeLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}

	row := &models.VerificationCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
	}
	if err := s.codes.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store code")
	}

	s.sendAfterCommit(ctx, mail.VerificationCode(user.Email, code))
	return nil
}

// VerifyEmail checks the submitted code against the latest issued one. A
// mismatch burns an attempt and that burn must survive the failed request,
// so it runs outside the success transaction. Success deletes every code for
// the user and flips the verified flag atomically.
func (s *verificationService) VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if user.IsVerified {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already verified")
	}

	latest, err := s.codes.FindLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no verification code issued")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load code")
	}

	now := s.now()
	if latest.Attempts >= s.cfg.MaxAttempts {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, request a new code")
	}
	if latest.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "verification code expired")
	}
	if latest.Code != code {
		if err := s.codes.IncrementAttempts(ctx, latest.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record attempt")
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "incorrect verification code")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.codes.WithTx(tx).DeleteAllForUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear codes")
		}
		if err := s.users.WithTx(tx).SetVerified(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark verified")
		}
		return nil
	})
}

func (s *verificationService) sendAfterCommit(ctx context.Context, msg mail.Message) {
	if s.mailer == nil {
		return
	}
	go func() {
		sendCtx := context.WithoutCancel(ctx)
		if err := s.mailer.Send(sendCtx, msg); err != nil && s.logg != nil {
			s.logg.Error(sendCtx, "send verification mail", err)
		}
	}()
}
