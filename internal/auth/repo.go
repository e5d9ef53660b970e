package auth

import (
	"context"
	"time"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshTokenRepository persists refresh chains.
type RefreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository constructs a refresh token repo bound to the provided GORM DB.
func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *RefreshTokenRepository) WithTx(tx *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: tx}
}

// Create inserts a new refresh token row.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByToken loads the row for the presented token string.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Revoke marks a single token as spent. RowsAffected distinguishes the first
// redemption from a replay.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeAllForUser invalidates every live token of a user, used after a
// password reset.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// DeleteExpired prunes rows whose expiry is in the past.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// VerificationCodeRepository persists email verification challenges.
type VerificationCodeRepository struct {
	db *gorm.DB
}

// NewVerificationCodeRepository constructs a verification code repo bound to the provided GORM DB.
func NewVerificationCodeRepository(db *gorm.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *VerificationCodeRepository) WithTx(tx *gorm.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{db: tx}
}

// Create inserts a new code row.
func (r *VerificationCodeRepository) Create(ctx context.Context, code *models.VerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

// FindLatestByUser returns the newest code for the user; older codes are dead
// the moment a newer one exists.
func (r *VerificationCodeRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.VerificationCode, error) {
	var row models.VerificationCode
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountIssuedSince counts codes created in the rolling issuance window.
func (r *VerificationCodeRepository) CountIssuedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.VerificationCode{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// IncrementAttempts bumps the failure counter on one code.
func (r *VerificationCodeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.VerificationCode{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

// DeleteAllForUser removes every code of the user, called on successful
// verification.
func (r *VerificationCodeRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.VerificationCode{}).Error
}
