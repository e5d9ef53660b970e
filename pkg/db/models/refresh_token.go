package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken persists one link of a refresh chain. Rotation revokes the
// presented row and inserts its replacement in the same transaction, so at
// most one live row exists per chain.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Token     string    `gorm:"column:token;type:text;not null;uniqueIndex:uq_refresh_tokens_token"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	Revoked   bool      `gorm:"column:revoked;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *RefreshToken) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Live reports whether the token can still be redeemed.
func (r *RefreshToken) Live(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}
