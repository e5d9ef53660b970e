package auth

import (
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPurpose discriminates the token kinds this service mints. A token is
// only accepted where its purpose matches; an access token can never stand in
// for a refresh or reset token.
type TokenPurpose string

const (
	PurposeAccess        TokenPurpose = "access"
	PurposeRefresh       TokenPurpose = "refresh"
	PurposePasswordReset TokenPurpose = "password_reset"
)

// IsValid reports whether the purpose is one we mint.
func (p TokenPurpose) IsValid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposePasswordReset:
		return true
	}
	return false
}

// TokenPayload captures the data available when minting a JWT.
type TokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
	JTI    string
}

// Claims represents the typed JWT issued to clients.
type Claims struct {
	UserID  uuid.UUID      `json:"user_id"`
	Email   string         `json:"email,omitempty"`
	Role    enums.UserRole `json:"role"`
	Purpose TokenPurpose   `json:"purpose"`
	jwt.RegisteredClaims
}
