package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrWrongPurpose signals a structurally valid token presented for a purpose
// it was not minted for.
var ErrWrongPurpose = errors.New("token purpose mismatch")

// Minter issues and verifies the JWTs used across the auth flows.
type Minter struct {
	cfg config.JWTConfig
}

// NewMinter validates the JWT configuration and returns a Minter.
func NewMinter(cfg config.JWTConfig) (*Minter, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt secrets are required")
	}
	if cfg.AccessTTL() <= 0 || cfg.RefreshTTL() <= 0 || cfg.ResetTTL() <= 0 {
		return nil, fmt.Errorf("jwt ttls must be positive")
	}
	return &Minter{cfg: cfg}, nil
}

// Mint issues a signed JWT for the payload, with TTL and secret chosen by
// purpose.
func (m *Minter) Mint(purpose TokenPurpose, now time.Time, payload TokenPayload) (string, error) {
	if !purpose.IsValid() {
		return "", fmt.Errorf("invalid token purpose %q", purpose)
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := Claims{
		UserID:  payload.UserID,
		Email:   payload.Email,
		Role:    payload.Role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttlFor(purpose))),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString(m.secretFor(purpose))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Verify validates the JWT string against the secret for the expected purpose
// and returns typed claims. A token minted for another purpose fails with
// ErrWrongPurpose; signature and expiry failures surface the jwt library
// error.
func (m *Minter) Verify(tokenString string, purpose TokenPurpose) (*Claims, error) {
	if !purpose.IsValid() {
		return nil, fmt.Errorf("invalid token purpose %q", purpose)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return m.secretFor(purpose), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}

	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}

	return claims, nil
}

func (m *Minter) ttlFor(purpose TokenPurpose) time.Duration {
	switch purpose {
	case PurposeRefresh:
		return m.cfg.RefreshTTL()
	case PurposePasswordReset:
		return m.cfg.ResetTTL()
	default:
		return m.cfg.AccessTTL()
	}
}

// Access and password-reset tokens share the access secret; their purposes
// keep them from standing in for one another. Refresh tokens get their own
// secret so a leaked access secret cannot forge long-lived credentials.
func (m *Minter) secretFor(purpose TokenPurpose) []byte {
	if purpose == PurposeRefresh {
		return []byte(m.cfg.RefreshSecret)
	}
	return []byte(m.cfg.AccessSecret)
}
