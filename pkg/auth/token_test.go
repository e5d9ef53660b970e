package auth

import (
	"testing"
	"time"

	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Issuer:            "shoplane-test",
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		AccessTTLMinutes:  15,
		RefreshTTLMinutes: 60 * 24 * 7,
		ResetTTLMinutes:   60,
	}
}

func testPayload() TokenPayload {
	return TokenPayload{
		UserID: uuid.New(),
		Email:  "buyer@example.com",
		Role:   enums.UserRoleUser,
	}
}

func TestMinter_MintAndVerify(t *testing.T) {
	minter, err := NewMinter(testJWTConfig())
	require.NoError(t, err)

	payload := testPayload()
	token, err := minter.Mint(PurposeAccess, time.Now(), payload)
	require.NoError(t, err)

	claims, err := minter.Verify(token, PurposeAccess)
	require.NoError(t, err)
	require.Equal(t, payload.UserID, claims.UserID)
	require.Equal(t, payload.Email, claims.Email)
	require.Equal(t, enums.UserRoleUser, claims.Role)
	require.Equal(t, PurposeAccess, claims.Purpose)
	require.NotEmpty(t, claims.ID)
}

func TestMinter_RejectsWrongPurpose(t *testing.T) {
	minter, err := NewMinter(testJWTConfig())
	require.NoError(t, err)

	refresh, err := minter.Mint(PurposeRefresh, time.Now(), testPayload())
	require.NoError(t, err)

	// Refresh tokens are signed with a different secret, so presenting one
	// as an access token fails at signature verification.
	_, err = minter.Verify(refresh, PurposeAccess)
	require.Error(t, err)

	// Reset tokens share the access secret; the purpose claim is the guard.
	reset, err := minter.Mint(PurposePasswordReset, time.Now(), testPayload())
	require.NoError(t, err)
	_, err = minter.Verify(reset, PurposeAccess)
	require.ErrorIs(t, err, ErrWrongPurpose)
}

func TestMinter_RejectsExpiredToken(t *testing.T) {
	minter, err := NewMinter(testJWTConfig())
	require.NoError(t, err)

	issued := time.Now().Add(-24 * time.Hour)
	token, err := minter.Mint(PurposeAccess, issued, testPayload())
	require.NoError(t, err)

	_, err = minter.Verify(token, PurposeAccess)
	require.Error(t, err)
}

func TestMinter_RejectsTamperedToken(t *testing.T) {
	minter, err := NewMinter(testJWTConfig())
	require.NoError(t, err)

	token, err := minter.Mint(PurposeAccess, time.Now(), testPayload())
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.AccessSecret = "someone-elses-secret"
	other, err := NewMinter(otherCfg)
	require.NoError(t, err)

	_, err = other.Verify(token, PurposeAccess)
	require.Error(t, err)
}

func TestNewMinter_ValidatesConfig(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessSecret = ""
	_, err := NewMinter(cfg)
	require.Error(t, err)

	cfg = testJWTConfig()
	cfg.Issuer = ""
	_, err = NewMinter(cfg)
	require.Error(t, err)

	cfg = testJWTConfig()
	cfg.AccessTTLMinutes = 0
	_, err = NewMinter(cfg)
	require.Error(t, err)
}
