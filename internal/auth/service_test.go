package auth

import (
	"context"
	"testing"
	"time"

	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestLogin_Succeeds(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "login@example.com", "Secret123!")
	svc := newLoginService(t, conn)

	resp, err := svc.Login(ctx, LoginRequest{Email: "Login@Example.com", Password: "Secret123!"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, user.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLoginAt)

	// The refresh token is persisted and live.
	var row models.RefreshToken
	require.NoError(t, conn.Where("token = ?", resp.RefreshToken).First(&row).Error)
	require.Equal(t, user.ID, row.UserID)
	require.False(t, row.Revoked)
}

func TestLogin_WrongPassword(t *testing.T) {
	conn := openTestDB(t)
	seedActiveUser(t, conn, "wrong@example.com", "Secret123!")
	svc := newLoginService(t, conn)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "wrong@example.com", Password: "nope"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogin_UnknownEmailAndInactive(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	svc := newLoginService(t, conn)

	_, err := svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	user := seedActiveUser(t, conn, "inactive@example.com", "Secret123!")
	require.NoError(t, conn.Model(user).Update("is_active", false).Error)

	_, err = svc.Login(ctx, LoginRequest{Email: "inactive@example.com", Password: "Secret123!"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefresh_RotatesSingleUse(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "rotate@example.com", "Secret123!")
	svc := newLoginService(t, conn)

	resp, err := svc.Login(ctx, LoginRequest{Email: "rotate@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	// Replaying the spent token fails.
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: resp.RefreshToken})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	// Exactly one live token remains on the chain.
	var live int64
	require.NoError(t, conn.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", user.ID, false).
		Count(&live).Error)
	require.EqualValues(t, 1, live)
}

func TestRefresh_RejectsForgedAndWrongPurpose(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "forged@example.com", "Secret123!")
	svc := newLoginService(t, conn)

	_, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: "not-a-jwt"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	// A structurally valid access token is not a refresh token.
	minter := testMinter(t)
	access, err := minter.Mint(pkgauth.PurposeAccess, time.Now().UTC(), pkgauth.TokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: access})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefresh_UnknownButValidJWT(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedActiveUser(t, conn, "unknown@example.com", "Secret123!")
	svc := newLoginService(t, conn)

	// Signed correctly but never persisted: rotation must refuse it.
	minter := testMinter(t)
	refresh, err := minter.Mint(pkgauth.PurposeRefresh, time.Now().UTC(), pkgauth.TokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: refresh})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}
