package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type dbUserSource struct {
	conn *gorm.DB
}

func (s dbUserSource) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func newAuthFixture(t *testing.T) (*pkgauth.Minter, dbUserSource, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	minter, err := pkgauth.NewMinter(config.JWTConfig{
		Issuer:            "shoplane-test",
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		AccessTTLMinutes:  15,
		RefreshTTLMinutes: 60,
		ResetTTLMinutes:   30,
	})
	require.NoError(t, err)

	return minter, dbUserSource{conn: conn}, conn
}

func seedUser(t *testing.T, conn *gorm.DB, role enums.UserRole, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     active,
	}
	require.NoError(t, conn.Create(user).Error)
	if !active {
		// Create skips zero-value fields that carry a default tag, so the
		// is_active column must be forced to false explicitly.
		require.NoError(t, conn.Model(user).UpdateColumn("is_active", false).Error)
	}
	return user
}

func mintAccess(t *testing.T, minter *pkgauth.Minter, user *models.User) string {
	t.Helper()
	token, err := minter.Mint(pkgauth.PurposeAccess, time.Now().UTC(), pkgauth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	require.NoError(t, err)
	return token
}

func TestAuth_RejectsMissingAndMalformedTokens(t *testing.T) {
	minter, users, _ := newAuthFixture(t)
	handler := Auth(minter, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"", "Bearer ", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuth_SeedsIdentityFromDatabaseRow(t *testing.T) {
	minter, users, conn := newAuthFixture(t)
	user := seedUser(t, conn, enums.UserRoleUser, true)
	token := mintAccess(t, minter, user)

	// Promote after minting. The context role must reflect the row, not the
	// claims baked into the token.
	require.NoError(t, conn.Model(user).Update("role", enums.UserRoleSeller).Error)

	var gotID uuid.UUID
	var gotRole enums.UserRole
	handler := Auth(minter, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.ID, gotID)
	require.Equal(t, enums.UserRoleSeller, gotRole)
}

func TestAuth_RejectsDeactivatedAndDeletedUsers(t *testing.T) {
	minter, users, conn := newAuthFixture(t)

	inactive := seedUser(t, conn, enums.UserRoleUser, false)
	inactiveToken := mintAccess(t, minter, inactive)

	ghost := seedUser(t, conn, enums.UserRoleUser, true)
	ghostToken := mintAccess(t, minter, ghost)
	require.NoError(t, conn.Delete(ghost).Error)

	handler := Auth(minter, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, token := range []string{inactiveToken, ghostToken} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestAuth_RejectsRefreshTokenOnAccessSurface(t *testing.T) {
	minter, users, conn := newAuthFixture(t)
	user := seedUser(t, conn, enums.UserRoleUser, true)

	refresh, err := minter.Mint(pkgauth.PurposeRefresh, time.Now().UTC(), pkgauth.TokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	require.NoError(t, err)

	handler := Auth(minter, users, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_GatesByRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleSeller, enums.UserRoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		role enums.UserRole
		want int
	}{
		{enums.UserRoleSeller, http.StatusOK},
		{enums.UserRoleAdmin, http.StatusOK},
		{enums.UserRoleUser, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), uuid.New(), tc.role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, tc.want, rec.Code, "role %q", tc.role)
	}
}
