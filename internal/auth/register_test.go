package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelviera/shoplane-backend/internal/users"
	pkgauth "github.com/angelviera/shoplane-backend/pkg/auth"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubCodeIssuer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (s *stubCodeIssuer) RequestCode(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, userID)
	return s.err
}

func newRegisterService(t *testing.T, conn *gorm.DB, codes CodeIssuer) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		UserRepo:         users.NewRepository(conn),
		RefreshTokenRepo: NewRefreshTokenRepository(conn),
		TxRunner:         db.FromConn(conn),
		Codes:            codes,
		Minter:           testMinter(t),
		RefreshTTL:       time.Hour,
		PasswordConfig:   testPasswordCfg(),
	})
	require.NoError(t, err)
	return svc
}

func TestRegister_CreatesUserAndIssuesCode(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	codes := &stubCodeIssuer{}
	svc := newRegisterService(t, conn, codes)

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:     "New@Example.com",
		Password:  "Secret123!",
		FirstName: "New",
		LastName:  "User",
	})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", resp.User.Email)
	require.Equal(t, enums.UserRoleUser, resp.User.Role)
	require.False(t, resp.User.IsVerified)

	var row models.User
	require.NoError(t, conn.First(&row, "email = ?", "new@example.com").Error)
	ok, err := security.VerifyPassword("Secret123!", row.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []uuid.UUID{row.ID}, codes.calls)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	seedActiveUser(t, conn, "taken@example.com", "Secret123!")
	svc := newRegisterService(t, conn, &stubCodeIssuer{})

	_, err := svc.Register(ctx, RegisterRequest{
		Email:     "Taken@Example.com",
		Password:  "Secret123!",
		FirstName: "Dup",
		LastName:  "User",
	})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestRegister_CodeIssueFailureDoesNotFailRegistration(t *testing.T) {
	conn := openTestDB(t)
	codes := &stubCodeIssuer{err: pkgerrors.New(pkgerrors.CodeDependency, "smtp down")}
	svc := newRegisterService(t, conn, codes)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "flaky@example.com",
		Password:  "Secret123!",
		FirstName: "Flaky",
		LastName:  "User",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, resp.User.ID)
}

func TestRegister_IssuesSessionTokens(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	svc := newRegisterService(t, conn, &stubCodeIssuer{})

	resp, err := svc.Register(ctx, RegisterRequest{
		Email:     "tokens@example.com",
		Password:  "Secret123!",
		FirstName: "Tok",
		LastName:  "User",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)

	// The access token must be usable immediately.
	claims, err := testMinter(t).Verify(resp.AccessToken, pkgauth.PurposeAccess)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)

	// The refresh row commits alongside the account.
	var row models.RefreshToken
	require.NoError(t, conn.First(&row, "token = ?", resp.RefreshToken).Error)
	require.Equal(t, resp.User.ID, row.UserID)
	require.False(t, row.Revoked)
}
