package users

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/db"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/security"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubFileStore struct {
	saved   []string
	deleted []string
	nextURL string
}

func (s *stubFileStore) Save(_ context.Context, _ io.Reader, _ string) (string, error) {
	s.saved = append(s.saved, s.nextURL)
	return s.nextURL, nil
}

func (s *stubFileStore) Delete(_ context.Context, fileURL string) error {
	s.deleted = append(s.deleted, fileURL)
	return nil
}

func newTestService(t *testing.T, conn *gorm.DB, files *stubFileStore) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		UserRepo:       NewRepository(conn),
		AddressRepo:    NewAddressRepository(conn),
		TxRunner:       db.FromConn(conn),
		Files:          files,
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1},
	})
	require.NoError(t, err)
	return svc
}

func TestChangePassword(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	cfg := config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1}
	hash, err := security.HashPassword("old-password", cfg)
	require.NoError(t, err)

	user := seedUser(t, conn, "pw@example.com")
	require.NoError(t, conn.Model(user).Update("password_hash", hash).Error)

	svc := newTestService(t, conn, nil)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "new-password-1",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	require.NoError(t, svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{
		CurrentPassword: "old-password",
		NewPassword:     "new-password-1",
	}))

	reloaded, err := NewRepository(conn).FindByID(ctx, user.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("new-password-1", reloaded.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestUploadPhoto_RemovesPreviousAfterCommit(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "photo@example.com")

	oldURL := "/uploads/old.png"
	require.NoError(t, conn.Model(user).Update("photo_url", oldURL).Error)

	files := &stubFileStore{nextURL: "/uploads/new.png"}
	svc := newTestService(t, conn, files)

	dto, err := svc.UploadPhoto(ctx, user.ID, strings.NewReader("img"), "new.png")
	require.NoError(t, err)
	require.NotNil(t, dto.PhotoURL)
	require.Equal(t, "/uploads/new.png", *dto.PhotoURL)

	// The old file is removed only after the DB swap succeeded.
	require.Equal(t, []string{oldURL}, files.deleted)
}

func TestDeletePhoto_Idempotent(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "nophoto@example.com")

	files := &stubFileStore{}
	svc := newTestService(t, conn, files)

	require.NoError(t, svc.DeletePhoto(ctx, user.ID))
	require.Empty(t, files.deleted)
}

func TestSetDefaultAddress_ClearsOthers(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "addr@example.com")
	svc := newTestService(t, conn, nil)

	first, err := svc.CreateAddress(ctx, user.ID, AddressInput{
		Label: "home", Line1: "1", City: "C", State: "S", PostalCode: "1", Country: "US", IsDefault: true,
	})
	require.NoError(t, err)
	require.True(t, first.IsDefault)

	second, err := svc.CreateAddress(ctx, user.ID, AddressInput{
		Label: "work", Line1: "2", City: "C", State: "S", PostalCode: "2", Country: "US",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultAddress(ctx, user.ID, second.ID))

	list, err := svc.ListAddresses(ctx, user.ID)
	require.NoError(t, err)

	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			require.Equal(t, second.ID, a.ID)
		}
	}
	require.Equal(t, 1, defaults)
}

func TestSetDefaultAddress_MissingIsNotFound(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	user := seedUser(t, conn, "missing@example.com")
	other := seedUser(t, conn, "other2@example.com")
	svc := newTestService(t, conn, nil)

	created, err := svc.CreateAddress(ctx, other.ID, AddressInput{
		Label: "o", Line1: "1", City: "C", State: "S", PostalCode: "1", Country: "US",
	})
	require.NoError(t, err)

	// Another user's address looks like it does not exist.
	err = svc.SetDefaultAddress(ctx, user.ID, created.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
