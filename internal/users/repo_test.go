package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRepository_CreateAndFind(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		FirstName:    "Ana",
		LastName:     "Lopez",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, enums.UserRoleUser, created.Role)
	require.True(t, created.IsActive)
	require.False(t, created.IsVerified)

	byEmail, err := repo.FindByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Email, byID.Email)
}

func TestRepository_DuplicateEmailFails(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", PasswordHash: "h", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", PasswordHash: "h", FirstName: "C", LastName: "D"})
	require.Error(t, err)
}

func TestRepository_FindByEmail_Missing(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_Updates(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	user := seedUser(t, conn, "upd@example.com")

	require.NoError(t, repo.SetVerified(ctx, user.ID))
	require.NoError(t, repo.UpdateRole(ctx, user.ID, enums.UserRoleSeller))
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	first := "Maya"
	require.NoError(t, repo.UpdateProfile(ctx, user.ID, UpdateProfileDTO{FirstName: &first}))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsVerified)
	require.Equal(t, enums.UserRoleSeller, reloaded.Role)
	require.Equal(t, "new-hash", reloaded.PasswordHash)
	require.Equal(t, "Maya", reloaded.FirstName)
	require.NotNil(t, reloaded.LastLoginAt)
}

func TestAddressRepository_OwnershipScoping(t *testing.T) {
	conn := openTestDB(t)
	repo := NewAddressRepository(conn)
	ctx := context.Background()

	owner := seedUser(t, conn, "owner@example.com")
	other := seedUser(t, conn, "other@example.com")

	address := AddressInput{
		Label: "home", Line1: "1 Elm St", City: "Austin", State: "TX",
		PostalCode: "78701", Country: "US",
	}.toModel(owner.ID)
	require.NoError(t, repo.Create(ctx, address))

	// The owner sees it, a stranger does not.
	_, err := repo.FindByID(ctx, owner.ID, address.ID)
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, other.ID, address.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	deleted, err := repo.Delete(ctx, other.ID, address.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = repo.Delete(ctx, owner.ID, address.ID)
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestAddressRepository_SingleDefault(t *testing.T) {
	conn := openTestDB(t)
	repo := NewAddressRepository(conn)
	ctx := context.Background()
	owner := seedUser(t, conn, "default@example.com")

	first := AddressInput{Label: "a", Line1: "1", City: "C", State: "S", PostalCode: "1", Country: "US", IsDefault: true}.toModel(owner.ID)
	second := AddressInput{Label: "b", Line1: "2", City: "C", State: "S", PostalCode: "2", Country: "US"}.toModel(owner.ID)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.ClearDefault(ctx, owner.ID))
	updated, err := repo.SetDefault(ctx, owner.ID, second.ID)
	require.NoError(t, err)
	require.True(t, updated)

	rows, err := repo.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	defaults := 0
	for _, row := range rows {
		if row.IsDefault {
			defaults++
			require.Equal(t, second.ID, row.ID)
		}
	}
	require.Equal(t, 1, defaults)
}
