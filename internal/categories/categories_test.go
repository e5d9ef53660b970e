package categories

import (
	"context"
	"testing"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Category{}))

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestCreateAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CategoryInput{Name: "Vinyl"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CategoryInput{Name: "Books"})
	require.NoError(t, err)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Books", rows[0].Name)
	require.Equal(t, "Vinyl", rows[1].Name)
}

func TestCreate_DuplicateName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CategoryInput{Name: "Vinyl"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CategoryInput{Name: "Vinyl"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CategoryInput{Name: "Vynil"})
	require.NoError(t, err)

	desc := "Records and sleeves."
	updated, err := svc.Update(ctx, created.ID, CategoryInput{Name: "Vinyl", Description: &desc})
	require.NoError(t, err)
	require.Equal(t, "Vinyl", updated.Name)
	require.NotNil(t, updated.Description)

	_, err = svc.Update(ctx, uuid.New(), CategoryInput{Name: "Ghost"})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdate_NameCollision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CategoryInput{Name: "Vinyl"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, CategoryInput{Name: "Books"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, CategoryInput{Name: "Vinyl"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CategoryInput{Name: "Vinyl"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	requireCode(t, svc.Delete(ctx, created.ID), pkgerrors.CodeNotFound)

	_, err = svc.Get(ctx, created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
