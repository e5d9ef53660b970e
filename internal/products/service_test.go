package products

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelviera/shoplane-backend/internal/sellers"
	"github.com/angelviera/shoplane-backend/pkg/db"
	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeFileStore struct {
	saved   []string
	deleted []string
	n       int
}

func (f *fakeFileStore) Save(_ context.Context, r io.Reader, originalName string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	f.n++
	url := fmt.Sprintf("/uploads/%d-%s", f.n, originalName)
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeFileStore) Delete(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

type fixture struct {
	conn  *gorm.DB
	svc   Service
	files *fakeFileStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{}, &models.Seller{}, &models.Category{},
		&models.Product{}, &models.ProductFeature{}, &models.ProductImage{},
	))

	files := &fakeFileStore{}
	svc, err := NewService(ServiceParams{
		ProductRepo: NewRepository(conn),
		SellerRepo:  sellers.NewRepository(conn),
		TxRunner:    db.FromConn(conn),
		Files:       files,
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, files: files}
}

func (f *fixture) seedSeller(t *testing.T, shop string) (*models.User, *models.Seller) {
	t.Helper()
	user := &models.User{
		Email:        strings.ToLower(shop) + "@example.com",
		PasswordHash: "x",
		FirstName:    "S",
		LastName:     "S",
		Role:         enums.UserRoleSeller,
		IsActive:     true,
	}
	require.NoError(t, f.conn.Create(user).Error)
	seller := &models.Seller{UserID: user.ID, ShopName: shop}
	require.NoError(t, f.conn.Create(seller).Error)
	return user, seller
}

func (f *fixture) seedCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	require.NoError(t, f.conn.Create(category).Error)
	return category
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreate_WithAssociations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, seller := f.seedSeller(t, "Shop")
	vinyl := f.seedCategory(t, "Vinyl")

	dto, err := f.svc.Create(ctx, user.ID, CreateProductRequest{
		Name:        "Test Pressing",
		Price:       price("29.99"),
		Stock:       10,
		CategoryIDs: []uuid.UUID{vinyl.ID},
		Features:    []FeatureInput{{Name: "Weight", Value: "180g"}},
	})
	require.NoError(t, err)
	require.Equal(t, seller.ID, dto.SellerID)
	require.Equal(t, enums.ProductStatusActive, dto.Status)
	require.Len(t, dto.Categories, 1)
	require.Len(t, dto.Features, 1)
	require.True(t, dto.Price.Equal(price("29.99")))
}

func TestCreate_RequiresStorefront(t *testing.T) {
	f := newFixture(t)
	user := &models.User{Email: "plain@example.com", PasswordHash: "x", FirstName: "P", LastName: "P", Role: enums.UserRoleUser, IsActive: true}
	require.NoError(t, f.conn.Create(user).Error)

	_, err := f.svc.Create(context.Background(), user.ID, CreateProductRequest{Name: "X", Price: price("1.00")})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreate_UnknownCategory(t *testing.T) {
	f := newFixture(t)
	user, _ := f.seedSeller(t, "Shop")

	_, err := f.svc.Create(context.Background(), user.ID, CreateProductRequest{
		Name:        "X",
		Price:       price("1.00"),
		CategoryIDs: []uuid.UUID{uuid.New()},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestGet_HidesInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.seedSeller(t, "Shop")

	created, err := f.svc.Create(ctx, user.ID, CreateProductRequest{Name: "Visible", Price: price("5.00"), Stock: 1})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Visible", got.Name)

	inactive := enums.ProductStatusInactive
	_, err = f.svc.Update(ctx, user.ID, created.ID, UpdateProductRequest{Status: &inactive})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, created.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdate_OwnershipScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, _ := f.seedSeller(t, "Owner")
	rival, _ := f.seedSeller(t, "Rival")

	created, err := f.svc.Create(ctx, owner.ID, CreateProductRequest{Name: "Mine", Price: price("5.00")})
	require.NoError(t, err)

	newName := "Stolen"
	_, err = f.svc.Update(ctx, rival.ID, created.ID, UpdateProductRequest{Name: &newName})
	requireCode(t, err, pkgerrors.CodeNotFound)

	renamed := "Renamed"
	updated, err := f.svc.Update(ctx, owner.ID, created.ID, UpdateProductRequest{Name: &renamed})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
}

func TestUpdate_ReplacesCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.seedSeller(t, "Shop")
	vinyl := f.seedCategory(t, "Vinyl")
	books := f.seedCategory(t, "Books")

	created, err := f.svc.Create(ctx, user.ID, CreateProductRequest{
		Name:        "Swap",
		Price:       price("5.00"),
		CategoryIDs: []uuid.UUID{vinyl.ID},
	})
	require.NoError(t, err)

	newSet := []uuid.UUID{books.ID}
	updated, err := f.svc.Update(ctx, user.ID, created.ID, UpdateProductRequest{CategoryIDs: &newSet})
	require.NoError(t, err)
	require.Len(t, updated.Categories, 1)
	require.Equal(t, "Books", updated.Categories[0].Name)
}

func TestDelete_RemovesStoredImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.seedSeller(t, "Shop")

	created, err := f.svc.Create(ctx, user.ID, CreateProductRequest{Name: "Pics", Price: price("5.00")})
	require.NoError(t, err)

	_, err = f.svc.AddImage(ctx, user.ID, created.ID, strings.NewReader("img"), "a.png", true)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, user.ID, created.ID))
	require.Len(t, f.files.deleted, 1)

	requireCode(t, f.svc.Delete(ctx, user.ID, created.ID), pkgerrors.CodeNotFound)
}

func TestImages_SingleMain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.seedSeller(t, "Shop")

	created, err := f.svc.Create(ctx, user.ID, CreateProductRequest{Name: "Gallery", Price: price("5.00")})
	require.NoError(t, err)

	first, err := f.svc.AddImage(ctx, user.ID, created.ID, strings.NewReader("a"), "a.png", true)
	require.NoError(t, err)
	require.Len(t, first.Images, 1)
	require.True(t, first.Images[0].IsMain)

	second, err := f.svc.AddImage(ctx, user.ID, created.ID, strings.NewReader("b"), "b.png", true)
	require.NoError(t, err)

	mains := 0
	var nonMain uuid.UUID
	for _, img := range second.Images {
		if img.IsMain {
			mains++
		} else {
			nonMain = img.ID
		}
	}
	require.Equal(t, 1, mains)

	// Promoting the other image keeps the single-main invariant.
	require.NoError(t, f.svc.SetMainImage(ctx, user.ID, created.ID, nonMain))
	var count int64
	require.NoError(t, f.conn.Model(&models.ProductImage{}).
		Where("product_id = ? AND is_main = ?", created.ID, true).
		Count(&count).Error)
	require.EqualValues(t, 1, count)

	requireCode(t, f.svc.SetMainImage(ctx, user.ID, created.ID, uuid.New()), pkgerrors.CodeNotFound)
}

func TestFeatures_AddAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.seedSeller(t, "Shop")

	created, err := f.svc.Create(ctx, user.ID, CreateProductRequest{Name: "Specs", Price: price("5.00")})
	require.NoError(t, err)

	withFeature, err := f.svc.AddFeature(ctx, user.ID, created.ID, FeatureInput{Name: "Color", Value: "Black"})
	require.NoError(t, err)
	require.Len(t, withFeature.Features, 1)

	require.NoError(t, f.svc.DeleteFeature(ctx, user.ID, created.ID, withFeature.Features[0].ID))
	requireCode(t, f.svc.DeleteFeature(ctx, user.ID, created.ID, withFeature.Features[0].ID), pkgerrors.CodeNotFound)
}

func TestList_FiltersAndPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, seller := f.seedSeller(t, "Shop")
	vinyl := f.seedCategory(t, "Vinyl")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		product := &models.Product{
			SellerID: seller.ID,
			Name:     fmt.Sprintf("Record %d", i),
			Price:    price(fmt.Sprintf("%d.00", 10+i)),
			Stock:    3,
			Status:   enums.ProductStatusActive,
		}
		require.NoError(t, f.conn.Create(product).Error)
		require.NoError(t, f.conn.Model(product).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
		require.NoError(t, f.conn.Model(product).Association("Categories").Append(vinyl))
	}

	// An inactive listing never shows up publicly.
	inactive := enums.ProductStatusInactive
	hidden, err := f.svc.Create(ctx, user.ID, CreateProductRequest{Name: "Hidden", Price: price("99.00")})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, user.ID, hidden.ID, UpdateProductRequest{Status: &inactive})
	require.NoError(t, err)

	pageOne, err := f.svc.List(ctx, ListFilters{
		CategoryID: &vinyl.ID,
		Pagination: pagination.Params{Limit: 3},
	})
	require.NoError(t, err)
	require.Len(t, pageOne.Items, 3)
	require.NotEmpty(t, pageOne.NextCursor)
	// Newest first.
	require.Equal(t, "Record 4", pageOne.Items[0].Name)

	pageTwo, err := f.svc.List(ctx, ListFilters{
		CategoryID: &vinyl.ID,
		Pagination: pagination.Params{Limit: 3, Cursor: pageOne.NextCursor},
	})
	require.NoError(t, err)
	require.Len(t, pageTwo.Items, 2)
	require.Empty(t, pageTwo.NextCursor)

	minPrice := price("12.00")
	maxPrice := price("13.00")
	banded, err := f.svc.List(ctx, ListFilters{
		MinPrice:   &minPrice,
		MaxPrice:   &maxPrice,
		Pagination: pagination.Params{},
	})
	require.NoError(t, err)
	require.Len(t, banded.Items, 2)

	searched, err := f.svc.List(ctx, ListFilters{Search: "Record 1", Pagination: pagination.Params{}})
	require.NoError(t, err)
	require.Len(t, searched.Items, 1)

	_, err = f.svc.List(ctx, ListFilters{MinPrice: &maxPrice, MaxPrice: &minPrice})
	requireCode(t, err, pkgerrors.CodeValidation)
}
