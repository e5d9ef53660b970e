package comments

import (
	"context"
	"testing"

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

type fixture struct {
	conn *gorm.DB
	svc  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Blog{}, &models.Product{}, &models.Comment{}))

	svc, err := NewService(NewRepository(conn), DefaultRegistry(conn))
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc}
}

func (f *fixture) seedBlog(t *testing.T) *models.Blog {
	t.Helper()
	blog := &models.Blog{AuthorID: uuid.New(), Title: "Post", Content: "body"}
	require.NoError(t, f.conn.Create(blog).Error)
	return blog
}

func (f *fixture) seedProduct(t *testing.T) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID: uuid.New(),
		Name:     "Record",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    1,
		Status:   enums.ProductStatusActive,
	}
	require.NoError(t, f.conn.Create(product).Error)
	return product
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestCreate_ChecksParentByKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blog := f.seedBlog(t)
	product := f.seedProduct(t)

	created, err := f.svc.Create(ctx, uuid.New(), enums.UserRoleUser, CreateCommentRequest{
		ParentType: enums.CommentParentBlog,
		ParentID:   blog.ID,
		Content:    "Nice read.",
	})
	require.NoError(t, err)
	require.Equal(t, enums.CommentStatusPending, created.Status)

	// A real product id under the wrong declared kind does not resolve.
	_, err = f.svc.Create(ctx, uuid.New(), enums.UserRoleUser, CreateCommentRequest{
		ParentType: enums.CommentParentBlog,
		ParentID:   product.ID,
		Content:    "Wrong kind.",
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Create(ctx, uuid.New(), enums.UserRoleUser, CreateCommentRequest{
		ParentType: enums.CommentParentType("page"),
		ParentID:   blog.ID,
		Content:    "Bad kind.",
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreate_RatingBoundsAndAdminAutoApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.seedProduct(t)

	six := 6
	_, err := f.svc.Create(ctx, uuid.New(), enums.UserRoleUser, CreateCommentRequest{
		ParentType: enums.CommentParentProduct,
		ParentID:   product.ID,
		Content:    "Too good.",
		Rating:     &six,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	five := 5
	fromAdmin, err := f.svc.Create(ctx, uuid.New(), enums.UserRoleAdmin, CreateCommentRequest{
		ParentType: enums.CommentParentProduct,
		ParentID:   product.ID,
		Content:    "Great pressing.",
		Rating:     &five,
	})
	require.NoError(t, err)
	require.Equal(t, enums.CommentStatusApproved, fromAdmin.Status)
	require.Equal(t, 5, *fromAdmin.Rating)
}

func TestListForParent_VisibilityByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blog := f.seedBlog(t)

	_, err := f.svc.Create(ctx, uuid.New(), enums.UserRoleUser, CreateCommentRequest{
		ParentType: enums.CommentParentBlog,
		ParentID:   blog.ID,
		Content:    "Awaiting moderation.",
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, uuid.New(), enums.UserRoleAdmin, CreateCommentRequest{
		ParentType: enums.CommentParentBlog,
		ParentID:   blog.ID,
		Content:    "Visible immediately.",
	})
	require.NoError(t, err)

	public, err := f.svc.ListForParent(ctx, enums.CommentParentBlog, blog.ID, enums.UserRoleUser, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, public.Items, 1)
	require.Equal(t, enums.CommentStatusApproved, public.Items[0].Status)

	adminView, err := f.svc.ListForParent(ctx, enums.CommentParentBlog, blog.ID, enums.UserRoleAdmin, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, adminView.Items, 2)
}

func TestModerationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	blog := f.seedBlog(t)

	created, err := f.svc.Create(ctx, uuid.New(), enums.UserRoleUser, CreateCommentRequest{
		ParentType: enums.CommentParentBlog,
		ParentID:   blog.ID,
		Content:    "Pending one.",
	})
	require.NoError(t, err)

	queue, err := f.svc.ListPending(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, queue.Items, 1)

	approved, err := f.svc.Moderate(ctx, created.ID, ModerateRequest{Status: enums.CommentStatusApproved})
	require.NoError(t, err)
	require.Equal(t, enums.CommentStatusApproved, approved.Status)

	emptied, err := f.svc.ListPending(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Empty(t, emptied.Items)

	_, err = f.svc.Moderate(ctx, uuid.New(), ModerateRequest{Status: enums.CommentStatusRejected})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Moderate(ctx, created.ID, ModerateRequest{Status: enums.CommentStatus("zapped")})
	requireCode(t, err, pkgerrors.CodeValidation)
}
