package blogs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogDTO is the transport shape of an article.
type BlogDTO struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlogInput is the create/update payload.
type BlogInput struct {
	Title    string  `json:"title" validate:"required,min=1,max=200"`
	Content  string  `json:"content" validate:"required,min=1"`
	ImageURL *string `json:"image_url,omitempty"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(b *models.Blog) *BlogDTO {
	if b == nil {
		return nil
	}
	return &BlogDTO{
		ID:        b.ID,
		AuthorID:  b.AuthorID,
		Title:     b.Title,
		Content:   b.Content,
		ImageURL:  b.ImageURL,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// Repository exposes blog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a blogs repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new article.
func (r *Repository) Create(ctx context.Context, blog *models.Blog) error {
	return r.db.WithContext(ctx).Create(blog).Error
}

// FindByID loads one article.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	if err := r.db.WithContext(ctx).First(&blog, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &blog, nil
}

// List returns one page of articles, newest first, with one buffer row.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.Blog, error) {
	query := r.db.WithContext(ctx).Model(&models.Blog{})

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Blog
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// Update applies the provided column set to one article.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// Delete removes one article.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Blog{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

// Service defines the blog operations needed by the blogs controller. Writes
// are admin-gated at the router; the service trusts the caller identity it is
// handed as the author.
type Service interface {
	Create(ctx context.Context, authorID uuid.UUID, input BlogInput) (*BlogDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*BlogDTO, error)
	List(ctx context.Context, params pagination.Params) (*pagination.Page[BlogDTO], error)
	Update(ctx context.Context, id uuid.UUID, input BlogInput) (*BlogDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type blogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error)
	List(ctx context.Context, params pagination.Params) ([]models.Blog, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type service struct {
	repo blogRepository
}

// NewService constructs a blogs service backed by the given repository.
func NewService(repo blogRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "blog repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, authorID uuid.UUID, input BlogInput) (*BlogDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Content) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and content are required")
	}

	blog := &models.Blog{
		AuthorID: authorID,
		Title:    title,
		Content:  input.Content,
		ImageURL: input.ImageURL,
	}
	if err := s.repo.Create(ctx, blog); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create blog")
	}
	return FromModel(blog), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BlogDTO, error) {
	blog, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blog not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load blog")
	}
	return FromModel(blog), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Page[BlogDTO], error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list blogs")
	}
	dtos := make([]BlogDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(b BlogDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	})
	return &page, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input BlogInput) (*BlogDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Content) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and content are required")
	}

	updates := map[string]any{"title": title, "content": input.Content}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	affected, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update blog")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blog not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete blog")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "blog not found")
	}
	return nil
}
