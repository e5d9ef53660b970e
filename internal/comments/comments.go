package comments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentDTO is the transport shape of one comment.
type CommentDTO struct {
	ID         uuid.UUID               `json:"id"`
	UserID     uuid.UUID               `json:"user_id"`
	ParentType enums.CommentParentType `json:"parent_type"`
	ParentID   uuid.UUID               `json:"parent_id"`
	Content    string                  `json:"content"`
	Rating     *int                    `json:"rating,omitempty"`
	Status     enums.CommentStatus     `json:"status"`
	CreatedAt  time.Time               `json:"created_at"`
}

// CreateCommentRequest attaches a comment to a blog or a product.
type CreateCommentRequest struct {
	ParentType enums.CommentParentType `json:"parent_type" validate:"required"`
	ParentID   uuid.UUID               `json:"parent_id" validate:"required"`
	Content    string                  `json:"content" validate:"required,min=1,max=2000"`
	Rating     *int                    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
}

// ModerateRequest sets the moderation outcome for one comment.
type ModerateRequest struct {
	Status enums.CommentStatus `json:"status" validate:"required"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(c *models.Comment) *CommentDTO {
	if c == nil {
		return nil
	}
	return &CommentDTO{
		ID:         c.ID,
		UserID:     c.UserID,
		ParentType: c.ParentType,
		ParentID:   c.ParentID,
		Content:    c.Content,
		Rating:     c.Rating,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
	}
}

// Repository exposes comment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a comments repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts one comment.
func (r *Repository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// FindByID loads one comment.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListForParent returns comments under one parent, newest first. A nil status
// filter returns every moderation state.
func (r *Repository) ListForParent(ctx context.Context, kind enums.CommentParentType, parentID uuid.UUID, status *enums.CommentStatus, params pagination.Params) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("parent_type = ? AND parent_id = ?", kind, parentID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

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

	var rows []models.Comment
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// ListByStatus returns comments in one moderation state across all parents.
func (r *Repository) ListByStatus(ctx context.Context, status enums.CommentStatus, params pagination.Params) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("status = ?", status)

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

	var rows []models.Comment
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

// UpdateStatus sets the moderation outcome on one comment.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CommentStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// Service defines the comment operations needed by the comments controller.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, role enums.UserRole, req CreateCommentRequest) (*CommentDTO, error)
	ListForParent(ctx context.Context, kind enums.CommentParentType, parentID uuid.UUID, role enums.UserRole, params pagination.Params) (*pagination.Page[CommentDTO], error)
	ListPending(ctx context.Context, params pagination.Params) (*pagination.Page[CommentDTO], error)
	Moderate(ctx context.Context, commentID uuid.UUID, req ModerateRequest) (*CommentDTO, error)
}

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListForParent(ctx context.Context, kind enums.CommentParentType, parentID uuid.UUID, status *enums.CommentStatus, params pagination.Params) ([]models.Comment, error)
	ListByStatus(ctx context.Context, status enums.CommentStatus, params pagination.Params) ([]models.Comment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CommentStatus) (int64, error)
}

type service struct {
	repo     commentRepository
	registry *Registry
}

// NewService constructs a comments service with the provided dependencies.
func NewService(repo commentRepository, registry *Registry) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "comment repository is required")
	}
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "parent registry is required")
	}
	return &service{repo: repo, registry: registry}, nil
}

// Create attaches a comment after verifying the parent exists for its
// declared kind. Admin comments skip the moderation queue.
func (s *service) Create(ctx context.Context, userID uuid.UUID, role enums.UserRole, req CreateCommentRequest) (*CommentDTO, error) {
	if !req.ParentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid comment parent type")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment content is required")
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	exists, err := s.registry.Exists(ctx, req.ParentType, req.ParentID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check comment parent")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment parent not found")
	}

	status := enums.CommentStatusPending
	if role == enums.UserRoleAdmin {
		status = enums.CommentStatusApproved
	}

	comment := &models.Comment{
		UserID:     userID,
		ParentType: req.ParentType,
		ParentID:   req.ParentID,
		Content:    content,
		Rating:     req.Rating,
		Status:     status,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create comment")
	}
	return FromModel(comment), nil
}

// ListForParent returns one page of comments under a parent. Only admins see
// anything other than approved comments.
func (s *service) ListForParent(ctx context.Context, kind enums.CommentParentType, parentID uuid.UUID, role enums.UserRole, params pagination.Params) (*pagination.Page[CommentDTO], error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid comment parent type")
	}

	var status *enums.CommentStatus
	if role != enums.UserRoleAdmin {
		approved := enums.CommentStatusApproved
		status = &approved
	}

	rows, err := s.repo.ListForParent(ctx, kind, parentID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list comments")
	}
	return buildPage(rows, params), nil
}

// ListPending returns the moderation queue.
func (s *service) ListPending(ctx context.Context, params pagination.Params) (*pagination.Page[CommentDTO], error) {
	rows, err := s.repo.ListByStatus(ctx, enums.CommentStatusPending, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending comments")
	}
	return buildPage(rows, params), nil
}

// Moderate records the moderation outcome.
func (s *service) Moderate(ctx context.Context, commentID uuid.UUID, req ModerateRequest) (*CommentDTO, error) {
	if !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid comment status")
	}

	affected, err := s.repo.UpdateStatus(ctx, commentID, req.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "moderate comment")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
	}

	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload comment")
	}
	return FromModel(comment), nil
}

func buildPage(rows []models.Comment, params pagination.Params) *pagination.Page[CommentDTO] {
	dtos := make([]CommentDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(c CommentDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page
}
