package comments

import (
	"context"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParentChecker reports whether a parent row of one kind exists.
type ParentChecker func(ctx context.Context, id uuid.UUID) (bool, error)

// Registry resolves a declared parent kind to its existence check. Kinds are
// registered explicitly; there is no table-name construction from input.
type Registry struct {
	checkers map[enums.CommentParentType]ParentChecker
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: map[enums.CommentParentType]ParentChecker{}}
}

// Register binds one parent kind to its checker.
func (r *Registry) Register(kind enums.CommentParentType, check ParentChecker) {
	r.checkers[kind] = check
}

// Exists checks that the parent row is real for its declared kind.
func (r *Registry) Exists(ctx context.Context, kind enums.CommentParentType, id uuid.UUID) (bool, error) {
	check, ok := r.checkers[kind]
	if !ok {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown comment parent type")
	}
	return check(ctx, id)
}

// DefaultRegistry wires the two supported parent kinds against the database.
func DefaultRegistry(conn *gorm.DB) *Registry {
	registry := NewRegistry()
	registry.Register(enums.CommentParentBlog, existsIn[models.Blog](conn))
	registry.Register(enums.CommentParentProduct, existsIn[models.Product](conn))
	return registry
}

func existsIn[T any](conn *gorm.DB) ParentChecker {
	return func(ctx context.Context, id uuid.UUID) (bool, error) {
		var count int64
		var model T
		err := conn.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error
		return count > 0, err
	}
}
