package models

import (
	"time"

	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment attaches to either a blog or a product, discriminated by
// ParentType. Parent existence is checked through the parent-kind registry in
// the comments service, never by string-building table names.
type Comment struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	ParentType enums.CommentParentType `gorm:"column:parent_type;type:text;not null;index:idx_comments_parent,priority:1"`
	ParentID   uuid.UUID               `gorm:"column:parent_id;type:uuid;not null;index:idx_comments_parent,priority:2"`
	Content    string                  `gorm:"column:content;not null"`
	Rating     *int                    `gorm:"column:rating"`
	Status     enums.CommentStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
