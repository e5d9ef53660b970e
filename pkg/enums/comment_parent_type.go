package enums

import "fmt"

// CommentParentType identifies which aggregate a comment is attached to.
type CommentParentType string

const (
	CommentParentBlog    CommentParentType = "blog"
	CommentParentProduct CommentParentType = "product"
)

var validCommentParentTypes = []CommentParentType{
	CommentParentBlog,
	CommentParentProduct,
}

// String implements fmt.Stringer.
func (c CommentParentType) String() string {
	return string(c)
}

// IsValid reports whether the value matches the canonical comment parent enum.
func (c CommentParentType) IsValid() bool {
	for _, candidate := range validCommentParentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommentParentType converts the raw string to CommentParentType.
func ParseCommentParentType(value string) (CommentParentType, error) {
	for _, candidate := range validCommentParentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid comment parent type %q", value)
}
