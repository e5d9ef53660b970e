package sellers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
)

// SellerDTO is the transport shape of a storefront profile.
type SellerDTO struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ShopName    string    `json:"shop_name"`
	Description *string   `json:"description,omitempty"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegisterRequest is the payload to open a storefront.
type RegisterRequest struct {
	ShopName    string  `json:"shop_name" validate:"required,min=2,max=120"`
	Description *string `json:"description,omitempty"`
}

// UpdateProfileRequest carries the mutable storefront fields; nil means unchanged.
type UpdateProfileRequest struct {
	ShopName    *string `json:"shop_name,omitempty" validate:"omitempty,min=2,max=120"`
	Description *string `json:"description,omitempty"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(s *models.Seller) *SellerDTO {
	if s == nil {
		return nil
	}
	return &SellerDTO{
		ID:          s.ID,
		UserID:      s.UserID,
		ShopName:    s.ShopName,
		Description: s.Description,
		LogoURL:     s.LogoURL,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
