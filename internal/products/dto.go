package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
)

// ProductDTO is the transport shape of a listing, including its associations.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	SellerID    uuid.UUID           `json:"seller_id"`
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Price       decimal.Decimal     `json:"price"`
	Stock       int                 `json:"stock"`
	Status      enums.ProductStatus `json:"status"`
	Categories  []CategoryRefDTO    `json:"categories"`
	Features    []FeatureDTO        `json:"features"`
	Images      []ImageDTO          `json:"images"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CategoryRefDTO is the compact category shape embedded in a product.
type CategoryRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// FeatureDTO is one key/value attribute of a product.
type FeatureDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
}

// ImageDTO is one uploaded product photo.
type ImageDTO struct {
	ID     uuid.UUID `json:"id"`
	URL    string    `json:"url"`
	IsMain bool      `json:"is_main"`
}

// CreateProductRequest is the seller payload to publish a listing.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryIDs []uuid.UUID     `json:"category_ids,omitempty"`
	Features    []FeatureInput  `json:"features,omitempty" validate:"dive"`
}

// UpdateProductRequest carries the mutable listing fields; nil means unchanged.
type UpdateProductRequest struct {
	Name        *string              `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string              `json:"description,omitempty"`
	Price       *decimal.Decimal     `json:"price,omitempty"`
	Stock       *int                 `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Status      *enums.ProductStatus `json:"status,omitempty"`
	CategoryIDs *[]uuid.UUID         `json:"category_ids,omitempty"`
}

// FeatureInput is the payload for one key/value attribute.
type FeatureInput struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Value string `json:"value" validate:"required,min=1,max=500"`
}

// ListFilters narrows the public catalog listing.
type ListFilters struct {
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Search     string
	Pagination pagination.Params
}

// FromModel converts the persistence model to its transport shape.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}

	dto := &ProductDTO{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Status:      p.Status,
		Categories:  make([]CategoryRefDTO, 0, len(p.Categories)),
		Features:    make([]FeatureDTO, 0, len(p.Features)),
		Images:      make([]ImageDTO, 0, len(p.Images)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, c := range p.Categories {
		dto.Categories = append(dto.Categories, CategoryRefDTO{ID: c.ID, Name: c.Name})
	}
	for _, f := range p.Features {
		dto.Features = append(dto.Features, FeatureDTO{ID: f.ID, Name: f.Name, Value: f.Value})
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, ImageDTO{ID: img.ID, URL: img.URL, IsMain: img.IsMain})
	}
	return dto
}
