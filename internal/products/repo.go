package products

import (
	"context"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a listing together with its category links and features.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads one listing with every association.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Features").
		Preload("Images").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindOwned loads a listing only when it belongs to the given seller.
func (r *Repository) FindOwned(ctx context.Context, sellerID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Features").
		Preload("Images").
		First(&product, "id = ? AND seller_id = ?", id, sellerID).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Update applies the provided column set to one listing owned by the seller.
func (r *Repository) Update(ctx context.Context, sellerID, id uuid.UUID, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 1, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ReplaceCategories swaps the full category association set.
func (r *Repository) ReplaceCategories(ctx context.Context, product *models.Product, categories []models.Category) error {
	return r.db.WithContext(ctx).Model(product).Association("Categories").Replace(categories)
}

// Delete removes a listing owned by the seller; associations cascade.
func (r *Repository) Delete(ctx context.Context, sellerID, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Delete(&models.Product{})
	return result.RowsAffected, result.Error
}

// List returns one public catalog page. Rows are ordered by (created_at, id)
// descending and fetched with one buffer row so the caller can detect the
// next page.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Categories").
		Preload("Features").
		Preload("Images").
		Where("status <> ?", enums.ProductStatusInactive)

	if filters.CategoryID != nil {
		query = query.
			Joins("JOIN product_categories pc ON pc.product_id = products.id").
			Where("pc.category_id = ?", *filters.CategoryID)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	cursor, err := pagination.ParseCursor(filters.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"products.created_at < ? OR (products.created_at = ? AND products.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	err = query.
		Order("products.created_at DESC, products.id DESC").
		Limit(pagination.LimitWithBuffer(filters.Pagination.Limit)).
		Find(&rows).Error
	return rows, err
}

// ListBySeller returns every listing of one seller, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Features").
		Preload("Images").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// AddFeature attaches one key/value attribute.
func (r *Repository) AddFeature(ctx context.Context, feature *models.ProductFeature) error {
	return r.db.WithContext(ctx).Create(feature).Error
}

// DeleteFeature removes one attribute scoped to its product.
func (r *Repository) DeleteFeature(ctx context.Context, productID, featureID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", featureID, productID).
		Delete(&models.ProductFeature{})
	return result.RowsAffected, result.Error
}

// AddImage attaches one photo record.
func (r *Repository) AddImage(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// FindImage loads one photo record scoped to its product.
func (r *Repository) FindImage(ctx context.Context, productID, imageID uuid.UUID) (*models.ProductImage, error) {
	var image models.ProductImage
	err := r.db.WithContext(ctx).
		First(&image, "id = ? AND product_id = ?", imageID, productID).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// ClearMainImage unsets the main flag on every photo of the product.
func (r *Repository) ClearMainImage(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ?", productID).
		Update("is_main", false).Error
}

// SetMainImage flags one photo as main; returns false when the photo does not
// belong to the product.
func (r *Repository) SetMainImage(ctx context.Context, productID, imageID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("id = ? AND product_id = ?", imageID, productID).
		Update("is_main", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteImage removes one photo record scoped to its product.
func (r *Repository) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		Delete(&models.ProductImage{})
	return result.RowsAffected, result.Error
}

// CategoriesByIDs loads the referenced categories and reports how many exist.
func (r *Repository) CategoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Category
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}
