package products

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/angelviera/shoplane-backend/pkg/db/models"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	pkgerrors "github.com/angelviera/shoplane-backend/pkg/errors"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
	"github.com/angelviera/shoplane-backend/pkg/storage/local"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines the catalog operations needed by the products controller.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, filters ListFilters) (*pagination.Page[ProductDTO], error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]ProductDTO, error)
	Update(ctx context.Context, userID, productID uuid.UUID, req UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error

	AddFeature(ctx context.Context, userID, productID uuid.UUID, input FeatureInput) (*ProductDTO, error)
	DeleteFeature(ctx context.Context, userID, productID, featureID uuid.UUID) error

	AddImage(ctx context.Context, userID, productID uuid.UUID, file io.Reader, filename string, isMain bool) (*ProductDTO, error)
	SetMainImage(ctx context.Context, userID, productID, imageID uuid.UUID) error
	DeleteImage(ctx context.Context, userID, productID, imageID uuid.UUID) error
}

type productRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindOwned(ctx context.Context, sellerID, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, sellerID, id uuid.UUID, updates map[string]any) (int64, error)
	ReplaceCategories(ctx context.Context, product *models.Product, categories []models.Category) error
	Delete(ctx context.Context, sellerID, id uuid.UUID) (int64, error)
	List(ctx context.Context, filters ListFilters) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	AddFeature(ctx context.Context, feature *models.ProductFeature) error
	DeleteFeature(ctx context.Context, productID, featureID uuid.UUID) (int64, error)
	AddImage(ctx context.Context, image *models.ProductImage) error
	FindImage(ctx context.Context, productID, imageID uuid.UUID) (*models.ProductImage, error)
	ClearMainImage(ctx context.Context, productID uuid.UUID) error
	SetMainImage(ctx context.Context, productID, imageID uuid.UUID) (bool, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) (int64, error)
	CategoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Category, error)
	WithTx(tx *gorm.DB) *Repository
}

type sellerResolver interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type fileStore interface {
	Save(ctx context.Context, r io.Reader, originalName string) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// ServiceParams bundles the dependencies required to build a products service.
type ServiceParams struct {
	ProductRepo productRepository
	SellerRepo  sellerResolver
	TxRunner    txRunner
	Files       fileStore
}

type service struct {
	products productRepository
	sellers  sellerResolver
	tx       txRunner
	files    fileStore
}

// NewService constructs a products service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.ProductRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product repository is required")
	}
	if params.SellerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository is required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner is required")
	}
	return &service{
		products: params.ProductRepo,
		sellers:  params.SellerRepo,
		tx:       params.TxRunner,
		files:    params.Files,
	}, nil
}

// Create publishes a listing with its categories and features in one insert.
func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateProductRequest) (*ProductDTO, error) {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if req.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	categories, err := s.loadCategories(ctx, req.CategoryIDs)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		SellerID:    seller.ID,
		Name:        name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      enums.ProductStatusActive,
		Categories:  categories,
	}
	for _, f := range req.Features {
		product.Features = append(product.Features, models.ProductFeature{
			Name:  strings.TrimSpace(f.Name),
			Value: strings.TrimSpace(f.Value),
		})
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return FromModel(product), nil
}

// Get returns the public detail view. Inactive listings are invisible here;
// sellers see their own through ListMine.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product.Status == enums.ProductStatusInactive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return FromModel(product), nil
}

// List returns one public catalog page.
func (s *service) List(ctx context.Context, filters ListFilters) (*pagination.Page[ProductDTO], error) {
	if filters.MinPrice != nil && filters.MaxPrice != nil && filters.MinPrice.GreaterThan(*filters.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min price exceeds max price")
	}

	rows, err := s.products.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.BuildPage(dtos, filters.Pagination.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

// ListMine returns every listing of the caller's storefront, inactive included.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]ProductDTO, error) {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.products.ListBySeller(ctx, seller.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Update applies the non-nil fields. Ownership rides in the UPDATE's WHERE
// clause, so another seller's product simply reads as not found.
func (s *service) Update(ctx context.Context, userID, productID uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *req.Stock
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		updates["status"] = *req.Status
	}

	var categories []models.Category
	if req.CategoryIDs != nil {
		categories, err = s.loadCategories(ctx, *req.CategoryIDs)
		if err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.products.WithTx(tx)

		product, err := repo.FindOwned(ctx, seller.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if _, err := repo.Update(ctx, seller.ID, productID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}
		if req.CategoryIDs != nil {
			if err := repo.ReplaceCategories(ctx, product, categories); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace categories")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindOwned(ctx, seller.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	return FromModel(product), nil
}

// Delete removes a listing and, after the row is gone, its stored images.
func (s *service) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return err
	}

	product, err := s.products.FindOwned(ctx, seller.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	affected, err := s.products.Delete(ctx, seller.ID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	if s.files != nil {
		for _, img := range product.Images {
			_ = s.files.Delete(ctx, img.URL)
		}
	}
	return nil
}

func (s *service) AddFeature(ctx context.Context, userID, productID uuid.UUID, input FeatureInput) (*ProductDTO, error) {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProduct(ctx, seller.ID, productID); err != nil {
		return nil, err
	}

	feature := &models.ProductFeature{
		ProductID: productID,
		Name:      strings.TrimSpace(input.Name),
		Value:     strings.TrimSpace(input.Value),
	}
	if feature.Name == "" || feature.Value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feature name and value are required")
	}
	if err := s.products.AddFeature(ctx, feature); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add feature")
	}

	product, err := s.products.FindOwned(ctx, seller.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	return FromModel(product), nil
}

func (s *service) DeleteFeature(ctx context.Context, userID, productID, featureID uuid.UUID) error {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, seller.ID, productID); err != nil {
		return err
	}

	affected, err := s.products.DeleteFeature(ctx, productID, featureID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete feature")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "feature not found")
	}
	return nil
}

// AddImage stores the file first, then the record. A main upload demotes the
// previous main in the same transaction; a failed record insert removes the
// just-stored file.
func (s *service) AddImage(ctx context.Context, userID, productID uuid.UUID, file io.Reader, filename string, isMain bool) (*ProductDTO, error) {
	if s.files == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "file storage not configured")
	}
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProduct(ctx, seller.ID, productID); err != nil {
		return nil, err
	}

	url, err := s.files.Save(ctx, file, filename)
	if err != nil {
		if errors.Is(err, local.ErrUnsupportedType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store image")
	}

	image := &models.ProductImage{ProductID: productID, URL: url, IsMain: isMain}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.products.WithTx(tx)
		if isMain {
			if err := repo.ClearMainImage(ctx, productID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear main image")
			}
		}
		if err := repo.AddImage(ctx, image); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add image")
		}
		return nil
	})
	if err != nil {
		_ = s.files.Delete(ctx, url)
		return nil, err
	}

	product, err := s.products.FindOwned(ctx, seller.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
	}
	return FromModel(product), nil
}

// SetMainImage demotes the current main and promotes the chosen photo in one
// transaction, keeping at most one main per product.
func (s *service) SetMainImage(ctx context.Context, userID, productID, imageID uuid.UUID) error {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, seller.ID, productID); err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.products.WithTx(tx)
		if err := repo.ClearMainImage(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear main image")
		}
		promoted, err := repo.SetMainImage(ctx, productID, imageID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set main image")
		}
		if !promoted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return nil
	})
}

// DeleteImage removes the record, then the stored file once the delete stuck.
func (s *service) DeleteImage(ctx context.Context, userID, productID, imageID uuid.UUID) error {
	seller, err := s.resolveSeller(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, seller.ID, productID); err != nil {
		return err
	}

	image, err := s.products.FindImage(ctx, productID, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load image")
	}

	affected, err := s.products.DeleteImage(ctx, productID, imageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete image")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}

	if s.files != nil {
		_ = s.files.Delete(ctx, image.URL)
	}
	return nil
}

func (s *service) resolveSeller(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "storefront required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	return seller, nil
}

func (s *service) ownedProduct(ctx context.Context, sellerID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindOwned(ctx, sellerID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func (s *service) loadCategories(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := map[uuid.UUID]struct{}{}
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	categories, err := s.products.CategoriesByIDs(ctx, unique)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load categories")
	}
	if len(categories) != len(unique) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more categories do not exist")
	}
	return categories, nil
}
