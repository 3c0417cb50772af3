package repository

import (
	"context"

	"recovery-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository defines read access to products and their Shopify
// variant mappings.
type CatalogRepository interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindMappingByProductID(ctx context.Context, storeID, productID uuid.UUID) (*models.ProductMapping, error)
	FindMappingByVariantID(ctx context.Context, storeID uuid.UUID, variantID string) (*models.ProductMapping, error)
}

// GormCatalogRepository implements CatalogRepository using GORM.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository.
func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormCatalogRepository) FindMappingByProductID(ctx context.Context, storeID, productID uuid.UUID) (*models.ProductMapping, error) {
	var m models.ProductMapping
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormCatalogRepository) FindMappingByVariantID(ctx context.Context, storeID uuid.UUID, variantID string) (*models.ProductMapping, error) {
	var m models.ProductMapping
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND shopify_variant_id = ?", storeID, variantID).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
