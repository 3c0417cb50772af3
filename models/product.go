package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a local catalog entry, read-only from the recovery pipeline.
type Product struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"store_id"`
	Name      string         `gorm:"type:varchar(256);not null" json:"name"`
	Price     float64        `gorm:"not null" json:"price"`
	Images    []string       `gorm:"serializer:json;type:jsonb" json:"images,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProductMapping links a local product to its Shopify variant, scoped per
// store. At most one mapping per (store, product) and per (store, variant);
// lookups rely on those unique indexes.
type ProductMapping struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_store_product;uniqueIndex:idx_store_variant" json:"store_id"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_store_product" json:"product_id"`
	ShopifyVariantID string    `gorm:"type:varchar(256);not null;uniqueIndex:idx_store_variant" json:"shopify_variant_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}
