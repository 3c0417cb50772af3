package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store holds per-tenant configuration: Shopify credentials for the commerce
// platform and WhatsApp credentials for outbound messages. The recovery
// pipeline only reads stores.
type Store struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                  string         `gorm:"type:varchar(256);not null" json:"name"`
	Active                bool           `gorm:"not null;default:true;index" json:"active"`
	ShopifyStoreURL       string         `gorm:"type:varchar(512)" json:"shopify_store_url,omitempty"`
	ShopifyAccessToken    string         `gorm:"type:varchar(512)" json:"-"`
	WhatsAppAccessToken   string         `gorm:"type:varchar(512)" json:"-"`
	WhatsAppPhoneNumberID string         `gorm:"type:varchar(64)" json:"-"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasShopifyCredentials reports whether remote commerce calls can be made.
func (s *Store) HasShopifyCredentials() bool {
	return s.ShopifyStoreURL != "" && s.ShopifyAccessToken != ""
}

// HasWhatsAppCredentials reports whether recovery messages can be sent.
func (s *Store) HasWhatsAppCredentials() bool {
	return s.WhatsAppAccessToken != "" && s.WhatsAppPhoneNumberID != ""
}
