package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is a single line in a cart. Items live inside the cart row as a
// jsonb column; they have no lifecycle of their own.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

// Cart is a shopping session tied to one store and optionally one customer.
// Total is recomputed by every import/sync write path as the sum of
// price*quantity over items.
type Cart struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"store_id"`
	CustomerName   string         `gorm:"type:varchar(256)" json:"customer_name,omitempty"`
	CustomerEmail  string         `gorm:"type:varchar(256)" json:"customer_email,omitempty"`
	CustomerPhone  string         `gorm:"type:varchar(32);index" json:"customer_phone,omitempty"`
	Items          []CartItem     `gorm:"serializer:json;type:jsonb" json:"items"`
	Total          float64        `gorm:"not null;default:0" json:"total"`
	Status         RecoveryStatus `gorm:"type:varchar(20);not null;default:'none';index" json:"status"`
	AbandonedAt    *time.Time     `json:"abandoned_at,omitempty"`
	LastNotifiedAt *time.Time     `json:"last_notified_at,omitempty"`
	RecoveredAt    *time.Time     `json:"recovered_at,omitempty"`
	DiscountCode   string         `gorm:"type:varchar(64)" json:"discount_code,omitempty"`
	DiscountAmount float64        `gorm:"not null;default:0" json:"discount_amount"`
	RemoteCartID   string         `gorm:"type:varchar(256);index" json:"remote_cart_id,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// ItemsTotal sums price*quantity over the item list.
func ItemsTotal(items []CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
