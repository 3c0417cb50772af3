package providers

import (
	"context"
	"time"
)

// CartLine is one line of a remote cart, keyed by the platform's variant id.
type CartLine struct {
	VariantID string  `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	Title     string  `json:"title,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// RemoteCustomer is the buyer identity attached to a remote cart.
type RemoteCustomer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// RemoteCart is the commerce platform's view of a cart.
type RemoteCart struct {
	ID            string         `json:"id"`
	Lines         []CartLine     `json:"lines"`
	Customer      RemoteCustomer `json:"customer"`
	Total         float64        `json:"total"`
	DiscountCodes []string       `json:"discount_codes,omitempty"`
}

// AbandonedCheckout is one abandoned checkout record from the platform.
type AbandonedCheckout struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Customer  RemoteCustomer `json:"customer"`
	Lines     []CartLine     `json:"lines"`
}

// CommerceProvider is the contract every commerce-platform integration must
// implement.
type CommerceProvider interface {
	// CreateCart creates a remote cart and returns its id.
	CreateCart(ctx context.Context, lines []CartLine, customer RemoteCustomer) (string, error)

	// UpdateCart replaces the line items of an existing remote cart.
	UpdateCart(ctx context.Context, remoteID string, lines []CartLine) error

	// GetCart fetches the remote cart by id.
	GetCart(ctx context.Context, remoteID string) (*RemoteCart, error)

	// GetCheckoutURL resolves the hosted checkout URL for a remote cart.
	GetCheckoutURL(ctx context.Context, remoteID string) (string, error)

	// ListAbandonedCheckouts returns the platform's abandoned checkout
	// records for the store. A single unpaginated batch per call.
	ListAbandonedCheckouts(ctx context.Context) ([]AbandonedCheckout, error)
}

// MessageSender sends a text message to a phone identifier.
type MessageSender interface {
	SendText(ctx context.Context, to, body string, previewURL bool) error
}
