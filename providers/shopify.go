package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const shopifyAPIVersion = "2024-01"

// Abandoned checkouts older than this are not imported.
const abandonedCheckoutWindow = 30 * 24 * time.Hour

// ShopifyProvider implements CommerceProvider against the Shopify Admin
// checkout API. One instance per store.
type ShopifyProvider struct {
	storeURL    string
	accessToken string
	httpClient  *http.Client
}

// NewShopifyProvider creates a provider for one store.
func NewShopifyProvider(storeURL, accessToken string) *ShopifyProvider {
	return &ShopifyProvider{
		storeURL:    storeURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ---- Shopify API request/response structs ----

type shopifyLineItem struct {
	VariantID int64   `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	Title     string  `json:"title,omitempty"`
	Price     string  `json:"price,omitempty"`
}

type shopifyCheckout struct {
	Token      string            `json:"token"`
	Email      string            `json:"email,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	LineItems  []shopifyLineItem `json:"line_items"`
	TotalPrice string            `json:"total_price,omitempty"`
	WebURL     string            `json:"web_url,omitempty"`
	CreatedAt  string            `json:"created_at,omitempty"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
	Customer   *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"customer,omitempty"`
	DiscountCodes []struct {
		Code string `json:"code"`
	} `json:"discount_codes,omitempty"`
	AbandonedCheckoutURL string `json:"abandoned_checkout_url,omitempty"`
}

type shopifyCheckoutEnvelope struct {
	Checkout shopifyCheckout `json:"checkout"`
}

type shopifyCheckoutListEnvelope struct {
	Checkouts []shopifyCheckout `json:"checkouts"`
}

// ---- CommerceProvider implementation ----

// CreateCart creates a Shopify checkout and returns its token.
func (s *ShopifyProvider) CreateCart(ctx context.Context, lines []CartLine, customer RemoteCustomer) (string, error) {
	body := shopifyCheckoutEnvelope{
		Checkout: shopifyCheckout{
			Email:     customer.Email,
			Phone:     customer.Phone,
			LineItems: toShopifyLines(lines),
		},
	}

	var resp shopifyCheckoutEnvelope
	if err := s.doRequest(ctx, http.MethodPost, "/checkouts.json", body, &resp); err != nil {
		return "", fmt.Errorf("shopify CreateCart: %w", err)
	}
	if resp.Checkout.Token == "" {
		return "", fmt.Errorf("shopify CreateCart: empty checkout token")
	}
	return resp.Checkout.Token, nil
}

// UpdateCart replaces the line items of an existing checkout.
func (s *ShopifyProvider) UpdateCart(ctx context.Context, remoteID string, lines []CartLine) error {
	body := shopifyCheckoutEnvelope{
		Checkout: shopifyCheckout{
			Token:     remoteID,
			LineItems: toShopifyLines(lines),
		},
	}

	path := fmt.Sprintf("/checkouts/%s.json", url.PathEscape(remoteID))
	if err := s.doRequest(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("shopify UpdateCart: %w", err)
	}
	return nil
}

// GetCart fetches a checkout by token.
func (s *ShopifyProvider) GetCart(ctx context.Context, remoteID string) (*RemoteCart, error) {
	path := fmt.Sprintf("/checkouts/%s.json", url.PathEscape(remoteID))

	var resp shopifyCheckoutEnvelope
	if err := s.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("shopify GetCart: %w", err)
	}

	co := resp.Checkout
	cart := &RemoteCart{
		ID:       co.Token,
		Lines:    fromShopifyLines(co.LineItems),
		Customer: checkoutCustomer(co),
	}
	if co.TotalPrice != "" {
		cart.Total, _ = strconv.ParseFloat(co.TotalPrice, 64)
	}
	for _, dc := range co.DiscountCodes {
		cart.DiscountCodes = append(cart.DiscountCodes, dc.Code)
	}
	return cart, nil
}

// GetCheckoutURL resolves the hosted checkout URL for a checkout token.
func (s *ShopifyProvider) GetCheckoutURL(ctx context.Context, remoteID string) (string, error) {
	path := fmt.Sprintf("/checkouts/%s.json", url.PathEscape(remoteID))

	var resp shopifyCheckoutEnvelope
	if err := s.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("shopify GetCheckoutURL: %w", err)
	}
	if resp.Checkout.WebURL != "" {
		return resp.Checkout.WebURL, nil
	}
	return resp.Checkout.AbandonedCheckoutURL, nil
}

// ListAbandonedCheckouts fetches abandoned checkouts created inside the
// import window. Shopify caps this endpoint at 250 records; no pagination
// cursor is followed.
func (s *ShopifyProvider) ListAbandonedCheckouts(ctx context.Context) ([]AbandonedCheckout, error) {
	createdAtMin := time.Now().Add(-abandonedCheckoutWindow).UTC().Format(time.RFC3339)
	path := fmt.Sprintf("/checkouts.json?status=open&limit=250&created_at_min=%s", url.QueryEscape(createdAtMin))

	var resp shopifyCheckoutListEnvelope
	if err := s.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("shopify ListAbandonedCheckouts: %w", err)
	}

	out := make([]AbandonedCheckout, 0, len(resp.Checkouts))
	for _, co := range resp.Checkouts {
		record := AbandonedCheckout{
			ID:       co.Token,
			Customer: checkoutCustomer(co),
			Lines:    fromShopifyLines(co.LineItems),
		}
		if t, err := time.Parse(time.RFC3339, co.CreatedAt); err == nil {
			record.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, co.UpdatedAt); err == nil {
			record.UpdatedAt = t
		}
		out = append(out, record)
	}
	return out, nil
}

// ---- HTTP helper ----

func (s *ShopifyProvider) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s%s", s.storeURL, shopifyAPIVersion, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ---- Conversion helpers ----

func toShopifyLines(lines []CartLine) []shopifyLineItem {
	out := make([]shopifyLineItem, 0, len(lines))
	for _, l := range lines {
		variantID, err := strconv.ParseInt(l.VariantID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, shopifyLineItem{
			VariantID: variantID,
			Quantity:  l.Quantity,
		})
	}
	return out
}

func fromShopifyLines(items []shopifyLineItem) []CartLine {
	out := make([]CartLine, 0, len(items))
	for _, it := range items {
		line := CartLine{
			VariantID: strconv.FormatInt(it.VariantID, 10),
			Quantity:  it.Quantity,
			Title:     it.Title,
		}
		if it.Price != "" {
			line.Price, _ = strconv.ParseFloat(it.Price, 64)
		}
		out = append(out, line)
	}
	return out
}

func checkoutCustomer(co shopifyCheckout) RemoteCustomer {
	c := RemoteCustomer{
		Email: co.Email,
		Phone: co.Phone,
	}
	if co.Customer != nil {
		name := co.Customer.FirstName
		if co.Customer.LastName != "" {
			if name != "" {
				name += " "
			}
			name += co.Customer.LastName
		}
		c.Name = name
	}
	return c
}
