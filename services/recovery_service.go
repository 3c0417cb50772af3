package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"recovery-service/models"
	"recovery-service/providers"
	"recovery-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher publishes cart lifecycle events. Satisfied by the Kafka
// producer; nil disables event publishing.
type EventPublisher interface {
	PublishCartEvent(ctx context.Context, event models.CartEvent)
}

// RecoveryEngine is the per-store recovery logic consumed by the scan
// pipeline and the HTTP layer.
type RecoveryEngine interface {
	ImportAbandonedCheckouts(ctx context.Context) (int, error)
	MarkAbandoned(ctx context.Context, cart *models.Cart) error
	SyncCart(ctx context.Context, cartID uuid.UUID) models.SyncResult
	RecoveryURL(ctx context.Context, cartID uuid.UUID) (string, error)
	SendRecoveryMessage(ctx context.Context, cartID uuid.UUID) error
	ProcessRecovery(ctx context.Context, cartID uuid.UUID) error
	Stats(ctx context.Context) (*models.RecoveryStats, error)
	CanMessage() bool
}

// RecoveryService implements RecoveryEngine for one store. Construct it with
// NewRecoveryService; a value that exists is always fully configured for
// commerce calls — there is no uninitialized state.
type RecoveryService struct {
	store     *models.Store
	carts     repository.CartRepository
	catalog   repository.CatalogRepository
	commerce  providers.CommerceProvider
	messenger providers.MessageSender // nil when the store has no WhatsApp credentials
	events    EventPublisher
	logger    *zap.Logger
}

// NewRecoveryService builds the engine for a store, constructing the Shopify
// and WhatsApp clients from the store's credentials. Missing Shopify
// credentials are a hard construction error; missing WhatsApp credentials
// only disable message sending.
func NewRecoveryService(
	store *models.Store,
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	events EventPublisher,
	logger *zap.Logger,
) (*RecoveryService, error) {
	if store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if !store.HasShopifyCredentials() {
		return nil, fmt.Errorf("%w: store %s", ErrStoreNotConfigured, store.ID)
	}

	commerce := providers.NewShopifyProvider(store.ShopifyStoreURL, store.ShopifyAccessToken)

	var messenger providers.MessageSender
	if store.HasWhatsAppCredentials() {
		sender, err := providers.NewWhatsAppSender(store.WhatsAppAccessToken, store.WhatsAppPhoneNumberID)
		if err != nil {
			return nil, fmt.Errorf("whatsapp sender: %w", err)
		}
		messenger = sender
	}

	return NewRecoveryServiceWithClients(store, carts, catalog, commerce, messenger, events, logger), nil
}

// NewRecoveryServiceWithClients wires an engine with explicit provider
// clients. Used by tests and by NewRecoveryService.
func NewRecoveryServiceWithClients(
	store *models.Store,
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	commerce providers.CommerceProvider,
	messenger providers.MessageSender,
	events EventPublisher,
	logger *zap.Logger,
) *RecoveryService {
	return &RecoveryService{
		store:     store,
		carts:     carts,
		catalog:   catalog,
		commerce:  commerce,
		messenger: messenger,
		events:    events,
		logger:    logger,
	}
}

// CanMessage reports whether recovery messages can be sent for this store.
func (s *RecoveryService) CanMessage() bool {
	return s.messenger != nil
}

// mapItemsToRemote turns local cart items into Shopify cart lines. Items
// without a variant mapping are dropped, not errored; the remote cart may
// under-represent the local one when mappings are incomplete.
func (s *RecoveryService) mapItemsToRemote(ctx context.Context, items []models.CartItem) []providers.CartLine {
	lines := make([]providers.CartLine, 0, len(items))
	for _, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			s.logger.Debug("skipping item with invalid product id",
				zap.String("product_id", item.ProductID))
			continue
		}
		mapping, err := s.catalog.FindMappingByProductID(ctx, s.store.ID, productID)
		if err != nil {
			s.logger.Debug("skipping unmapped item",
				zap.String("product_id", item.ProductID))
			continue
		}
		lines = append(lines, providers.CartLine{
			VariantID: mapping.ShopifyVariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// mapRemoteLines turns Shopify cart lines into local cart items. Lines with
// no mapping, or whose mapped product no longer exists, are dropped.
func (s *RecoveryService) mapRemoteLines(ctx context.Context, lines []providers.CartLine) []models.CartItem {
	items := make([]models.CartItem, 0, len(lines))
	for _, line := range lines {
		mapping, err := s.catalog.FindMappingByVariantID(ctx, s.store.ID, line.VariantID)
		if err != nil {
			s.logger.Debug("skipping unmapped remote line",
				zap.String("variant_id", line.VariantID))
			continue
		}
		product, err := s.catalog.FindProductByID(ctx, mapping.ProductID)
		if err != nil {
			s.logger.Debug("skipping line with missing product",
				zap.String("product_id", mapping.ProductID.String()))
			continue
		}
		item := models.CartItem{
			ProductID: product.ID.String(),
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		}
		if len(product.Images) > 0 {
			item.Image = product.Images[0]
		}
		items = append(items, item)
	}
	return items
}

// SyncCart pushes a local cart to Shopify. An existing remote cart is
// updated in place; if the update fails the cart is recreated and the
// update failure is carried on the result instead of propagated.
func (s *RecoveryService) SyncCart(ctx context.Context, cartID uuid.UUID) models.SyncResult {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		s.logger.Warn("sync: cart not found", zap.String("cart_id", cartID.String()), zap.Error(err))
		return models.SyncResult{Outcome: models.SyncFailed}
	}

	lines := s.mapItemsToRemote(ctx, cart.Items)

	var updateErr error
	if cart.RemoteCartID != "" {
		if err := s.commerce.UpdateCart(ctx, cart.RemoteCartID, lines); err == nil {
			return models.SyncResult{Outcome: models.SyncUpdated, RemoteID: cart.RemoteCartID}
		} else {
			updateErr = err
			s.logger.Warn("remote cart update failed, recreating",
				zap.String("cart_id", cart.ID.String()),
				zap.String("remote_cart_id", cart.RemoteCartID),
				zap.Error(err),
			)
		}
	}

	remoteID, err := s.commerce.CreateCart(ctx, lines, providers.RemoteCustomer{
		Name:  cart.CustomerName,
		Email: cart.CustomerEmail,
		Phone: cart.CustomerPhone,
	})
	if err != nil {
		s.logger.Error("remote cart create failed",
			zap.String("cart_id", cart.ID.String()),
			zap.Error(err),
		)
		return models.SyncResult{Outcome: models.SyncFailed, UpdateErr: updateErr}
	}

	cart.RemoteCartID = remoteID
	if err := s.carts.Update(ctx, cart); err != nil {
		s.logger.Error("failed to persist remote cart id",
			zap.String("cart_id", cart.ID.String()),
			zap.Error(err),
		)
		return models.SyncResult{Outcome: models.SyncFailed, UpdateErr: updateErr}
	}

	return models.SyncResult{Outcome: models.SyncCreated, RemoteID: remoteID, UpdateErr: updateErr}
}

// ImportAbandonedCheckouts pulls Shopify's abandoned checkouts into local
// carts. Import is idempotent on (store, remote id); checkouts with no
// resolvable items are skipped entirely rather than creating empty carts.
// Returns the count of newly created carts.
func (s *RecoveryService) ImportAbandonedCheckouts(ctx context.Context) (int, error) {
	records, err := s.commerce.ListAbandonedCheckouts(ctx)
	if err != nil {
		s.logger.Error("failed to list abandoned checkouts",
			zap.String("store_id", s.store.ID.String()),
			zap.Error(err),
		)
		return 0, err
	}

	created := 0
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if existing, err := s.carts.FindByRemoteID(ctx, s.store.ID, rec.ID); err == nil && existing != nil {
			continue
		}

		items := s.mapRemoteLines(ctx, rec.Lines)
		if len(items) == 0 {
			s.logger.Debug("skipping checkout with no resolvable items",
				zap.String("remote_id", rec.ID))
			continue
		}

		abandonedAt := rec.CreatedAt
		cart := &models.Cart{
			StoreID:       s.store.ID,
			CustomerName:  rec.Customer.Name,
			CustomerEmail: rec.Customer.Email,
			CustomerPhone: rec.Customer.Phone,
			Items:         items,
			Total:         models.ItemsTotal(items),
			Status:        models.StatusAbandoned,
			AbandonedAt:   &abandonedAt,
			RemoteCartID:  rec.ID,
			UpdatedAt:     rec.UpdatedAt,
		}
		if err := s.carts.Create(ctx, cart); err != nil {
			s.logger.Error("failed to create imported cart",
				zap.String("remote_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	if created > 0 {
		s.logger.Info("imported abandoned checkouts",
			zap.String("store_id", s.store.ID.String()),
			zap.Int("created", created),
		)
	}
	return created, nil
}

// MarkAbandoned moves a dormant cart into the abandoned state.
func (s *RecoveryService) MarkAbandoned(ctx context.Context, cart *models.Cart) error {
	now := time.Now()
	cart.Status = models.StatusAbandoned
	cart.AbandonedAt = &now
	if err := s.carts.Update(ctx, cart); err != nil {
		return err
	}
	s.publishEvent(ctx, models.EventTypeCartAbandoned, cart)
	return nil
}

// RecoveryURL resolves the checkout URL for a cart. The cart is re-synced
// first so the checkout reflects the latest local items; carts without a
// remote id resolve to an empty URL.
func (s *RecoveryService) RecoveryURL(ctx context.Context, cartID uuid.UUID) (string, error) {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return "", err
	}
	if cart.RemoteCartID == "" {
		return "", nil
	}

	res := s.SyncCart(ctx, cartID)
	if res.Outcome == models.SyncFailed || res.RemoteID == "" {
		return "", fmt.Errorf("cart sync failed before checkout url resolution")
	}

	checkoutURL, err := s.commerce.GetCheckoutURL(ctx, res.RemoteID)
	if err != nil {
		s.logger.Error("failed to resolve checkout url",
			zap.String("cart_id", cart.ID.String()),
			zap.Error(err),
		)
		return "", err
	}
	if checkoutURL == "" {
		return "", nil
	}

	if cart.DiscountCode != "" {
		checkoutURL = appendQueryParam(checkoutURL, "discount", cart.DiscountCode)
	}
	return checkoutURL, nil
}

// SendRecoveryMessage renders and sends the recovery message for a cart,
// then advances its status. A first send on an abandoned cart lands on
// notified_first; every later send lands on notified_final.
func (s *RecoveryService) SendRecoveryMessage(ctx context.Context, cartID uuid.UUID) error {
	if s.messenger == nil {
		return fmt.Errorf("%w: store %s", ErrMessagingNotConfigured, s.store.ID)
	}

	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return err
	}
	if cart.CustomerPhone == "" {
		return fmt.Errorf("cart %s has no customer phone", cart.ID)
	}

	recoveryURL, err := s.RecoveryURL(ctx, cartID)
	if err != nil {
		return err
	}
	if recoveryURL == "" {
		return fmt.Errorf("no recovery url available for cart %s", cart.ID)
	}

	body, err := BuildRecoveryMessage(s.store.Name, cart, recoveryURL)
	if err != nil {
		return err
	}

	if err := s.messenger.SendText(ctx, cart.CustomerPhone, body, true); err != nil {
		s.logger.Error("failed to send recovery message",
			zap.String("cart_id", cart.ID.String()),
			zap.Error(err),
		)
		return err
	}

	now := time.Now()
	cart.Status = models.NextStatus(cart.Status, models.EventNotified)
	cart.LastNotifiedAt = &now
	if err := s.carts.Update(ctx, cart); err != nil {
		return err
	}

	s.logger.Info("recovery message sent",
		zap.String("cart_id", cart.ID.String()),
		zap.String("status", string(cart.Status)),
	)
	s.publishEvent(ctx, models.EventTypeCartNotified, cart)
	return nil
}

// ProcessRecovery unconditionally marks a cart recovered. Callers validate
// the triggering condition (e.g. a discount code match) beforehand.
func (s *RecoveryService) ProcessRecovery(ctx context.Context, cartID uuid.UUID) error {
	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return err
	}

	now := time.Now()
	cart.Status = models.StatusRecovered
	cart.RecoveredAt = &now
	if err := s.carts.Update(ctx, cart); err != nil {
		return err
	}

	s.logger.Info("cart recovered",
		zap.String("cart_id", cart.ID.String()),
		zap.Float64("total", cart.Total),
	)
	s.publishEvent(ctx, models.EventTypeCartRecovered, cart)
	return nil
}

// Stats computes aggregate recovery statistics for the store.
func (s *RecoveryService) Stats(ctx context.Context) (*models.RecoveryStats, error) {
	abandoned, err := s.carts.CountByStatus(ctx, s.store.ID, models.StatusAbandoned)
	if err != nil {
		return nil, err
	}
	notified, err := s.carts.CountByStatus(ctx, s.store.ID, models.StatusNotifiedFirst, models.StatusNotifiedFinal)
	if err != nil {
		return nil, err
	}
	recovered, err := s.carts.CountByStatus(ctx, s.store.ID, models.StatusRecovered)
	if err != nil {
		return nil, err
	}
	lost, err := s.carts.CountByStatus(ctx, s.store.ID, models.StatusLost)
	if err != nil {
		return nil, err
	}
	revenue, err := s.carts.RecoveredRevenue(ctx, s.store.ID)
	if err != nil {
		return nil, err
	}

	stats := &models.RecoveryStats{
		Abandoned: abandoned,
		Notified:  notified,
		Recovered: recovered,
		Lost:      lost,
		Revenue:   revenue,
	}
	if notified > 0 {
		stats.RecoveryRate = float64(recovered) / float64(notified) * 100
	}
	return stats, nil
}

func (s *RecoveryService) publishEvent(ctx context.Context, eventType string, cart *models.Cart) {
	if s.events == nil {
		return
	}
	s.events.PublishCartEvent(ctx, models.CartEvent{
		EventType: eventType,
		CartID:    cart.ID.String(),
		StoreID:   cart.StoreID.String(),
		Status:    string(cart.Status),
		Total:     cart.Total,
		Timestamp: time.Now(),
	})
}

// appendQueryParam appends a query parameter, preserving existing ones.
func appendQueryParam(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
