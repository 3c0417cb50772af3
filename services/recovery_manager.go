package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recovery-service/models"
	"recovery-service/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func statsCacheKey(storeID uuid.UUID) string {
	return fmt.Sprintf("recovery:stats:%s", storeID)
}

// CartRecoveryService is the cart-level surface consumed by the HTTP layer.
type CartRecoveryService interface {
	SendMessage(ctx context.Context, cartID uuid.UUID) *ServiceError
	Recover(ctx context.Context, cartID uuid.UUID, code string) (string, *ServiceError)
	Stats(ctx context.Context, storeID uuid.UUID) (*models.RecoveryStats, *ServiceError)
	ListCarts(ctx context.Context, storeID uuid.UUID, status models.RecoveryStatus, page, limit int) ([]models.Cart, int64, *ServiceError)
}

// RecoveryManager is the controller-facing service: it resolves the store
// behind a cart, builds the per-store engine, and translates failures into
// typed errors with HTTP status codes.
type RecoveryManager struct {
	carts       repository.CartRepository
	stores      repository.StoreRepository
	factory     EngineFactory
	redisClient *redis.Client
	statsTTL    time.Duration
	logger      *zap.Logger
}

// NewRecoveryManager creates a RecoveryManager. redisClient may be nil;
// stats are then computed on every request.
func NewRecoveryManager(
	carts repository.CartRepository,
	stores repository.StoreRepository,
	factory EngineFactory,
	redisClient *redis.Client,
	statsTTL time.Duration,
	logger *zap.Logger,
) *RecoveryManager {
	return &RecoveryManager{
		carts:       carts,
		stores:      stores,
		factory:     factory,
		redisClient: redisClient,
		statsTTL:    statsTTL,
		logger:      logger,
	}
}

func (m *RecoveryManager) engineForCart(ctx context.Context, cartID uuid.UUID) (RecoveryEngine, *models.Cart, *ServiceError) {
	cart, err := m.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, nil, &ServiceError{StatusCode: 404, Message: "Cart not found"}
	}
	store, err := m.stores.FindByID(ctx, cart.StoreID)
	if err != nil {
		return nil, nil, &ServiceError{StatusCode: 404, Message: "Store not found"}
	}
	engine, err := m.factory(store)
	if err != nil {
		return nil, nil, &ServiceError{StatusCode: 409, Message: "Store is not configured for recovery"}
	}
	return engine, cart, nil
}

// SendMessage sends a recovery message for one cart on demand.
func (m *RecoveryManager) SendMessage(ctx context.Context, cartID uuid.UUID) *ServiceError {
	engine, cart, svcErr := m.engineForCart(ctx, cartID)
	if svcErr != nil {
		return svcErr
	}
	if !engine.CanMessage() {
		return &ServiceError{StatusCode: 409, Message: "Store has no messaging credentials"}
	}
	if cart.CustomerPhone == "" {
		return &ServiceError{StatusCode: 422, Message: "Cart has no customer phone"}
	}
	if err := engine.SendRecoveryMessage(ctx, cartID); err != nil {
		m.logger.Error("manual recovery message failed",
			zap.String("cart_id", cartID.String()),
			zap.Error(err),
		)
		return &ServiceError{StatusCode: 502, Message: "Failed to send recovery message"}
	}
	m.invalidateStats(ctx, cart.StoreID)
	return nil
}

// Recover validates the discount code (when the cart carries one), marks the
// cart recovered, and returns the freshly synced checkout URL to redirect to.
// The URL may be empty when the cart was never synced to Shopify.
func (m *RecoveryManager) Recover(ctx context.Context, cartID uuid.UUID, code string) (string, *ServiceError) {
	engine, cart, svcErr := m.engineForCart(ctx, cartID)
	if svcErr != nil {
		return "", svcErr
	}

	if cart.DiscountCode != "" && !strings.EqualFold(cart.DiscountCode, code) {
		return "", &ServiceError{StatusCode: 403, Message: "Discount code does not match"}
	}

	if err := engine.ProcessRecovery(ctx, cartID); err != nil {
		m.logger.Error("process recovery failed",
			zap.String("cart_id", cartID.String()),
			zap.Error(err),
		)
		return "", &ServiceError{StatusCode: 500, Message: "Failed to process recovery"}
	}
	m.invalidateStats(ctx, cart.StoreID)

	checkoutURL, err := engine.RecoveryURL(ctx, cartID)
	if err != nil {
		// Recovery already happened; a missing redirect target is not fatal.
		m.logger.Warn("checkout url unavailable after recovery",
			zap.String("cart_id", cartID.String()),
			zap.Error(err),
		)
		return "", nil
	}
	return checkoutURL, nil
}

// Stats returns recovery statistics for a store, cached in Redis.
func (m *RecoveryManager) Stats(ctx context.Context, storeID uuid.UUID) (*models.RecoveryStats, *ServiceError) {
	if cached := m.cachedStats(ctx, storeID); cached != nil {
		return cached, nil
	}

	store, err := m.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, &ServiceError{StatusCode: 404, Message: "Store not found"}
	}
	engine, err := m.factory(store)
	if err != nil {
		return nil, &ServiceError{StatusCode: 409, Message: "Store is not configured for recovery"}
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		m.logger.Error("stats computation failed",
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to compute recovery stats"}
	}

	m.cacheStats(ctx, storeID, stats)
	return stats, nil
}

// ListCarts returns a page of carts for a store, optionally filtered by
// status.
func (m *RecoveryManager) ListCarts(ctx context.Context, storeID uuid.UUID, status models.RecoveryStatus, page, limit int) ([]models.Cart, int64, *ServiceError) {
	carts, total, err := m.carts.FindByStore(ctx, storeID, status, page, limit)
	if err != nil {
		m.logger.Error("cart listing failed",
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to list carts"}
	}
	return carts, total, nil
}

func (m *RecoveryManager) cachedStats(ctx context.Context, storeID uuid.UUID) *models.RecoveryStats {
	if m.redisClient == nil {
		return nil
	}
	data, err := m.redisClient.Get(ctx, statsCacheKey(storeID)).Result()
	if err != nil {
		return nil
	}
	var stats models.RecoveryStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil
	}
	return &stats
}

func (m *RecoveryManager) cacheStats(ctx context.Context, storeID uuid.UUID, stats *models.RecoveryStats) {
	if m.redisClient == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := m.redisClient.Set(ctx, statsCacheKey(storeID), data, m.statsTTL).Err(); err != nil {
		m.logger.Warn("failed to cache stats", zap.Error(err))
	}
}

func (m *RecoveryManager) invalidateStats(ctx context.Context, storeID uuid.UUID) {
	if m.redisClient == nil {
		return
	}
	if err := m.redisClient.Del(ctx, statsCacheKey(storeID)).Err(); err != nil {
		m.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
