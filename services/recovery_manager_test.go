package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"recovery-service/models"
	"recovery-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestManager(carts *mockCartRepo, stores *mockStoreRepo, factory services.EngineFactory) *services.RecoveryManager {
	logger, _ := zap.NewDevelopment()
	return services.NewRecoveryManager(carts, stores, factory, nil, time.Minute, logger)
}

func managerFixture(engine *fakeEngine) (*services.RecoveryManager, *models.Store, *models.Cart, *mockCartRepo) {
	store := testStore()
	carts := newMockCartRepo()
	cart := &models.Cart{
		ID:            uuid.New(),
		StoreID:       store.ID,
		CustomerPhone: "+15550001111",
		Status:        models.StatusAbandoned,
		DiscountCode:  "SAVE10",
	}
	carts.add(cart)
	stores := &mockStoreRepo{stores: []models.Store{*store}}

	mgr := newTestManager(carts, stores, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})
	return mgr, store, cart, carts
}

func TestManagerSendMessage_CartNotFound(t *testing.T) {
	mgr := newTestManager(newMockCartRepo(), &mockStoreRepo{}, nil)

	svcErr := mgr.SendMessage(context.Background(), uuid.New())
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 404, svcErr.StatusCode)
	}
}

func TestManagerSendMessage_NoMessagingCredentials(t *testing.T) {
	mgr, _, cart, _ := managerFixture(&fakeEngine{canMessage: false})

	svcErr := mgr.SendMessage(context.Background(), cart.ID)
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 409, svcErr.StatusCode)
	}
}

func TestManagerSendMessage_NoPhone(t *testing.T) {
	engine := &fakeEngine{canMessage: true}
	mgr, _, cart, _ := managerFixture(engine)
	cart.CustomerPhone = ""

	svcErr := mgr.SendMessage(context.Background(), cart.ID)
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 422, svcErr.StatusCode)
	}
}

func TestManagerSendMessage_SendFailureIsBadGateway(t *testing.T) {
	engine := &fakeEngine{canMessage: true, sendErr: errors.New("whatsapp 500")}
	mgr, _, cart, _ := managerFixture(engine)

	svcErr := mgr.SendMessage(context.Background(), cart.ID)
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 502, svcErr.StatusCode)
	}
}

func TestManagerSendMessage_Success(t *testing.T) {
	engine := &fakeEngine{canMessage: true}
	mgr, _, cart, _ := managerFixture(engine)

	svcErr := mgr.SendMessage(context.Background(), cart.ID)
	assert.Nil(t, svcErr)
	assert.Equal(t, []uuid.UUID{cart.ID}, engine.notified)
}

func TestManagerRecover_CodeMismatch(t *testing.T) {
	mgr, _, cart, _ := managerFixture(&fakeEngine{})

	_, svcErr := mgr.Recover(context.Background(), cart.ID, "WRONG")
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 403, svcErr.StatusCode)
	}
}

func TestManagerRecover_CodeMatchIsCaseInsensitive(t *testing.T) {
	mgr, _, cart, _ := managerFixture(&fakeEngine{})

	url, svcErr := mgr.Recover(context.Background(), cart.ID, "save10")
	assert.Nil(t, svcErr)
	assert.Equal(t, "https://shop.example/r", url)
}

func TestManagerRecover_NoDiscountCodeAcceptsAnyCode(t *testing.T) {
	mgr, _, cart, _ := managerFixture(&fakeEngine{})
	cart.DiscountCode = ""

	_, svcErr := mgr.Recover(context.Background(), cart.ID, "anything")
	assert.Nil(t, svcErr)
}

func TestManagerStats_StoreNotFound(t *testing.T) {
	mgr := newTestManager(newMockCartRepo(), &mockStoreRepo{}, nil)

	_, svcErr := mgr.Stats(context.Background(), uuid.New())
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 404, svcErr.StatusCode)
	}
}

func TestManagerStats_MisconfiguredStore(t *testing.T) {
	store := testStore()
	stores := &mockStoreRepo{stores: []models.Store{*store}}
	mgr := newTestManager(newMockCartRepo(), stores, func(_ *models.Store) (services.RecoveryEngine, error) {
		return nil, errors.New("no shopify credentials")
	})

	_, svcErr := mgr.Stats(context.Background(), store.ID)
	if assert.NotNil(t, svcErr) {
		assert.Equal(t, 409, svcErr.StatusCode)
	}
}

func TestManagerStats_Success(t *testing.T) {
	store := testStore()
	stores := &mockStoreRepo{stores: []models.Store{*store}}
	engine := &fakeEngine{stats: models.RecoveryStats{Notified: 5, Recovered: 2, RecoveryRate: 40.0}}
	mgr := newTestManager(newMockCartRepo(), stores, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})

	stats, svcErr := mgr.Stats(context.Background(), store.ID)
	assert.Nil(t, svcErr)
	assert.Equal(t, int64(2), stats.Recovered)
	assert.InDelta(t, 40.0, stats.RecoveryRate, 0.001)
}
