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

// ---- mock store repository ----

type mockStoreRepo struct {
	stores  []models.Store
	listErr error
}

func (m *mockStoreRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Store, error) {
	for i := range m.stores {
		if m.stores[i].ID == id {
			return &m.stores[i], nil
		}
	}
	return nil, errors.New("store not found")
}

func (m *mockStoreRepo) FindActive(_ context.Context) ([]models.Store, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.stores, nil
}

// ---- scan-aware cart repository ----

type scanCartRepo struct {
	*mockCartRepo
	dormant        map[uuid.UUID][]models.Cart
	followUp       map[uuid.UUID][]models.Cart
	lost           map[uuid.UUID]int64
	dormantCutoff  time.Time
	followUpCutoff time.Time
	expireCutoff   time.Time
	followUpCalls  int
}

func newScanCartRepo() *scanCartRepo {
	return &scanCartRepo{
		mockCartRepo: newMockCartRepo(),
		dormant:      make(map[uuid.UUID][]models.Cart),
		followUp:     make(map[uuid.UUID][]models.Cart),
		lost:         make(map[uuid.UUID]int64),
	}
}

func (m *scanCartRepo) FindDormant(_ context.Context, storeID uuid.UUID, updatedBefore time.Time) ([]models.Cart, error) {
	m.dormantCutoff = updatedBefore
	return m.dormant[storeID], nil
}

func (m *scanCartRepo) FindForFollowUp(_ context.Context, storeID uuid.UUID, notifiedBefore time.Time) ([]models.Cart, error) {
	m.followUpCalls++
	m.followUpCutoff = notifiedBefore
	return m.followUp[storeID], nil
}

func (m *scanCartRepo) MarkLostBefore(_ context.Context, storeID uuid.UUID, notifiedBefore time.Time) (int64, error) {
	m.expireCutoff = notifiedBefore
	return m.lost[storeID], nil
}

// ---- fake recovery engine ----

type fakeEngine struct {
	imported   int
	importErr  error
	canMessage bool
	markErr    error
	sendErr    error
	stats      models.RecoveryStats
	marked     []uuid.UUID
	notified   []uuid.UUID
}

func (f *fakeEngine) ImportAbandonedCheckouts(_ context.Context) (int, error) {
	return f.imported, f.importErr
}

func (f *fakeEngine) MarkAbandoned(_ context.Context, cart *models.Cart) error {
	if f.markErr != nil {
		return f.markErr
	}
	cart.Status = models.StatusAbandoned
	f.marked = append(f.marked, cart.ID)
	return nil
}

func (f *fakeEngine) SyncCart(_ context.Context, _ uuid.UUID) models.SyncResult {
	return models.SyncResult{Outcome: models.SyncUpdated}
}

func (f *fakeEngine) RecoveryURL(_ context.Context, _ uuid.UUID) (string, error) {
	return "https://shop.example/r", nil
}

func (f *fakeEngine) SendRecoveryMessage(_ context.Context, cartID uuid.UUID) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.notified = append(f.notified, cartID)
	return nil
}

func (f *fakeEngine) ProcessRecovery(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeEngine) Stats(_ context.Context) (*models.RecoveryStats, error) {
	stats := f.stats
	return &stats, nil
}

func (f *fakeEngine) CanMessage() bool { return f.canMessage }

// ---- helpers ----

func scanTestConfig() services.ScanConfig {
	return services.ScanConfig{
		DormantAfter:  time.Hour,
		FollowUpAfter: 24 * time.Hour,
		ExpireAfter:   48 * time.Hour,
	}
}

func newScanService(stores *mockStoreRepo, carts *scanCartRepo, factory services.EngineFactory) *services.ScanService {
	logger, _ := zap.NewDevelopment()
	return services.NewScanService(stores, carts, factory, scanTestConfig(), nil, nil, "", logger)
}

func cartsFor(storeID uuid.UUID, n int) []models.Cart {
	out := make([]models.Cart, n)
	for i := range out {
		out[i] = models.Cart{ID: uuid.New(), StoreID: storeID, CustomerPhone: "+15550001111"}
	}
	return out
}

// ---- tests ----

func TestRunScan_FullPipeline(t *testing.T) {
	store := *testStore()
	stores := &mockStoreRepo{stores: []models.Store{store}}

	carts := newScanCartRepo()
	carts.dormant[store.ID] = cartsFor(store.ID, 2)
	carts.followUp[store.ID] = cartsFor(store.ID, 1)
	carts.lost[store.ID] = 3

	engine := &fakeEngine{
		imported:   4,
		canMessage: true,
		stats:      models.RecoveryStats{Recovered: 2},
	}
	svc := newScanService(stores, carts, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 1, summary.Stores)
	assert.Equal(t, 4, summary.Imported)
	assert.Equal(t, 2, summary.Abandoned)
	assert.Equal(t, 2, summary.Notified)
	assert.Equal(t, 1, summary.FollowUp)
	assert.Equal(t, int64(3), summary.Lost)
	assert.Equal(t, int64(2), summary.Recovered)
	assert.Zero(t, summary.Errors)
	assert.Len(t, engine.marked, 2)
	assert.Len(t, engine.notified, 3) // 2 first messages + 1 follow-up
}

func TestRunScan_CutoffsMatchThresholds(t *testing.T) {
	store := *testStore()
	stores := &mockStoreRepo{stores: []models.Store{store}}
	carts := newScanCartRepo()

	engine := &fakeEngine{canMessage: true}
	svc := newScanService(stores, carts, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})

	_, err := svc.RunScan(context.Background())
	assert.NoError(t, err)

	now := time.Now()
	assert.WithinDuration(t, now.Add(-time.Hour), carts.dormantCutoff, 5*time.Second)
	assert.WithinDuration(t, now.Add(-24*time.Hour), carts.followUpCutoff, 5*time.Second)
	assert.WithinDuration(t, now.Add(-48*time.Hour), carts.expireCutoff, 5*time.Second)
}

func TestRunScan_SkipsStoresWithoutShopifyCredentials(t *testing.T) {
	configured := *testStore()
	bare := *testStore()
	bare.ShopifyAccessToken = ""
	stores := &mockStoreRepo{stores: []models.Store{bare, configured}}

	var factoryCalls int
	svc := newScanService(stores, newScanCartRepo(), func(_ *models.Store) (services.RecoveryEngine, error) {
		factoryCalls++
		return &fakeEngine{}, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Stores)
	assert.Equal(t, 1, factoryCalls)
}

func TestRunScan_FactoryFailureIsolatedPerStore(t *testing.T) {
	broken := *testStore()
	healthy := *testStore()
	stores := &mockStoreRepo{stores: []models.Store{broken, healthy}}

	carts := newScanCartRepo()
	carts.dormant[healthy.ID] = cartsFor(healthy.ID, 1)

	engine := &fakeEngine{canMessage: true}
	svc := newScanService(stores, carts, func(store *models.Store) (services.RecoveryEngine, error) {
		if store.ID == broken.ID {
			return nil, errors.New("bad credentials")
		}
		return engine, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Stores)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Abandoned) // healthy store still processed
}

func TestRunScan_NoMessagingStillDetectsAndExpires(t *testing.T) {
	store := *testStore()
	stores := &mockStoreRepo{stores: []models.Store{store}}

	carts := newScanCartRepo()
	carts.dormant[store.ID] = cartsFor(store.ID, 2)
	carts.followUp[store.ID] = cartsFor(store.ID, 5)
	carts.lost[store.ID] = 1

	engine := &fakeEngine{canMessage: false}
	svc := newScanService(stores, carts, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Abandoned)
	assert.Zero(t, summary.Notified)
	assert.Zero(t, summary.FollowUp)
	assert.Zero(t, carts.followUpCalls) // follow-up query skipped entirely
	assert.Equal(t, int64(1), summary.Lost)
	assert.Empty(t, engine.notified)
}

func TestRunScan_SendFailureCountsErrorKeepsCartAbandoned(t *testing.T) {
	store := *testStore()
	stores := &mockStoreRepo{stores: []models.Store{store}}

	carts := newScanCartRepo()
	carts.dormant[store.ID] = cartsFor(store.ID, 1)

	engine := &fakeEngine{canMessage: true, sendErr: errors.New("whatsapp 500")}
	svc := newScanService(stores, carts, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Abandoned)
	assert.Zero(t, summary.Notified)
	assert.Equal(t, 1, summary.Errors)
}

func TestRunScan_ImportFailureIsNotFatal(t *testing.T) {
	store := *testStore()
	stores := &mockStoreRepo{stores: []models.Store{store}}

	carts := newScanCartRepo()
	carts.lost[store.ID] = 2

	engine := &fakeEngine{importErr: errors.New("shopify down")}
	svc := newScanService(stores, carts, func(_ *models.Store) (services.RecoveryEngine, error) {
		return engine, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, int64(2), summary.Lost) // later phases still run
}

func TestRunScan_StoreListFailure(t *testing.T) {
	stores := &mockStoreRepo{listErr: errors.New("db down")}
	svc := newScanService(stores, newScanCartRepo(), func(_ *models.Store) (services.RecoveryEngine, error) {
		return &fakeEngine{}, nil
	})

	summary, err := svc.RunScan(context.Background())
	assert.Error(t, err)
	assert.Nil(t, summary)
}
