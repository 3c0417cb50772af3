package services

import (
	"context"
	"encoding/json"
	"time"

	"recovery-service/models"
	aws_pkg "recovery-service/pkg/aws"
	"recovery-service/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// lastScanKey is where the most recent scan summary is kept in Redis.
const lastScanKey = "recovery:last_scan"

// EngineFactory builds a RecoveryEngine for one store. Injected so the scan
// pipeline can be tested without real Shopify/WhatsApp clients.
type EngineFactory func(store *models.Store) (RecoveryEngine, error)

// ScanRunner is the scan surface consumed by the HTTP layer.
type ScanRunner interface {
	RunScan(ctx context.Context) (*models.ScanSummary, error)
	LastSummary(ctx context.Context) (*models.ScanSummary, error)
}

// ScanConfig holds the recovery-pipeline thresholds.
type ScanConfig struct {
	DormantAfter  time.Duration // status none, untouched this long → abandoned
	FollowUpAfter time.Duration // notified_first this long ago → final notice
	ExpireAfter   time.Duration // notified_final this long ago → lost
}

// ScanService drives the detect → notify → follow-up → expire pipeline
// across all eligible stores. It is stateless between runs; a cart's status
// field is the only progress marker, so overlapping runs can double-send.
type ScanService struct {
	stores      repository.StoreRepository
	carts       repository.CartRepository
	factory     EngineFactory
	cfg         ScanConfig
	redisClient *redis.Client
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

// NewScanService creates a ScanService. redisClient and snsClient may be nil;
// summary caching and the scan-completed notification are then skipped.
func NewScanService(
	stores repository.StoreRepository,
	carts repository.CartRepository,
	factory EngineFactory,
	cfg ScanConfig,
	redisClient *redis.Client,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) *ScanService {
	return &ScanService{
		stores:      stores,
		carts:       carts,
		factory:     factory,
		cfg:         cfg,
		redisClient: redisClient,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

// RunScan executes one scan pass. Per-store and per-cart failures are
// counted and never abort the run; only a failure to list stores is returned
// as an error.
func (s *ScanService) RunScan(ctx context.Context) (*models.ScanSummary, error) {
	start := time.Now()
	summary := &models.ScanSummary{Timestamp: start}

	stores, err := s.stores.FindActive(ctx)
	if err != nil {
		s.logger.Error("scan: failed to list active stores", zap.Error(err))
		return nil, err
	}

	for i := range stores {
		store := &stores[i]
		if !store.HasShopifyCredentials() {
			continue
		}
		summary.Stores++

		engine, err := s.factory(store)
		if err != nil {
			summary.Errors++
			s.logger.Warn("scan: skipping misconfigured store",
				zap.String("store_id", store.ID.String()),
				zap.Error(err),
			)
			continue
		}

		s.scanStore(ctx, store, engine, summary)
	}

	summary.DurationSeconds = time.Since(start).Seconds()
	s.logger.Info("scan pass complete",
		zap.Int("stores", summary.Stores),
		zap.Int("imported", summary.Imported),
		zap.Int("abandoned", summary.Abandoned),
		zap.Int("notified", summary.Notified),
		zap.Int("follow_up", summary.FollowUp),
		zap.Int64("lost", summary.Lost),
		zap.Int("errors", summary.Errors),
		zap.Float64("duration_seconds", summary.DurationSeconds),
	)

	s.storeSummary(ctx, summary)
	s.publishSummary(ctx, summary)
	return summary, nil
}

// scanStore runs the four pipeline phases for one store, strictly in order:
// later phases query statuses that earlier phases in the same pass produce.
func (s *ScanService) scanStore(ctx context.Context, store *models.Store, engine RecoveryEngine, summary *models.ScanSummary) {
	// Import remote abandoned checkouts, best-effort.
	if imported, err := engine.ImportAbandonedCheckouts(ctx); err != nil {
		summary.Errors++
	} else {
		summary.Imported += imported
	}

	now := time.Now()

	// Detect: dormant carts become abandoned and get the first message.
	dormant, err := s.carts.FindDormant(ctx, store.ID, now.Add(-s.cfg.DormantAfter))
	if err != nil {
		summary.Errors++
		s.logger.Error("scan: dormant query failed", zap.String("store_id", store.ID.String()), zap.Error(err))
	} else {
		for i := range dormant {
			cart := &dormant[i]
			if err := engine.MarkAbandoned(ctx, cart); err != nil {
				summary.Errors++
				continue
			}
			summary.Abandoned++

			if !engine.CanMessage() {
				continue
			}
			if err := engine.SendRecoveryMessage(ctx, cart.ID); err != nil {
				summary.Errors++
				continue
			}
			summary.Notified++
		}
	}

	// Follow-up: first-notified carts past the threshold get the final notice.
	if engine.CanMessage() {
		followUp, err := s.carts.FindForFollowUp(ctx, store.ID, now.Add(-s.cfg.FollowUpAfter))
		if err != nil {
			summary.Errors++
			s.logger.Error("scan: follow-up query failed", zap.String("store_id", store.ID.String()), zap.Error(err))
		} else {
			for i := range followUp {
				if err := engine.SendRecoveryMessage(ctx, followUp[i].ID); err != nil {
					summary.Errors++
					continue
				}
				summary.FollowUp++
			}
		}
	}

	// Expire: one set-based update, not a per-row loop.
	lost, err := s.carts.MarkLostBefore(ctx, store.ID, now.Add(-s.cfg.ExpireAfter))
	if err != nil {
		summary.Errors++
		s.logger.Error("scan: expire update failed", zap.String("store_id", store.ID.String()), zap.Error(err))
	} else {
		summary.Lost += lost
	}

	// Accumulate store stats into the run summary.
	stats, err := engine.Stats(ctx)
	if err != nil {
		summary.Errors++
		return
	}
	summary.Recovered += stats.Recovered
}

// LastSummary returns the most recent scan summary from Redis, or nil when
// none is cached.
func (s *ScanService) LastSummary(ctx context.Context) (*models.ScanSummary, error) {
	if s.redisClient == nil {
		return nil, nil
	}
	data, err := s.redisClient.Get(ctx, lastScanKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary models.ScanSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *ScanService) storeSummary(ctx context.Context, summary *models.ScanSummary) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, lastScanKey, data, 0).Err(); err != nil {
		s.logger.Warn("failed to cache scan summary", zap.Error(err))
	}
}

func (s *ScanService) publishSummary(ctx context.Context, summary *models.ScanSummary) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}
	event := models.ScanCompletedEvent{
		EventType: "scan_completed",
		Summary:   *summary,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal scan event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, data); err != nil {
		s.logger.Error("failed to publish scan event", zap.Error(err))
		return
	}
	s.logger.Info("published scan event", zap.String("topic", s.snsTopicArn))
}
