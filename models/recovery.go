package models

import "time"

// SyncOutcome distinguishes how a cart reached the remote platform.
type SyncOutcome string

const (
	SyncUpdated SyncOutcome = "updated"
	SyncCreated SyncOutcome = "created"
	SyncFailed  SyncOutcome = "failed"
)

// SyncResult reports the outcome of pushing a cart to Shopify. When an
// update-in-place fails and the cart is recreated instead, Outcome is
// "created" and UpdateErr carries the masked update failure so callers and
// tests can tell "recreated after failed update" from "created fresh".
type SyncResult struct {
	Outcome   SyncOutcome `json:"outcome"`
	RemoteID  string      `json:"remote_id,omitempty"`
	UpdateErr error       `json:"-"`
}

// RecoveryStats aggregates recovery performance for one store.
type RecoveryStats struct {
	Abandoned    int64   `json:"abandoned"`
	Notified     int64   `json:"notified"` // notified_first + notified_final
	Recovered    int64   `json:"recovered"`
	Lost         int64   `json:"lost"`
	RecoveryRate float64 `json:"recovery_rate"` // recovered / notified * 100, 0 when nothing notified
	Revenue      float64 `json:"revenue"`       // sum over recovered carts of total - discount
}

// ScanSummary is the run-level result of one scan pass across all stores.
type ScanSummary struct {
	Stores          int       `json:"stores"`
	Imported        int       `json:"imported"`
	Abandoned       int       `json:"abandoned"`
	Notified        int       `json:"notified"`
	FollowUp        int       `json:"followUp"`
	Recovered       int64     `json:"recovered"`
	Lost            int64     `json:"lost"`
	Errors          int       `json:"errors"`
	DurationSeconds float64   `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

// Cart lifecycle event types published to Kafka.
const (
	EventTypeCartAbandoned = "cart.abandoned"
	EventTypeCartNotified  = "cart.notified"
	EventTypeCartRecovered = "cart.recovered"
)

// CartEvent is published to Kafka when a cart moves through the recovery
// lifecycle.
type CartEvent struct {
	EventType string    `json:"event_type"`
	CartID    string    `json:"cart_id"`
	StoreID   string    `json:"store_id"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanCompletedEvent is published to SNS after each scan pass.
type ScanCompletedEvent struct {
	EventType string      `json:"event_type"`
	Summary   ScanSummary `json:"summary"`
	Timestamp time.Time   `json:"timestamp"`
}
