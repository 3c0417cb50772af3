package models

// RecoveryStatus tracks where a cart sits in the recovery lifecycle.
type RecoveryStatus string

const (
	StatusNone          RecoveryStatus = "none"
	StatusAbandoned     RecoveryStatus = "abandoned"
	StatusNotifiedFirst RecoveryStatus = "notified_first"
	StatusNotifiedFinal RecoveryStatus = "notified_final"
	StatusRecovered     RecoveryStatus = "recovered"
	StatusLost          RecoveryStatus = "lost"
)

// RecoveryEvent is something that happened to a cart that may advance its status.
type RecoveryEvent string

const (
	EventNotified  RecoveryEvent = "notified"
	EventRecovered RecoveryEvent = "recovered"
	EventExpired   RecoveryEvent = "expired"
)

// NextStatus is the single place recovery transitions are decided.
// A first notification on an abandoned cart lands on notified_first; any
// further notification lands on notified_final, never back on notified_first.
// Expiry only moves notified_final carts to lost. Terminal states never move.
func NextStatus(current RecoveryStatus, event RecoveryEvent) RecoveryStatus {
	if current == StatusRecovered || current == StatusLost {
		return current
	}

	switch event {
	case EventNotified:
		if current == StatusAbandoned {
			return StatusNotifiedFirst
		}
		return StatusNotifiedFinal
	case EventRecovered:
		return StatusRecovered
	case EventExpired:
		if current == StatusNotifiedFinal {
			return StatusLost
		}
	}
	return current
}

// IsTerminal reports whether no further transitions apply.
func (s RecoveryStatus) IsTerminal() bool {
	return s == StatusRecovered || s == StatusLost
}
