package services

import "errors"

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// Configuration errors. These fail fast and are never retried; the next
// scan pass simply skips the store again.
var (
	ErrStoreNotConfigured     = errors.New("store has no shopify credentials")
	ErrMessagingNotConfigured = errors.New("store has no whatsapp credentials")
)
