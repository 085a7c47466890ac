package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a retried mutation is answered
// from the stored result instead of being applied twice.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already
	// claimed, either in flight or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the final response for a reserved key.
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error

	// Lookup returns the stored response for key. found is false while the
	// key is reserved but not yet completed.
	Lookup(ctx context.Context, key string) (response []byte, found bool, err error)

	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyConfig holds configuration for request idempotency
type IdempotencyConfig struct {
	// TTL is how long a completed response is replayed. Default: 24 hours
	TTL time.Duration
	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
