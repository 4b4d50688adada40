package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already handled: event ids for
// event handlers and client-supplied checkout keys.
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked, false if it was seen before
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Remove forgets a key so a failed operation can be retried with it
	Remove(ctx context.Context, key string) error

	Close() error
}
