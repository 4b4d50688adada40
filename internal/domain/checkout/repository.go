package checkout

import (
	"context"
	"time"
)

// IntentRepository persists checkout saga records
type IntentRepository interface {
	Save(ctx context.Context, intent *Intent) error

	// FindByIdempotencyKey returns shared.ErrNotFound when the key was never used
	FindByIdempotencyKey(ctx context.Context, key string) (*Intent, error)

	// FindUnfinished returns intents in STARTED or NEEDS_RECONCILIATION last touched before the cutoff
	FindUnfinished(ctx context.Context, updatedBefore time.Time, limit int) ([]*Intent, error)
}
