package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_DoGivesUpAfterAttempts(t *testing.T) {
	p := appinv.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return shared.ErrConcurrencyConflict
	}, nil)

	assert.True(t, shared.IsConcurrencyConflict(err))
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_DoContendedOutlastsAttempts(t *testing.T) {
	p := appinv.RetryPolicy{Attempts: 1, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls, retried := 0, 0
	err := p.DoContended(ctx, func(context.Context) error {
		calls++
		if calls < 10 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	}, func(int, error) { retried++ })

	require.NoError(t, err)
	assert.Equal(t, 10, calls)
	assert.Equal(t, 9, retried)
}

func TestRetryPolicy_DoContendedStopsOnOtherErrors(t *testing.T) {
	p := appinv.RetryPolicy{Backoff: time.Millisecond}
	shortage := shared.NewDomainError(shared.CodeInsufficientStock, "Insufficient stock")
	calls := 0
	err := p.DoContended(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return shared.ErrConcurrencyConflict
		}
		return shortage
	}, nil)

	assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_DoContendedBoundedByDeadline(t *testing.T) {
	p := appinv.RetryPolicy{Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.DoContended(ctx, func(context.Context) error {
		return shared.ErrConcurrencyConflict
	}, nil)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
