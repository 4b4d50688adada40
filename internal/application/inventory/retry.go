package inventory

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// RetryPolicy bounds how often a ledger write is retried after an optimistic
// lock conflict. The wait doubles after every attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// MaxBackoff caps the wait of DoContended; zero means 16x Backoff
	MaxBackoff time.Duration
}

// DefaultRetryPolicy is three attempts starting at 50ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}
}

// Do runs fn until it succeeds, fails with something other than a concurrency
// conflict, or the attempts run out. fn must reload whatever it mutates, so the
// error of the last attempt reflects the state after the conflict.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, onConflict func(attempt int, err error)) error {
	return p.run(ctx, fn, shared.IsConcurrencyConflict, onConflict)
}

// DoContended retries concurrency conflicts until fn settles or ctx is done,
// ignoring Attempts. Every conflict means a competing writer committed, so
// fn either wins a later round or reloads a state in which its own checks
// fail. Waits are jittered so contending callers spread out. ctx must carry
// a deadline.
func (p RetryPolicy) DoContended(ctx context.Context, fn func(ctx context.Context) error, onConflict func(attempt int, err error)) error {
	wait := max(p.Backoff, time.Millisecond)
	ceiling := p.MaxBackoff
	if ceiling <= 0 {
		ceiling = 16 * wait
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !shared.IsConcurrencyConflict(err) {
			return err
		}
		if onConflict != nil {
			onConflict(attempt, err)
		}
		if err := Sleep(ctx, wait/2+rand.N(wait)); err != nil {
			return err
		}
		wait = min(wait*2, ceiling)
	}
}

// DoTransient retries fn on infrastructure failures and concurrency conflicts.
// Other domain errors are final, as is a done context.
func (p RetryPolicy) DoTransient(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	return p.run(ctx, fn, isTransient, onRetry)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := shared.AsDomainError(err); ok {
		return shared.IsConcurrencyConflict(err)
	}
	return true
}

func (p RetryPolicy) run(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool, onRetry func(attempt int, err error)) error {
	attempts := max(p.Attempts, 1)
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !retryable(err) || attempt >= attempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if err := Sleep(ctx, p.Backoff<<(attempt-1)); err != nil {
			return err
		}
	}
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
