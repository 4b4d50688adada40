package checkout

import (
	"context"
	"errors"

	"github.com/storefront/backend/internal/domain/shared"
)

// NewTimeoutError reports a checkout that ran past its deadline
func NewTimeoutError(cause error) *shared.DomainError {
	return shared.WrapDomainError(shared.CodeCheckoutTimeout, "Checkout did not finish in time", cause)
}

// NewFailedError wraps an unexpected fault raised while checking out
func NewFailedError(cause error) *shared.DomainError {
	return shared.WrapDomainError(shared.CodeCheckoutFailed, "Checkout failed", cause)
}

// NewInProgressError reports an idempotency key whose checkout has not settled
func NewInProgressError(key string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeCheckoutInProgress, "A checkout with this idempotency key is still in progress").
		WithDetail("idempotency_key", key)
}

// classify maps whatever a checkout returned onto the public taxonomy. Domain
// errors pass through; deadlines become CHECKOUT_TIMEOUT and everything else
// CHECKOUT_FAILED.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if shared.IsCode(err, shared.CodeCheckoutTimeout) {
			return err
		}
		return NewTimeoutError(err)
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	return NewFailedError(err)
}

func errorCode(err error) string {
	if de, ok := shared.AsDomainError(err); ok {
		return de.Code
	}
	return shared.CodeCheckoutFailed
}
