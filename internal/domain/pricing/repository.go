package pricing

import "context"

// CouponRepository is the coupon store
type CouponRepository interface {
	// FindByCode returns shared.ErrNotFound for unknown codes
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// MarkUsed increments the usage counter
	MarkUsed(ctx context.Context, code string) error
}
