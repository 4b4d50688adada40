package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/pricing"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCouponRepository_MarkUsed(t *testing.T) {
	repo := NewGormCouponRepository(newTestDB(t))
	ctx := context.Background()
	limit := 2

	require.NoError(t, repo.Save(ctx, &pricing.Coupon{
		Code:          "twice",
		DiscountType:  pricing.DiscountFixedAmount,
		DiscountValue: decimal.NewFromInt(5000),
		UsageLimit:    &limit,
		IsActive:      true,
	}))
	require.NoError(t, repo.Save(ctx, &pricing.Coupon{
		Code:          "OPEN",
		DiscountType:  pricing.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(5),
		IsActive:      true,
	}))

	t.Run("stops at the usage limit", func(t *testing.T) {
		require.NoError(t, repo.MarkUsed(ctx, "TWICE"))
		require.NoError(t, repo.MarkUsed(ctx, " twice "))

		err := repo.MarkUsed(ctx, "TWICE")
		assert.True(t, shared.IsCode(err, shared.CodeCouponInvalid), "got %v", err)

		c, err := repo.FindByCode(ctx, "TWICE")
		require.NoError(t, err)
		assert.Equal(t, 2, c.UsedCount)
	})

	t.Run("unlimited coupons keep counting", func(t *testing.T) {
		for range 3 {
			require.NoError(t, repo.MarkUsed(ctx, "OPEN"))
		}
		c, err := repo.FindByCode(ctx, "OPEN")
		require.NoError(t, err)
		assert.Equal(t, 3, c.UsedCount)
	})

	t.Run("unknown code", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkUsed(ctx, "NOPE"), shared.ErrNotFound)
	})
}
