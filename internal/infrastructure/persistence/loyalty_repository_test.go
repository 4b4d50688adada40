package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/loyalty"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLoyaltyRepository(t *testing.T) {
	repo := NewGormLoyaltyRepository(newTestDB(t))
	ctx := context.Background()
	user := uuid.New()

	_, err := repo.FindByUserID(ctx, user)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	acct, err := loyalty.NewAccount(user)
	require.NoError(t, err)
	txn, err := acct.Earn(1200, "SO-2026-00001", "order completed")
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithTransaction(ctx, acct, txn))
	assert.Equal(t, 1, acct.Version, "insert keeps the initial version")

	stale, err := repo.FindByUserID(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, loyalty.TierSilver, stale.Tier)

	txn, err = acct.Redeem(200, "SO-2026-00002", "checkout")
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithTransaction(ctx, acct, txn))
	assert.Equal(t, 2, acct.Version)

	_, err = stale.Earn(10, "x", "late writer")
	require.NoError(t, err)
	assert.True(t, shared.IsConcurrencyConflict(repo.SaveWithTransaction(ctx, stale, nil)))

	got, err := repo.FindByUserID(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1000, got.AvailablePoints)
	assert.Equal(t, 1200, got.LifetimePoints)

	txns, err := repo.FindTransactions(ctx, got.ID, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	types := []loyalty.TransactionType{txns[0].Type, txns[1].Type}
	assert.ElementsMatch(t, []loyalty.TransactionType{loyalty.TransactionEarn, loyalty.TransactionRedeem}, types)
}
