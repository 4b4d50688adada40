package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flagCounter struct {
	noopMetrics
	flagged int
}

func (c *flagCounter) IntentsFlagged(_ context.Context, n int) { c.flagged += n }

func TestReconciler_Scan(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	old := time.Now().Add(-time.Hour)

	save := func(in *checkout.Intent) *checkout.Intent {
		in.UpdatedAt = old
		require.NoError(t, store.Intents().Save(ctx, in))
		return in
	}
	abandoned := save(checkout.NewIntent(uuid.New(), "STANDARD", "a"))
	halfway := checkout.NewIntent(uuid.New(), "STANDARD", "b")
	halfway.MarkStep(checkout.StepInventory)
	save(halfway)
	flagged := checkout.NewIntent(uuid.New(), "STANDARD", "c")
	flagged.MarkStep(checkout.StepInventory)
	flagged.FlagForReconciliation("earlier")
	save(flagged)
	done := checkout.NewIntent(uuid.New(), "STANDARD", "d")
	done.Complete()
	save(done)
	fresh := checkout.NewIntent(uuid.New(), "STANDARD", "e")
	require.NoError(t, store.Intents().Save(ctx, fresh))

	metrics := &flagCounter{}
	r := NewReconciler(store.Intents(), 15*time.Minute, 10, testutil.Logger(t))
	r.SetMetrics(metrics)

	res, err := r.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconciliationResult{Scanned: 3, Flagged: 1, Failed: 1, Awaiting: 1}, res)
	assert.Equal(t, 1, metrics.flagged)

	got, ok := store.Intent("a")
	require.True(t, ok)
	assert.Equal(t, checkout.IntentFailed, got.Status)
	assert.Equal(t, abandoned.ID, got.ID)

	got, _ = store.Intent("b")
	assert.Equal(t, checkout.IntentNeedsReconciliation, got.Status)

	got, _ = store.Intent("e")
	assert.Equal(t, checkout.IntentStarted, got.Status)

	// the closed and flagged intents are not picked up as new work again
	res, err = r.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Flagged)
	assert.Equal(t, 0, res.Failed)
}
