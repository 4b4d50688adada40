package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIntent_Steps(t *testing.T) {
	i := NewIntent(uuid.New(), "STANDARD", "key-1")
	assert.Equal(t, IntentStarted, i.Status)
	assert.NoError(t, i.Validate())

	i.MarkStep(StepInventory)
	i.MarkStep(StepInventory)
	i.MarkStep(StepCatalog)
	assert.Equal(t, []Step{StepInventory, StepCatalog}, i.CompletedSteps)
	assert.True(t, i.HasStep(StepCatalog))
	assert.False(t, i.HasStep(StepOrder))
}

func TestIntent_Fail(t *testing.T) {
	t.Run("nothing written means failed", func(t *testing.T) {
		i := NewIntent(uuid.New(), "STANDARD", "")
		i.Fail(errors.New("product missing"))
		assert.Equal(t, IntentFailed, i.Status)
		assert.True(t, i.IsTerminal())
		assert.Equal(t, "product missing", i.LastError)
	})

	t.Run("partial writes need reconciliation", func(t *testing.T) {
		i := NewIntent(uuid.New(), "STANDARD", "")
		i.MarkStep(StepInventory)
		i.Fail(errors.New("order store down"))
		assert.Equal(t, IntentNeedsReconciliation, i.Status)
		assert.False(t, i.IsTerminal())
	})
}

func TestIntent_IsStale(t *testing.T) {
	i := NewIntent(uuid.New(), "FAST", "")
	now := i.UpdatedAt
	assert.False(t, i.IsStale(now.Add(time.Minute), 5*time.Minute))
	assert.True(t, i.IsStale(now.Add(10*time.Minute), 5*time.Minute))

	i.Complete()
	assert.False(t, i.IsStale(now.Add(10*time.Minute), 5*time.Minute))
	assert.True(t, i.IsTerminal())
}

func TestIntent_Restart(t *testing.T) {
	i := NewIntent(uuid.New(), "FAST", "key-2")
	assert.Error(t, i.Restart(), "a started intent cannot restart")

	i.Fail(errors.New("coupon rejected"))
	assert.Equal(t, IntentFailed, i.Status)
	assert.NoError(t, i.Restart())
	assert.Equal(t, IntentStarted, i.Status)
	assert.Empty(t, i.LastError)

	i.MarkStep(StepCatalog)
	i.Fail(errors.New("order store down"))
	assert.Equal(t, IntentNeedsReconciliation, i.Status)
	assert.Error(t, i.Restart())
}
