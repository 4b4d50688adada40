package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInventoryItem(t *testing.T, onHand int) *InventoryItem {
	t.Helper()
	item, err := NewInventoryItem(uuid.New(), onHand)
	require.NoError(t, err)
	return item
}

func assertLedgerInvariant(t *testing.T, item *InventoryItem) {
	t.Helper()
	assert.GreaterOrEqual(t, item.ReservedQuantity, 0)
	assert.LessOrEqual(t, item.ReservedQuantity, item.QuantityOnHand)
}

func TestNewInventoryItem(t *testing.T) {
	t.Run("creates ledger row", func(t *testing.T) {
		productID := uuid.New()
		item, err := NewInventoryItem(productID, 10)
		require.NoError(t, err)
		assert.Equal(t, productID, item.ProductID)
		assert.Equal(t, 10, item.QuantityOnHand)
		assert.Equal(t, 0, item.ReservedQuantity)
		assert.Equal(t, 10, item.AvailableQuantity())
		assert.Equal(t, 1, item.Version)
	})

	t.Run("rejects nil product", func(t *testing.T) {
		_, err := NewInventoryItem(uuid.Nil, 1)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := NewInventoryItem(uuid.New(), -1)
		assert.Error(t, err)
	})
}

func TestInventoryItem_ReserveStock(t *testing.T) {
	t.Run("moves units into reserved", func(t *testing.T) {
		item := createTestInventoryItem(t, 10)
		require.NoError(t, item.ReserveStock(4))

		assert.Equal(t, 4, item.ReservedQuantity)
		assert.Equal(t, 6, item.AvailableQuantity())
		assert.Len(t, item.PendingEvents(), 1)
		assertLedgerInvariant(t, item)
	})

	t.Run("reports requested and available on shortage", func(t *testing.T) {
		item := createTestInventoryItem(t, 5)
		require.NoError(t, item.ReserveStock(3))

		err := item.ReserveStock(3)
		require.Error(t, err)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, shared.CodeInsufficientStock, de.Code)
		assert.Equal(t, 3, de.Details["requested"])
		assert.Equal(t, 2, de.Details["available"])
		assert.Equal(t, 3, item.ReservedQuantity)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		item := createTestInventoryItem(t, 5)
		assert.Error(t, item.ReserveStock(0))
		assert.Error(t, item.ReserveStock(-2))
	})
}

func TestInventoryItem_ReleaseReservedStock(t *testing.T) {
	t.Run("releases exact amount", func(t *testing.T) {
		item := createTestInventoryItem(t, 10)
		require.NoError(t, item.ReserveStock(5))

		released, clamped := item.ReleaseReservedStock(2)
		assert.Equal(t, 2, released)
		assert.False(t, clamped)
		assert.Equal(t, 3, item.ReservedQuantity)
	})

	t.Run("clamps at zero instead of going negative", func(t *testing.T) {
		item := createTestInventoryItem(t, 10)
		require.NoError(t, item.ReserveStock(2))

		released, clamped := item.ReleaseReservedStock(7)
		assert.Equal(t, 2, released)
		assert.True(t, clamped)
		assert.Equal(t, 0, item.ReservedQuantity)
		assertLedgerInvariant(t, item)
	})

	t.Run("non-positive is a no-op", func(t *testing.T) {
		item := createTestInventoryItem(t, 10)
		released, clamped := item.ReleaseReservedStock(0)
		assert.Zero(t, released)
		assert.False(t, clamped)
		assert.Empty(t, item.PendingEvents())
	})
}

func TestInventoryItem_ConfirmReservedStock(t *testing.T) {
	t.Run("consumes reserved and on-hand", func(t *testing.T) {
		item := createTestInventoryItem(t, 10)
		require.NoError(t, item.ReserveStock(4))
		require.NoError(t, item.ConfirmReservedStock(3))

		assert.Equal(t, 7, item.QuantityOnHand)
		assert.Equal(t, 1, item.ReservedQuantity)
		assert.Equal(t, 6, item.AvailableQuantity())
		assertLedgerInvariant(t, item)
	})

	t.Run("fails when reservation is short", func(t *testing.T) {
		item := createTestInventoryItem(t, 10)
		require.NoError(t, item.ReserveStock(1))

		err := item.ConfirmReservedStock(2)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidReservationState))
		assert.Equal(t, 10, item.QuantityOnHand)
		assert.Equal(t, 1, item.ReservedQuantity)
	})
}

func TestInventoryItem_AdjustStock(t *testing.T) {
	t.Run("restocks", func(t *testing.T) {
		item := createTestInventoryItem(t, 2)
		require.NoError(t, item.AdjustStock(3, "order cancelled"))
		assert.Equal(t, 5, item.QuantityOnHand)
	})

	t.Run("cannot drop below reserved", func(t *testing.T) {
		item := createTestInventoryItem(t, 5)
		require.NoError(t, item.ReserveStock(4))

		err := item.AdjustStock(-2, "shrinkage")
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
		assert.Equal(t, 5, item.QuantityOnHand)
	})

	t.Run("requires delta and reason", func(t *testing.T) {
		item := createTestInventoryItem(t, 5)
		assert.Error(t, item.AdjustStock(0, "noop"))
		assert.Error(t, item.AdjustStock(1, ""))
	})
}
