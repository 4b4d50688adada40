package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, number string, customerID uuid.UUID) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber:    number,
		CustomerID:     customerID,
		CustomerEmail:  "buyer@example.com",
		TaxRate:        decimal.NewFromFloat(0.1),
		ShippingAmount: decimal.NewFromInt(30000),
		Items: []order.ItemInput{{
			ProductID:   uuid.New(),
			ProductName: "Desk Lamp",
			SKU:         "LAMP-01",
			UnitPrice:   decimal.NewFromInt(100000),
			Quantity:    2,
		}},
	})
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	saver := &recordingSaver{}
	repo := NewGormOrderRepository(db, saver)
	ctx := context.Background()

	o := newTestOrder(t, "SO-2026-00001", uuid.New())
	require.NoError(t, o.Confirm("alice", "placed at checkout"))
	o.RaiseEvent(order.NewOrderCreatedEvent(o))
	require.NoError(t, repo.Save(ctx, o))
	assert.Empty(t, o.PendingHistory())
	assert.Len(t, saver.saved, 2)

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-00001", got.OrderNumber)
	assert.Equal(t, order.OrderStatusConfirmed, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(250000).Equal(got.TotalAmount), "got %s", got.TotalAmount)
	require.Len(t, got.History, 1)
	assert.Equal(t, order.OrderStatusDraft, got.History[0].FromStatus)
	assert.Equal(t, "alice", got.History[0].ChangedBy)

	byNumber, err := repo.FindByOrderNumber(ctx, "SO-2026-00001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, byNumber.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	exists, err := repo.ExistsByOrderNumber(ctx, "SO-2026-00001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormOrderRepository_DuplicateOrderNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestOrder(t, "SO-2026-00007", uuid.New())))
	err := repo.Save(ctx, newTestOrder(t, "SO-2026-00007", uuid.New()))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db, nil)
	ctx := context.Background()

	o := newTestOrder(t, "SO-2026-00002", uuid.New())
	require.NoError(t, repo.Save(ctx, o))

	stale, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, o.Confirm("bob", ""))
	require.NoError(t, o.Ship("bob", "TRK-1", "DHL"))
	require.NoError(t, repo.SaveWithLock(ctx, o))
	assert.Equal(t, 2, o.Version)

	require.NoError(t, stale.Cancel("carol", "changed mind"))
	err = repo.SaveWithLock(ctx, stale)
	assert.True(t, shared.IsConcurrencyConflict(err))

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusShipped, got.Status)
	assert.Equal(t, "TRK-1", got.TrackingNumber)
	assert.NotNil(t, got.ShippedAt)
	require.Len(t, got.History, 2)
	assert.Equal(t, order.OrderStatusShipped, got.History[1].ToStatus)
}

func TestGormOrderRepository_GenerateOrderNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db, nil)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	first, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-00001", first)

	require.NoError(t, repo.Save(ctx, newTestOrder(t, "SO-2026-00041", uuid.New())))
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "SO-2025-00900", uuid.New())))

	next, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-00042", next)

	require.NoError(t, repo.Save(ctx, newTestOrder(t, "SO-2026-99999", uuid.New())))
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "SO-2026-100000", uuid.New())))

	next, err = repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-100001", next)
}

func TestGormOrderRepository_FindAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db, nil)
	ctx := context.Background()

	mine := uuid.New()
	for i := 1; i <= 3; i++ {
		o := newTestOrder(t, fmt.Sprintf("SO-2026-%05d", i), mine)
		if i == 3 {
			require.NoError(t, o.Cancel("System", "payment failed"))
		}
		require.NoError(t, repo.Save(ctx, o))
	}
	require.NoError(t, repo.Save(ctx, newTestOrder(t, "SO-2026-00099", uuid.New())))

	all, total, err := repo.FindAll(ctx, order.OrderFilter{Filter: shared.DefaultFilter()})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	filter := order.OrderFilter{Filter: shared.DefaultFilter(), CustomerID: &mine}
	filter.PageSize = 2
	page, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
	assert.NotEmpty(t, page[0].Items)

	cancelled := order.OrderStatusCancelled
	only, total, err := repo.FindAll(ctx, order.OrderFilter{Filter: shared.DefaultFilter(), CustomerID: &mine, Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, only, 1)
	assert.Equal(t, "SO-2026-00003", only[0].OrderNumber)
}

func TestGormReturnRequestRepository(t *testing.T) {
	db := newTestDB(t)
	saver := &recordingSaver{}
	orders := NewGormOrderRepository(db, nil)
	returns := NewGormReturnRequestRepository(db, saver)
	ctx := context.Background()

	customer := uuid.New()
	o := newTestOrder(t, "SO-2026-00010", customer)
	require.NoError(t, o.Confirm("", ""))
	require.NoError(t, o.Ship("", "TRK-9", ""))
	require.NoError(t, o.Deliver("", ""))
	require.NoError(t, orders.Save(ctx, o))

	rr, err := order.NewReturnRequest(o, customer, o.Items[0].ID, 1, "damaged", "")
	require.NoError(t, err)
	require.NoError(t, returns.Save(ctx, rr))

	require.NoError(t, rr.Approve("manager"))
	require.NoError(t, rr.MarkRefunded("manager"))
	require.NoError(t, returns.SaveWithLock(ctx, rr))
	assert.Equal(t, 2, rr.Version)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, order.EventTypeReturnRefunded, saver.saved[0].EventType())

	got, err := returns.FindByID(ctx, rr.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ReturnStatusRefunded, got.Status)
	assert.True(t, decimal.NewFromInt(100000).Equal(got.RefundAmount))

	list, err := returns.FindByOrderID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got.Version = 1
	assert.True(t, shared.IsConcurrencyConflict(returns.SaveWithLock(ctx, got)))
}
