package persistence

import (
	"context"

	appinv "github.com/storefront/backend/internal/application/inventory"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db     *gorm.DB
	events shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, events shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, events: events}
}

// Execute runs fn in a transaction that commits only if fn returns nil
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, events: s.events})
	})
}

type gormTransactionalRepositories struct {
	tx     *gorm.DB
	events shared.OutboxEventSaver
}

func (r *gormTransactionalRepositories) Items() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx, r.events)
}

func (r *gormTransactionalRepositories) Reservations() inventory.StockReservationRepository {
	return NewGormStockReservationRepository(r.tx)
}

var (
	_ appinv.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
