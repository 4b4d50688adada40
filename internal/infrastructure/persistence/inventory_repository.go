package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db     *gorm.DB
	events shared.OutboxEventSaver
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository.
// When events is non-nil, ledger events are written to the outbox with each save.
func NewGormInventoryItemRepository(db *gorm.DB, events shared.OutboxEventSaver) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db, events: events}
}

// FindByProductID finds the ledger row of a product
func (r *GormInventoryItemRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*inventory.InventoryItem, error) {
	var m models.InventoryItemModel
	if err := r.db.WithContext(ctx).First(&m, "product_id = ?", productID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// FindByProductIDs returns the ledger rows that exist for the given products
func (r *GormInventoryItemRepository) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]*inventory.InventoryItem, error) {
	if len(productIDs) == 0 {
		return []*inventory.InventoryItem{}, nil
	}
	var rows []models.InventoryItemModel
	if err := r.db.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]*inventory.InventoryItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// Save inserts a new ledger row. A second row for the same product is rejected
// by the unique index and surfaces as ErrAlreadyExists.
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(models.InventoryItemModelFromDomain(item))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrAlreadyExists.WithDetail("product_id", item.ProductID.String())
		}
		return flushEvents(ctx, tx, r.events, item)
	})
}

// SaveWithLock updates quantities only if nobody else changed the row since it was read
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InventoryItemModel{}).
			Where("id = ? AND version = ?", item.ID, item.Version).
			Updates(map[string]any{
				"quantity_on_hand":  item.QuantityOnHand,
				"reserved_quantity": item.ReservedQuantity,
				"version":           item.Version + 1,
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetail("product_id", item.ProductID.String())
		}
		return flushEvents(ctx, tx, r.events, item)
	})
	if err != nil {
		return err
	}
	item.BumpVersion()
	return nil
}

var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
