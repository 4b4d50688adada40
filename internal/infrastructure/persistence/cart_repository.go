package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByCustomerID loads the customer's cart with its lines
func (r *GormCartRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	var m models.CartModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_name ASC") }).
		First(&m, "customer_id = ?", customerID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return m.ToDomain(), nil
}

// Save upserts the cart header and replaces its lines
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	m := &models.CartModel{}
	m.FromDomain(c)
	items := m.Items
	m.Items = nil
	m.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"coupon_code", "discount_amount", "discount_source", "tax_rate", "shipping_amount", "is_pickup",
				"subtotal", "tax_amount", "total", "updated_at",
			}),
		}).Create(m).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", c.ID).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

var _ cart.CartRepository = (*GormCartRepository)(nil)
